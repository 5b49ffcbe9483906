package testutil

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/chaincfg"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/script"
	"github.com/bsv-blockchain/verdict/signature"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // protocol hash
)

// SigHashAllForkID is the hash type used by every signature the fixtures make.
const SigHashAllForkID = signature.SigHashAll | signature.SigHashForkID

// Wallet is a single key paying to and spending from P2PKH scripts.
type Wallet struct {
	Key           *secp256k1.PrivateKey
	PubKey        []byte
	LockingScript []byte
}

func NewWallet(seed string) *Wallet {
	b := sha256.Sum256([]byte(seed))
	key := secp256k1.PrivKeyFromBytes(b[:])
	pubKey := key.PubKey().SerializeCompressed()

	lockingScript := []byte{byte(script.OpDUP), byte(script.OpHASH160)}
	lockingScript = append(lockingScript, signature.PushDataBytes(hash160(pubKey))...)
	lockingScript = append(lockingScript, byte(script.OpEQUALVERIFY), byte(script.OpCHECKSIG))

	return &Wallet{
		Key:           key,
		PubKey:        pubKey,
		LockingScript: lockingScript,
	}
}

// Output pays amount to the wallet.
func (w *Wallet) Output(amount int64) *model.Output {
	return &model.Output{
		Amount:        amount,
		LockingScript: w.LockingScript,
	}
}

// Spend returns a transaction spending every output of from to outputs,
// with every input signed by the wallet.
func (w *Wallet) Spend(from []Spendable, outputs ...*model.Output) *model.Transaction {
	tx := &model.Transaction{
		Version: 2,
	}

	for _, spendable := range from {
		tx.Inputs = append(tx.Inputs, &model.Input{
			PreviousOutpoint: spendable.Outpoint,
			SequenceNumber:   0xffffffff,
		})
	}

	for i, output := range outputs {
		//nolint:gosec // fixture output counts are small
		output.Index = uint32(i)
		tx.Outputs = append(tx.Outputs, output)
	}

	w.Sign(tx, from)

	return tx
}

// Sign sets the unlocking script of every input of tx, which spends from in
// order.
func (w *Wallet) Sign(tx *model.Transaction, from []Spendable) {
	hasher := signature.NewHasher(tx)

	for i, spendable := range from {
		digest := hasher.SignatureHash(i, spendable.LockingScript, spendable.Amount, SigHashAllForkID, true)
		sig := append(signature.SignECDSA(w.Key, digest[:]), byte(SigHashAllForkID))

		unlocking := signature.PushDataBytes(sig)
		unlocking = append(unlocking, signature.PushDataBytes(w.PubKey)...)

		tx.Inputs[i].UnlockingScript = unlocking
	}
}

// Spendable is an output that a Wallet can spend.
type Spendable struct {
	Outpoint      model.Outpoint
	Amount        int64
	LockingScript []byte
}

// Spendables returns the outputs of tx at indexes, all of them when none are
// given.
func Spendables(tx *model.Transaction, indexes ...uint32) []Spendable {
	if len(indexes) == 0 {
		for i := range tx.Outputs {
			//nolint:gosec // fixture output counts are small
			indexes = append(indexes, uint32(i))
		}
	}

	spendables := make([]Spendable, 0, len(indexes))

	for _, index := range indexes {
		spendables = append(spendables, Spendable{
			Outpoint:      tx.Outpoint(index),
			Amount:        tx.Outputs[index].Amount,
			LockingScript: tx.Outputs[index].LockingScript,
		})
	}

	return spendables
}

// Coinbase returns a coinbase transaction for height paying outputs. The
// height is pushed into the unlocking script so coinbases of different
// heights never share a hash.
func Coinbase(height uint32, outputs ...*model.Output) *model.Transaction {
	var heightBytes [4]byte
	binary.LittleEndian.PutUint32(heightBytes[:], height)

	tx := &model.Transaction{
		Version: 1,
		Inputs: []*model.Input{{
			PreviousOutpoint: model.NewOutpoint(chainhash.Hash{}, 0xffffffff),
			UnlockingScript:  signature.PushDataBytes(heightBytes[:]),
			SequenceNumber:   0xffffffff,
		}},
	}

	for i, output := range outputs {
		//nolint:gosec // fixture output counts are small
		output.Index = uint32(i)
		tx.Outputs = append(tx.Outputs, output)
	}

	return tx
}

// MineBlock assembles txs into a block on top of previous and searches for a
// nonce that meets the proof of work limit of params.
func MineBlock(t *testing.T, params *chaincfg.Params, previous chainhash.Hash, timestamp uint32, txs ...*model.Transaction) *model.Block {
	t.Helper()

	hashes := make([]chainhash.Hash, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.Hash()
	}

	merkleRoot := model.CalculateMerkleRoot(hashes)

	for nonce := uint32(0); nonce < 1_000_000; nonce++ {
		header := &model.BlockHeader{
			Version:        4,
			HashPrevBlock:  previous,
			HashMerkleRoot: merkleRoot,
			Timestamp:      timestamp,
			Bits:           model.NBit(params.PowLimitBits),
			Nonce:          nonce,
		}

		ok, _, err := header.HasMetTargetDifficulty()
		require.NoError(t, err)

		if ok {
			return model.NewBlock(header, txs)
		}
	}

	require.FailNow(t, "no nonce meets the target")

	return nil
}

func hash160(b []byte) []byte {
	h := sha256.Sum256(b)
	r := ripemd160.New()
	r.Write(h[:])

	return r.Sum(nil)
}
