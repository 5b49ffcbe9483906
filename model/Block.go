package model

import (
	"encoding/hex"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/errors"
)

type Block struct {
	Header       *BlockHeader
	Transactions []*Transaction
}

func NewBlock(header *BlockHeader, transactions []*Transaction) *Block {
	return &Block{
		Header:       header,
		Transactions: transactions,
	}
}

func NewBlockFromBytes(blockBytes []byte) (*Block, error) {
	if len(blockBytes) < BlockHeaderSize {
		return nil, errors.NewProcessingError("block should be at least %d bytes long, got %d", BlockHeaderSize, len(blockBytes))
	}

	header, err := NewBlockHeaderFromBytes(blockBytes[:BlockHeaderSize])
	if err != nil {
		return nil, err
	}

	r := newReader(blockBytes[BlockHeaderSize:])

	txCount, err := ReadVarInt(r)
	if err != nil {
		return nil, errors.NewProcessingError("could not read transaction count", err)
	}

	// every transaction is at least 10 bytes long
	if txCount > uint64(r.Len()/10) {
		return nil, errors.NewProcessingError("transaction count %d exceeds remaining bytes", txCount)
	}

	block := &Block{
		Header:       header,
		Transactions: make([]*Transaction, 0, txCount),
	}

	for i := uint64(0); i < txCount; i++ {
		tx, err := readTransaction(r)
		if err != nil {
			return nil, errors.NewProcessingError("could not read transaction %d", i, err)
		}

		block.Transactions = append(block.Transactions, tx)
	}

	if r.Len() != 0 {
		return nil, errors.NewProcessingError("block has %d trailing bytes", r.Len())
	}

	return block, nil
}

func NewBlockFromString(blockHex string) (*Block, error) {
	b, err := hex.DecodeString(blockHex)
	if err != nil {
		return nil, errors.NewProcessingError("error decoding block hex", err)
	}

	return NewBlockFromBytes(b)
}

func (b *Block) Hash() chainhash.Hash {
	return b.Header.Hash()
}

func (b *Block) String() string {
	h := b.Hash()
	return h.String()
}

func (b *Block) Bytes() []byte {
	size := BlockHeaderSize + VarIntSize(uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		size += tx.Size()
	}

	buf := make([]byte, 0, size)
	buf = append(buf, b.Header.Bytes()...)
	buf = AppendVarInt(buf, uint64(len(b.Transactions)))

	for _, tx := range b.Transactions {
		buf = tx.AppendBytes(buf)
	}

	return buf
}

// CoinbaseTx returns the first transaction, or nil for an empty block.
func (b *Block) CoinbaseTx() *Transaction {
	if len(b.Transactions) == 0 {
		return nil
	}

	return b.Transactions[0]
}

// TransactionHashes returns the hashes of the transactions in block order.
func (b *Block) TransactionHashes() []chainhash.Hash {
	hashes := make([]chainhash.Hash, len(b.Transactions))
	for i, tx := range b.Transactions {
		hashes[i] = tx.Hash()
	}

	return hashes
}

// CalculateMerkleRoot computes the merkle root of the block transactions.
func (b *Block) CalculateMerkleRoot() chainhash.Hash {
	return CalculateMerkleRoot(b.TransactionHashes())
}

// CheckMerkleRoot reports whether the header commits to the transactions.
func (b *Block) CheckMerkleRoot() bool {
	if len(b.Transactions) == 0 {
		return false
	}

	return b.CalculateMerkleRoot() == b.Header.HashMerkleRoot
}
