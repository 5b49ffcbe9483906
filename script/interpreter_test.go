package script

import (
	"crypto/sha256"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/verdict/chaincfg"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/signature"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // protocol hash
)

const (
	testHeight = uint32(2000)
	testAmount = int64(5000)

	forkIDAll = signature.SigHashAll | signature.SigHashForkID
)

func opN(n int) Opcode {
	return OpTRUE + Opcode(n-1)
}

// build serializes opcodes and data pushes into a script.
func build(t *testing.T, parts ...interface{}) []byte {
	t.Helper()

	var b []byte

	for _, part := range parts {
		switch p := part.(type) {
		case Opcode:
			b = append(b, byte(p))
		case []byte:
			b = append(b, signature.PushDataBytes(p)...)
		case Value:
			b = append(b, signature.PushDataBytes(p)...)
		default:
			t.Fatalf("unexpected script part %T", part)
		}
	}

	return b
}

func testKey(seed string) *secp256k1.PrivateKey {
	b := sha256.Sum256([]byte(seed))
	return secp256k1.PrivKeyFromBytes(b[:])
}

func hash160(b []byte) []byte {
	h := sha256.Sum256(b)
	r := ripemd160.New()
	r.Write(h[:])

	return r.Sum(nil)
}

func testTx(version int32, lockTime, sequence uint32) *model.Transaction {
	return &model.Transaction{
		Version:  version,
		LockTime: lockTime,
		Inputs: []*model.Input{{
			PreviousOutpoint: model.NewOutpoint(chainhash.HashH([]byte("previous")), 0),
			SequenceNumber:   sequence,
		}},
		Outputs: []*model.Output{{
			Amount:        testAmount - 1000,
			LockingScript: []byte{byte(OpTRUE)},
		}},
	}
}

func defaultTx() *model.Transaction {
	return testTx(2, 0, 0xffffffff)
}

func run(params *chaincfg.Params, height uint32, tx *model.Transaction, unlocking, locking []byte) bool {
	tx.Inputs[0].UnlockingScript = unlocking

	output := &model.Output{Amount: testAmount, LockingScript: locking}
	ctx := NewContext(params, height, tx, 0, output, nil)

	return NewInterpreter().RunScripts(Parse(unlocking), Parse(locking), ctx)
}

func runLocking(t *testing.T, parts ...interface{}) bool {
	t.Helper()
	return run(&chaincfg.RegressionNetParams, testHeight, defaultTx(), nil, build(t, parts...))
}

func signInput(key *secp256k1.PrivateKey, tx *model.Transaction, scriptCode []byte, hashType signature.HashType, useForkID bool) []byte {
	digest := signature.NewHasher(tx).SignatureHash(0, scriptCode, testAmount, hashType, useForkID)
	return append(signature.SignECDSA(key, digest[:]), byte(hashType))
}

func signInputSchnorr(key *secp256k1.PrivateKey, tx *model.Transaction, scriptCode []byte) []byte {
	digest := signature.NewHasher(tx).SignatureHash(0, scriptCode, testAmount, forkIDAll, true)
	return append(signature.SignSchnorr(key, digest[:]), byte(forkIDAll))
}

func paramsWith(modify func(p *chaincfg.Params)) *chaincfg.Params {
	p := chaincfg.RegressionNetParams
	modify(&p)

	return &p
}

func TestParse(t *testing.T) {
	pub := testKey("parse").PubKey().SerializeCompressed()
	b := build(t, OpDUP, OpHASH160, hash160(pub), OpEQUALVERIFY, OpCHECKSIG)

	s := Parse(b)
	require.NoError(t, s.Err())
	assert.Equal(t, b, s.Bytes())
	assert.Equal(t, 5, s.Len())
	assert.Equal(t, KindStack, s.Operations()[0].Kind)
	assert.Equal(t, KindCryptographic, s.Operations()[4].Kind)
	assert.Len(t, s.Operations()[2].Data, 20)
	assert.False(t, s.IsPushOnly())
	assert.False(t, s.IsPayToScriptHash())
	assert.Contains(t, s.String(), "OP_DUP OP_HASH160")

	// truncated push
	truncated := Parse([]byte{byte(OpTRUE), 0x05, 0x01, 0x02})
	require.Error(t, truncated.Err())
	assert.Equal(t, 1, truncated.Len())
	assert.False(t, truncated.IsPushOnly())

	truncated = Parse([]byte{byte(OpPUSHDATA2), 0x01})
	require.Error(t, truncated.Err())

	p2sh := Parse(build(t, OpHASH160, make([]byte, 20), OpEQUAL))
	assert.True(t, p2sh.IsPayToScriptHash())

	pushOnly := Parse(build(t, OpFALSE, []byte{0xaa, 0xbb}, opN(16), Op1NEGATE))
	assert.True(t, pushOnly.IsPushOnly())

	long := make([]byte, 300)
	parsed := Parse(build(t, long))
	require.NoError(t, parsed.Err())
	assert.Equal(t, OpPUSHDATA2, parsed.Operations()[0].Opcode)
	assert.Len(t, parsed.Operations()[0].Data, 300)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindPushValue, KindOf(OpFALSE))
	assert.Equal(t, KindPushValue, KindOf(OpPUSHDATA4))
	assert.Equal(t, KindPushValue, KindOf(Op16))
	assert.Equal(t, KindInvalid, KindOf(OpRESERVED))
	assert.Equal(t, KindFlowControl, KindOf(OpIF))
	assert.Equal(t, KindInvalid, KindOf(OpVERIF))
	assert.Equal(t, KindSplice, KindOf(OpCAT))
	assert.Equal(t, KindDisabled, KindOf(OpMUL))
	assert.Equal(t, KindArithmetic, KindOf(OpDIV))
	assert.Equal(t, KindLockTime, KindOf(OpCHECKSEQUENCEVERIFY))
	assert.Equal(t, KindNop, KindOf(OpNOP10))
	assert.Equal(t, KindCryptographic, KindOf(OpCHECKDATASIGVERIFY))
	assert.Equal(t, KindInvalid, KindOf(Opcode(0xbc)))
	assert.Equal(t, KindInvalid, KindOf(Opcode(0xff)))

	assert.Equal(t, "OP_CHECKSIG", OpCHECKSIG.String())
	assert.Equal(t, "OP_5", opN(5).String())
	assert.Equal(t, "OP_NOP7", Opcode(0xb6).String())
}

func TestApply_UnknownKindPanics(t *testing.T) {
	e := &execution{stack: NewStack()}

	assert.Panics(t, func() {
		e.apply(Operation{Opcode: OpNOP, Kind: Kind(200)})
	})
}

func TestInterpreter_Opcodes(t *testing.T) {
	tests := []struct {
		name     string
		parts    []interface{}
		expected bool
	}{
		{"empty script", nil, false},
		{"true", []interface{}{OpTRUE}, true},
		{"false", []interface{}{OpFALSE}, false},
		{"add", []interface{}{opN(2), opN(3), OpADD, opN(5), OpEQUAL}, true},
		{"sub negative", []interface{}{opN(2), opN(3), OpSUB, Op1NEGATE, OpNUMEQUAL}, true},
		{"if taken", []interface{}{OpTRUE, OpIF, opN(2), OpELSE, opN(3), OpENDIF, opN(2), OpEQUAL}, true},
		{"else taken", []interface{}{OpFALSE, OpIF, opN(2), OpELSE, opN(3), OpENDIF, opN(3), OpEQUAL}, true},
		{"notif", []interface{}{OpFALSE, OpNOTIF, OpTRUE, OpELSE, OpFALSE, OpENDIF}, true},
		{"nested if", []interface{}{OpTRUE, OpIF, OpFALSE, OpIF, OpFALSE, OpELSE, OpTRUE, OpENDIF, OpENDIF}, true},
		{"unbalanced if", []interface{}{OpTRUE, OpTRUE, OpIF}, false},
		{"else without if", []interface{}{OpTRUE, OpELSE}, false},
		{"endif without if", []interface{}{OpTRUE, OpENDIF}, false},
		{"return", []interface{}{OpTRUE, OpRETURN}, false},
		{"return not taken", []interface{}{OpFALSE, OpIF, OpRETURN, OpENDIF, OpTRUE}, true},
		{"verify", []interface{}{OpTRUE, OpVERIFY, OpTRUE}, true},
		{"verify false", []interface{}{OpFALSE, OpVERIFY, OpTRUE}, false},
		{"disabled in untaken branch", []interface{}{OpFALSE, OpIF, OpMUL, OpENDIF, OpTRUE}, false},
		{"reserved in untaken branch", []interface{}{OpFALSE, OpIF, OpRESERVED, OpENDIF, OpTRUE}, true},
		{"reserved executed", []interface{}{OpRESERVED, OpTRUE}, false},
		{"verif in untaken branch", []interface{}{OpFALSE, OpIF, OpVERIF, OpENDIF, OpTRUE}, false},
		{"unknown opcode executed", []interface{}{Opcode(0xc0), OpTRUE}, false},
		{"unknown opcode untaken", []interface{}{OpFALSE, OpIF, Opcode(0xc0), OpENDIF, OpTRUE}, true},
		{"nop", []interface{}{OpNOP, OpNOP1, OpNOP10, OpTRUE}, true},
		{"stack underflow", []interface{}{OpADD}, false},
		{"dup equal", []interface{}{opN(7), OpDUP, OpEQUAL}, true},
		{"depth", []interface{}{opN(7), opN(7), OpDEPTH, opN(2), OpEQUALVERIFY, OpEQUAL}, true},
		{"pick", []interface{}{opN(1), opN(2), opN(3), opN(2), OpPICK, opN(1), OpEQUAL}, true},
		{"roll", []interface{}{opN(1), opN(2), opN(3), opN(2), OpROLL, opN(1), OpEQUALVERIFY, OpDEPTH, opN(2), OpEQUAL}, true},
		{"pick out of range", []interface{}{opN(1), opN(5), OpPICK}, false},
		{"rot", []interface{}{opN(1), opN(2), opN(3), OpROT, opN(1), OpEQUALVERIFY, opN(3), OpEQUALVERIFY, opN(2), OpEQUAL}, true},
		{"2rot", []interface{}{opN(1), opN(2), opN(3), opN(4), opN(5), opN(6), Op2ROT, opN(2), OpEQUALVERIFY, opN(1), OpEQUALVERIFY, Op2DROP, Op2DROP, OpTRUE}, true},
		{"2swap", []interface{}{opN(1), opN(2), opN(3), opN(4), Op2SWAP, opN(2), OpEQUALVERIFY, opN(1), OpEQUALVERIFY, opN(4), OpEQUAL}, true},
		{"2over", []interface{}{opN(1), opN(2), opN(3), opN(4), Op2OVER, opN(2), OpEQUALVERIFY, opN(1), OpEQUAL}, true},
		{"3dup", []interface{}{opN(1), opN(2), opN(3), Op3DUP, OpDEPTH, opN(6), OpEQUAL}, true},
		{"tuck", []interface{}{opN(1), opN(2), OpTUCK, opN(2), OpEQUALVERIFY, opN(1), OpEQUALVERIFY, opN(2), OpEQUAL}, true},
		{"nip", []interface{}{opN(1), opN(2), OpNIP, opN(2), OpEQUALVERIFY, OpDEPTH, OpFALSE, OpEQUAL}, true},
		{"ifdup zero", []interface{}{OpFALSE, OpIFDUP, OpDEPTH, opN(1), OpEQUAL}, true},
		{"alt stack", []interface{}{opN(9), OpTOALTSTACK, OpDEPTH, OpFALSE, OpEQUALVERIFY, OpFROMALTSTACK, opN(9), OpEQUAL}, true},
		{"alt stack underflow", []interface{}{OpFROMALTSTACK}, false},
		{"within", []interface{}{opN(3), opN(2), opN(5), OpWITHIN}, true},
		{"within upper bound", []interface{}{opN(5), opN(2), opN(5), OpWITHIN}, false},
		{"min max", []interface{}{opN(3), opN(9), OpMIN, opN(4), OpMAX, opN(4), OpEQUAL}, true},
		{"abs negate", []interface{}{opN(3), OpNEGATE, OpABS, opN(3), OpEQUAL}, true},
		{"not", []interface{}{OpFALSE, OpNOT}, true},
		{"0notequal", []interface{}{opN(4), Op0NOTEQUAL}, true},
		{"booland", []interface{}{opN(1), OpFALSE, OpBOOLAND, OpNOT}, true},
		{"boolor", []interface{}{opN(1), OpFALSE, OpBOOLOR}, true},
		{"comparisons", []interface{}{opN(2), opN(3), OpLESSTHAN, OpVERIFY, opN(3), opN(2), OpGREATERTHAN, OpVERIFY, opN(3), opN(3), OpLESSTHANOREQUAL}, true},
		{"numnotequal", []interface{}{opN(2), opN(3), OpNUMNOTEQUAL}, true},
		{"numequalverify", []interface{}{opN(2), opN(3), OpNUMEQUALVERIFY, OpTRUE}, false},
		{"div", []interface{}{opN(7), opN(2), OpDIV, opN(3), OpEQUAL}, true},
		{"div negative truncates", []interface{}{opN(7), OpNEGATE, opN(2), OpDIV, opN(3), OpNEGATE, OpEQUAL}, true},
		{"mod", []interface{}{opN(7), opN(3), OpMOD, opN(1), OpEQUAL}, true},
		{"div by zero", []interface{}{opN(7), OpFALSE, OpDIV}, false},
		{"mod by zero", []interface{}{opN(7), OpFALSE, OpMOD}, false},
		{"cat split", []interface{}{[]byte{0xaa, 0xbb, 0xcc}, OpTRUE, OpSPLIT, OpCAT, []byte{0xaa, 0xbb, 0xcc}, OpEQUAL}, true},
		{"split parts", []interface{}{[]byte{0xaa, 0xbb, 0xcc}, OpTRUE, OpSPLIT, []byte{0xbb, 0xcc}, OpEQUALVERIFY, []byte{0xaa, 0xbb}, opN(1), OpSPLIT, OpDROP, OpEQUAL}, true},
		{"split out of range", []interface{}{[]byte{0xaa, 0xbb}, opN(3), OpSPLIT}, false},
		{"cat too large", []interface{}{make([]byte, 300), make([]byte, 300), OpCAT}, false},
		{"num2bin", []interface{}{opN(2), opN(4), OpNUM2BIN, []byte{0x02, 0x00, 0x00, 0x00}, OpEQUAL}, true},
		{"num2bin negative", []interface{}{Op1NEGATE, opN(3), OpNUM2BIN, []byte{0x01, 0x00, 0x80}, OpEQUAL}, true},
		{"num2bin too small", []interface{}{[]byte{0x00, 0x01}, opN(1), OpNUM2BIN}, false},
		{"bin2num", []interface{}{[]byte{0x02, 0x00, 0x00, 0x00}, OpBIN2NUM, opN(2), OpEQUAL}, true},
		{"bin2num too large", []interface{}{[]byte{0x01, 0x02, 0x03, 0x04, 0x05}, OpBIN2NUM}, false},
		{"size", []interface{}{[]byte{0xaa, 0xbb, 0xcc}, OpSIZE, opN(3), OpEQUALVERIFY, OpDROP, OpTRUE}, true},
		{"and or xor", []interface{}{[]byte{0x0f, 0xf0}, []byte{0xff, 0x00}, OpAND, []byte{0x0f, 0x00}, OpEQUAL}, true},
		{"xor", []interface{}{[]byte{0x0f, 0xf0}, []byte{0xff, 0x00}, OpXOR, []byte{0xf0, 0xf0}, OpEQUAL}, true},
		{"or", []interface{}{[]byte{0x0f, 0xf0}, []byte{0xff, 0x00}, OpOR, []byte{0xff, 0xf0}, OpEQUAL}, true},
		{"bitwise size mismatch", []interface{}{[]byte{0x0f}, []byte{0xff, 0x00}, OpAND}, false},
		{"hash160", []interface{}{[]byte{0x01, 0x02}, OpHASH160, hash160([]byte{0x01, 0x02}), OpEQUAL}, true},
		{"hash256", []interface{}{[]byte{0x01, 0x02}, OpHASH256, chainhash.DoubleHashB([]byte{0x01, 0x02}), OpEQUAL}, true},
		{"sha256", []interface{}{[]byte{0x01, 0x02}, OpSHA256, OpSIZE, []byte{0x20}, OpEQUALVERIFY, OpDROP, OpTRUE}, true},
		{"non minimal push", []interface{}{OpDATA1, Opcode(0x05)}, false},
		{"non minimal operand", []interface{}{[]byte{0x02, 0x00}, opN(2), OpADD}, false},
		{"arithmetic result exceeds operand size", []interface{}{[]byte{0xff, 0xff, 0xff, 0x7f}, OpDUP, OpADD, OpTRUE, OpADD}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, runLocking(t, tt.parts...))
		})
	}
}

func TestInterpreter_Limits(t *testing.T) {
	nops := func(n int) []interface{} {
		parts := make([]interface{}, 0, n+1)
		for i := 0; i < n; i++ {
			parts = append(parts, OpNOP)
		}

		return append(parts, OpTRUE)
	}

	assert.True(t, runLocking(t, nops(MaxOpsPerScript)...))
	assert.False(t, runLocking(t, nops(MaxOpsPerScript+1)...))

	pushes := func(n int) []interface{} {
		parts := make([]interface{}, 0, n)
		for i := 0; i < n; i++ {
			parts = append(parts, OpTRUE)
		}

		return parts
	}

	assert.True(t, runLocking(t, pushes(MaxStackSize)...))
	assert.False(t, runLocking(t, pushes(MaxStackSize+1)...))

	// a push of more than 520 bytes fails even when it is never used
	assert.True(t, runLocking(t, make([]byte, MaxValueSize), OpDROP, OpTRUE))
	assert.False(t, runLocking(t, make([]byte, MaxValueSize+1), OpDROP, OpTRUE))

	big := make([]byte, MaxScriptSize+1)
	big[0] = byte(OpTRUE)

	for i := 1; i < len(big); i++ {
		big[i] = byte(OpNOP)
	}

	assert.False(t, run(&chaincfg.RegressionNetParams, testHeight, defaultTx(), nil, big))
}

func TestInterpreter_ActivationGating(t *testing.T) {
	beforeMonolith := paramsWith(func(p *chaincfg.Params) { p.HF20180515Height = 5000 })

	cat := build(t, []byte{0xaa}, []byte{0xbb}, OpCAT, []byte{0xaa, 0xbb}, OpEQUAL)
	assert.True(t, run(&chaincfg.RegressionNetParams, testHeight, defaultTx(), nil, cat))
	assert.False(t, run(beforeMonolith, testHeight, defaultTx(), nil, cat))
	assert.True(t, run(beforeMonolith, 5000, defaultTx(), nil, cat))

	beforeMinimalData := paramsWith(func(p *chaincfg.Params) { p.HF20191115Height = 5000 })

	nonMinimal := build(t, OpDATA1, Opcode(0x05), opN(5), OpEQUAL)
	assert.False(t, run(&chaincfg.RegressionNetParams, testHeight, defaultTx(), nil, nonMinimal))
	assert.True(t, run(beforeMinimalData, testHeight, defaultTx(), nil, nonMinimal))

	// push only unlocking scripts are required from the November 2018 upgrade
	beforeSigPushOnly := paramsWith(func(p *chaincfg.Params) { p.HF20181115Height = 5000 })

	unlocking := build(t, OpTRUE, OpDUP)
	locking := build(t, OpEQUAL)
	assert.False(t, run(&chaincfg.RegressionNetParams, testHeight, defaultTx(), unlocking, locking))
	assert.True(t, run(beforeSigPushOnly, testHeight, defaultTx(), unlocking, locking))
}

func TestInterpreter_LockTime(t *testing.T) {
	params := &chaincfg.RegressionNetParams
	lockTime := NewValueFromInteger(100)

	cltv := build(t, lockTime, OpCHECKLOCKTIMEVERIFY, OpDROP, OpTRUE)
	assert.True(t, run(params, testHeight, testTx(1, 100, 0xfffffffe), nil, cltv))
	assert.False(t, run(params, testHeight, testTx(1, 99, 0xfffffffe), nil, cltv))

	// final sequence disables the lock time
	assert.False(t, run(params, testHeight, testTx(1, 100, 0xffffffff), nil, cltv))

	// time based lock against a height based transaction lock time
	timeLock := build(t, NewValueFromInteger(500000001), OpCHECKLOCKTIMEVERIFY, OpDROP, OpTRUE)
	assert.False(t, run(params, testHeight, testTx(1, 100, 0), nil, timeLock))
	assert.True(t, run(params, testHeight, testTx(1, 500000002, 0), nil, timeLock))

	// NOP2 before BIP65
	assert.True(t, run(params, 1000, testTx(1, 0, 0xffffffff), nil, cltv))

	negative := build(t, Op1NEGATE, OpCHECKLOCKTIMEVERIFY, OpDROP, OpTRUE)
	assert.False(t, run(params, testHeight, testTx(1, 100, 0), nil, negative))

	csv := build(t, opN(10), OpCHECKSEQUENCEVERIFY, OpDROP, OpTRUE)
	assert.True(t, run(params, testHeight, testTx(2, 0, 10), nil, csv))
	assert.True(t, run(params, testHeight, testTx(2, 0, 11), nil, csv))
	assert.False(t, run(params, testHeight, testTx(2, 0, 9), nil, csv))
	assert.False(t, run(params, testHeight, testTx(1, 0, 10), nil, csv))
	assert.False(t, run(params, testHeight, testTx(2, 0, 10|1<<31), nil, csv))

	// time based relative lock against a height based sequence
	timeCSV := build(t, NewValueFromInteger(1<<22|10), OpCHECKSEQUENCEVERIFY, OpDROP, OpTRUE)
	assert.False(t, run(params, testHeight, testTx(2, 0, 10), nil, timeCSV))
	assert.True(t, run(params, testHeight, testTx(2, 0, 1<<22|10), nil, timeCSV))

	// disabled operand makes CSV a NOP
	disabled := build(t, NewValueFromInteger(1<<31), OpCHECKSEQUENCEVERIFY, OpDROP, OpTRUE)
	assert.True(t, run(params, testHeight, testTx(1, 0, 0), nil, disabled))

	// NOP3 before CSV
	assert.True(t, run(params, 500, testTx(1, 0, 0), nil, csv))
}

func TestInterpreter_P2PKH(t *testing.T) {
	key := testKey("p2pkh")
	pub := key.PubKey().SerializeCompressed()
	locking := build(t, OpDUP, OpHASH160, hash160(pub), OpEQUALVERIFY, OpCHECKSIG)

	tx := defaultTx()
	sig := signInput(key, tx, locking, forkIDAll, true)
	unlocking := build(t, sig, pub)

	assert.True(t, run(&chaincfg.RegressionNetParams, testHeight, tx, unlocking, locking))

	// a different key does not match the locking hash
	other := testKey("other").PubKey().SerializeCompressed()
	assert.False(t, run(&chaincfg.RegressionNetParams, testHeight, tx, build(t, sig, other), locking))

	// the signature commits to the outputs
	tampered := defaultTx()
	tampered.Outputs[0].Amount++
	assert.False(t, run(&chaincfg.RegressionNetParams, testHeight, tampered, unlocking, locking))

	// FORKID is mandatory once enabled
	legacySig := signInput(key, tx, locking, signature.SigHashAll, false)
	assert.False(t, run(&chaincfg.RegressionNetParams, testHeight, tx, build(t, legacySig, pub), locking))
}

func TestInterpreter_LegacySignature(t *testing.T) {
	params := &chaincfg.MainNetParams
	height := uint32(100000)

	key := testKey("legacy")
	pub := key.PubKey().SerializeUncompressed()
	locking := build(t, pub, OpCHECKSIG)

	tx := testTx(1, 0, 0xffffffff)
	sig := signInput(key, tx, locking, signature.SigHashAll, false)

	assert.True(t, run(params, height, tx, build(t, sig), locking))

	// before the fork a failed check only leaves false on the stack
	wrong := signInput(testKey("wrong"), tx, locking, signature.SigHashAll, false)
	assert.True(t, run(params, height, tx, build(t, wrong), build(t, pub, OpCHECKSIG, OpNOT)))
}

func TestInterpreter_Schnorr(t *testing.T) {
	key := testKey("schnorr")
	pub := key.PubKey().SerializeCompressed()
	locking := build(t, pub, OpCHECKSIG)

	tx := defaultTx()
	sig := signInputSchnorr(key, tx, locking)
	require.Len(t, sig, 65)

	assert.True(t, run(&chaincfg.RegressionNetParams, testHeight, tx, build(t, sig), locking))

	// a 65 byte signature is not Schnorr before activation and is not valid DER
	beforeSchnorr := paramsWith(func(p *chaincfg.Params) { p.HF20190515Height = 5000 })
	assert.False(t, run(beforeSchnorr, testHeight, tx, build(t, sig), locking))
}

func TestInterpreter_MultiSigOrder(t *testing.T) {
	k1, k2, k3 := testKey("k1"), testKey("k2"), testKey("k3")
	p1 := k1.PubKey().SerializeCompressed()
	p2 := k2.PubKey().SerializeCompressed()
	p3 := k3.PubKey().SerializeCompressed()

	locking := build(t, opN(2), p1, p2, p3, opN(3), OpCHECKMULTISIG)

	tx := defaultTx()
	sig1 := signInput(k1, tx, locking, forkIDAll, true)
	sig2 := signInput(k2, tx, locking, forkIDAll, true)
	sig3 := signInput(k3, tx, locking, forkIDAll, true)

	params := &chaincfg.RegressionNetParams

	assert.True(t, run(params, testHeight, tx, build(t, OpFALSE, sig2, sig3), locking))
	assert.True(t, run(params, testHeight, tx, build(t, OpFALSE, sig1, sig3), locking))
	assert.True(t, run(params, testHeight, tx, build(t, OpFALSE, sig1, sig2), locking))

	assert.False(t, run(params, testHeight, tx, build(t, OpFALSE, sig3, sig2), locking))
	assert.False(t, run(params, testHeight, tx, build(t, OpFALSE, sig2, sig1), locking))
	assert.False(t, run(params, testHeight, tx, build(t, OpFALSE, sig1, sig1), locking))

	// missing dummy element
	assert.False(t, run(params, testHeight, tx, build(t, sig2, sig3), locking))

	// all empty signatures fail without tripping NULLFAIL
	notLocking := build(t, opN(2), p1, p2, p3, opN(3), OpCHECKMULTISIG, OpNOT)
	assert.True(t, run(params, testHeight, tx, build(t, OpFALSE, OpFALSE, OpFALSE), notLocking))

	verifyLocking := build(t, opN(1), p1, p2, opN(2), OpCHECKMULTISIGVERIFY, OpTRUE)
	sig2Verify := signInput(k2, tx, verifyLocking, forkIDAll, true)
	assert.True(t, run(params, testHeight, tx, build(t, OpFALSE, sig2Verify), verifyLocking))
}

// Extra stack items and a non-empty CHECKMULTISIG dummy are policy matters,
// not block validity.
func TestInterpreter_AcceptsUncleanStackAndDummy(t *testing.T) {
	params := &chaincfg.RegressionNetParams
	tx := defaultTx()

	locking := build(t, OpTRUE)
	assert.True(t, run(params, testHeight, tx, build(t, []byte{0x07}, []byte{0x08}), locking))

	k1, k2 := testKey("d1"), testKey("d2")
	p1 := k1.PubKey().SerializeCompressed()
	p2 := k2.PubKey().SerializeCompressed()

	multisig := build(t, opN(2), p1, p2, opN(2), OpCHECKMULTISIG)
	sig1 := signInput(k1, tx, multisig, forkIDAll, true)
	sig2 := signInput(k2, tx, multisig, forkIDAll, true)

	assert.True(t, run(params, testHeight, tx, build(t, []byte{0x2a}, sig1, sig2), multisig))
	assert.True(t, run(params, testHeight, tx, build(t, []byte{0x2a}, []byte{0x2b}, sig1, sig2), multisig))
}

func TestInterpreter_MultiSigRejectsSchnorr(t *testing.T) {
	k1, k2 := testKey("m1"), testKey("m2")
	p1 := k1.PubKey().SerializeCompressed()
	p2 := k2.PubKey().SerializeCompressed()

	locking := build(t, opN(1), p1, p2, opN(2), OpCHECKMULTISIG)

	tx := defaultTx()
	schnorrSig := signInputSchnorr(k1, tx, locking)
	ecdsaSig := signInput(k1, tx, locking, forkIDAll, true)

	assert.True(t, run(&chaincfg.RegressionNetParams, testHeight, tx, build(t, OpFALSE, ecdsaSig), locking))
	assert.False(t, run(&chaincfg.RegressionNetParams, testHeight, tx, build(t, OpFALSE, schnorrSig), locking))

	notLocking := build(t, opN(1), p1, p2, opN(2), OpCHECKMULTISIG, OpNOT)
	assert.False(t, run(&chaincfg.RegressionNetParams, testHeight, tx, build(t, OpFALSE, schnorrSig), notLocking))
}

func TestInterpreter_NullFail(t *testing.T) {
	key := testKey("nullfail")
	pub := key.PubKey().SerializeCompressed()
	locking := build(t, pub, OpCHECKSIG, OpNOT)

	tx := defaultTx()
	wrongSig := signInput(testKey("somebody else"), tx, locking, forkIDAll, true)

	params := &chaincfg.RegressionNetParams

	// an empty signature fails the check without failing the script
	assert.True(t, run(params, testHeight, tx, build(t, OpFALSE), locking))

	// a non empty failing signature fails the script
	assert.False(t, run(params, testHeight, tx, build(t, wrongSig), locking))

	beforeNullFail := paramsWith(func(p *chaincfg.Params) { p.HF20171113Height = 5000 })
	assert.True(t, run(beforeNullFail, testHeight, tx, build(t, wrongSig), locking))

	// CHECKSIGVERIFY fails on the empty signature too
	verifyLocking := build(t, pub, OpCHECKSIGVERIFY, OpTRUE)
	assert.False(t, run(params, testHeight, tx, build(t, OpFALSE), verifyLocking))
}

func TestInterpreter_StrictEncoding(t *testing.T) {
	key := testKey("strict")
	pub := key.PubKey().SerializeCompressed()
	locking := build(t, pub, OpCHECKSIG, OpNOT)

	tx := defaultTx()
	sig := signInput(key, tx, locking, forkIDAll, true)

	// undefined hash type
	badHashType := append(append([]byte{}, sig[:len(sig)-1]...), 0x44)
	assert.False(t, run(&chaincfg.RegressionNetParams, testHeight, tx, build(t, badHashType), locking))

	// hybrid public keys are not strictly encoded
	hybrid := key.PubKey().SerializeUncompressed()
	hybrid[0] = 0x06 | (hybrid[64] & 0x01)
	assert.False(t, run(&chaincfg.RegressionNetParams, testHeight, tx, build(t, OpFALSE), build(t, hybrid, OpCHECKSIG, OpNOT)))
}

func TestInterpreter_LowS(t *testing.T) {
	params := &chaincfg.MainNetParams

	key := testKey("low s")
	pub := key.PubKey().SerializeCompressed()
	locking := build(t, pub, OpCHECKSIG)

	tx := defaultTx()

	t.Run("high S verifies before the fork", func(t *testing.T) {
		sig := signInput(key, tx, locking, signature.SigHashAll, false)
		assert.True(t, run(params, 100000, tx, build(t, sig), locking))
		assert.True(t, run(params, 100000, tx, build(t, withHighS(t, sig)), locking))
	})

	t.Run("high S fails from the fork on, before NULLFAIL", func(t *testing.T) {
		height := uint32(params.Buip55Height) + 1
		require.False(t, params.IsHF20171113Enabled(height))

		sig := signInput(key, tx, locking, forkIDAll, true)
		assert.True(t, run(params, height, tx, build(t, sig), locking))
		assert.False(t, run(params, height, tx, build(t, withHighS(t, sig)), locking))
	})
}

// withHighS replaces S of a DER signature with hash type by n - S, which
// verifies against the same digest and key.
func withHighS(t *testing.T, sig []byte) []byte {
	t.Helper()

	lenR := int(sig[3])
	r := sig[4 : 4+lenR]
	lenS := int(sig[5+lenR])

	var s secp256k1.ModNScalar
	require.False(t, s.SetByteSlice(sig[6+lenR:6+lenR+lenS]))
	require.False(t, s.IsOverHalfOrder())
	s.Negate()

	sBytes := s.Bytes()
	high := sBytes[:]

	for len(high) > 1 && high[0] == 0 && high[1]&0x80 == 0 {
		high = high[1:]
	}

	if high[0]&0x80 != 0 {
		high = append([]byte{0}, high...)
	}

	der := []byte{0x30, byte(4 + len(r) + len(high)), 0x02, byte(len(r))}
	der = append(der, r...)
	der = append(der, 0x02, byte(len(high)))
	der = append(der, high...)

	return append(der, sig[len(sig)-1])
}

func TestInterpreter_CheckDataSig(t *testing.T) {
	key := testKey("datasig")
	pub := key.PubKey().SerializeCompressed()
	message := []byte("a message")
	digest := sha256.Sum256(message)

	ecdsaSig := signature.SignECDSA(key, digest[:])
	schnorrSig := signature.SignSchnorr(key, digest[:])

	params := &chaincfg.RegressionNetParams

	assert.True(t, runLocking(t, ecdsaSig, message, pub, OpCHECKDATASIG))
	assert.True(t, runLocking(t, schnorrSig, message, pub, OpCHECKDATASIG))
	assert.True(t, runLocking(t, ecdsaSig, message, pub, OpCHECKDATASIGVERIFY, OpTRUE))

	// NULLFAIL always applies
	assert.False(t, runLocking(t, ecdsaSig, []byte("other"), pub, OpCHECKDATASIG, OpNOT))
	assert.True(t, runLocking(t, OpFALSE, message, pub, OpCHECKDATASIG, OpNOT))

	beforeDataSig := paramsWith(func(p *chaincfg.Params) { p.HF20181115Height = 5000 })
	locking := build(t, ecdsaSig, message, pub, OpCHECKDATASIG)
	assert.False(t, run(beforeDataSig, testHeight, defaultTx(), nil, locking))
	assert.True(t, run(params, testHeight, defaultTx(), nil, locking))
}

func TestInterpreter_CodeSeparator(t *testing.T) {
	key := testKey("codesep")
	pub := key.PubKey().SerializeCompressed()
	locking := build(t, OpTRUE, OpDROP, OpCODESEPARATOR, pub, OpCHECKSIG)

	tx := defaultTx()

	// the signed script starts after the separator
	afterSeparator := build(t, pub, OpCHECKSIG)
	assert.True(t, run(&chaincfg.RegressionNetParams, testHeight, tx, build(t, signInput(key, tx, afterSeparator, forkIDAll, true)), locking))
	assert.False(t, run(&chaincfg.RegressionNetParams, testHeight, tx, build(t, signInput(key, tx, locking, forkIDAll, true)), locking))

	ctx := NewContext(&chaincfg.RegressionNetParams, testHeight, tx, 0, &model.Output{Amount: testAmount}, nil)
	s := Parse(locking)
	require.True(t, NewInterpreter().execute(s, func() *Stack {
		st := NewStack()
		st.Push(signInput(key, tx, afterSeparator, forkIDAll, true))

		return st
	}(), ctx))
	assert.Equal(t, 3, ctx.LastCodeSeparatorIndex())
	assert.Equal(t, s, ctx.CurrentScript())
	assert.Equal(t, 5, ctx.ScriptIndex())
}

func TestInterpreter_P2SH(t *testing.T) {
	redeem := build(t, opN(5), OpEQUAL)
	locking := build(t, OpHASH160, hash160(redeem), OpEQUAL)

	params := &chaincfg.RegressionNetParams

	assert.True(t, run(params, testHeight, defaultTx(), build(t, opN(5), redeem), locking))
	assert.False(t, run(params, testHeight, defaultTx(), build(t, opN(4), redeem), locking))

	// wrong redeem script
	assert.False(t, run(params, testHeight, defaultTx(), build(t, opN(5), build(t, opN(4), OpEQUAL)), locking))

	// before BIP16 only the hash is checked
	beforeP2SH := paramsWith(func(p *chaincfg.Params) { p.BIP0016Height = 5000; p.HF20181115Height = 5000 })
	assert.True(t, run(beforeP2SH, testHeight, defaultTx(), build(t, opN(4), redeem), locking))

	// P2SH with a signature check in the redeem script
	key := testKey("p2sh")
	pub := key.PubKey().SerializeCompressed()
	redeem = build(t, pub, OpCHECKSIG)
	locking = build(t, OpHASH160, hash160(redeem), OpEQUAL)

	tx := defaultTx()
	sig := signInput(key, tx, redeem, forkIDAll, true)
	assert.True(t, run(params, testHeight, tx, build(t, sig, redeem), locking))
}

func TestInterpreter_ParseErrorFails(t *testing.T) {
	assert.False(t, run(&chaincfg.RegressionNetParams, testHeight, defaultTx(), nil, []byte{byte(OpTRUE), 0x05, 0x01}))
	assert.False(t, NewInterpreter().RunScripts(nil, Parse([]byte{byte(OpTRUE)}), nil))
}
