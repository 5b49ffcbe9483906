package script

import "fmt"

// Opcode is a single script instruction byte.
type Opcode byte

const (
	OpFALSE     Opcode = 0x00
	OpDATA1     Opcode = 0x01
	OpDATA75    Opcode = 0x4b
	OpPUSHDATA1 Opcode = 0x4c
	OpPUSHDATA2 Opcode = 0x4d
	OpPUSHDATA4 Opcode = 0x4e
	Op1NEGATE   Opcode = 0x4f
	OpRESERVED  Opcode = 0x50
	OpTRUE      Opcode = 0x51
	Op2         Opcode = 0x52
	Op3         Opcode = 0x53
	Op16        Opcode = 0x60

	OpNOP      Opcode = 0x61
	OpVER      Opcode = 0x62
	OpIF       Opcode = 0x63
	OpNOTIF    Opcode = 0x64
	OpVERIF    Opcode = 0x65
	OpVERNOTIF Opcode = 0x66
	OpELSE     Opcode = 0x67
	OpENDIF    Opcode = 0x68
	OpVERIFY   Opcode = 0x69
	OpRETURN   Opcode = 0x6a

	OpTOALTSTACK   Opcode = 0x6b
	OpFROMALTSTACK Opcode = 0x6c
	Op2DROP        Opcode = 0x6d
	Op2DUP         Opcode = 0x6e
	Op3DUP         Opcode = 0x6f
	Op2OVER        Opcode = 0x70
	Op2ROT         Opcode = 0x71
	Op2SWAP        Opcode = 0x72
	OpIFDUP        Opcode = 0x73
	OpDEPTH        Opcode = 0x74
	OpDROP         Opcode = 0x75
	OpDUP          Opcode = 0x76
	OpNIP          Opcode = 0x77
	OpOVER         Opcode = 0x78
	OpPICK         Opcode = 0x79
	OpROLL         Opcode = 0x7a
	OpROT          Opcode = 0x7b
	OpSWAP         Opcode = 0x7c
	OpTUCK         Opcode = 0x7d

	OpCAT     Opcode = 0x7e
	OpSPLIT   Opcode = 0x7f
	OpNUM2BIN Opcode = 0x80
	OpBIN2NUM Opcode = 0x81
	OpSIZE    Opcode = 0x82

	OpINVERT      Opcode = 0x83
	OpAND         Opcode = 0x84
	OpOR          Opcode = 0x85
	OpXOR         Opcode = 0x86
	OpEQUAL       Opcode = 0x87
	OpEQUALVERIFY Opcode = 0x88
	OpRESERVED1   Opcode = 0x89
	OpRESERVED2   Opcode = 0x8a

	Op1ADD               Opcode = 0x8b
	Op1SUB               Opcode = 0x8c
	Op2MUL               Opcode = 0x8d
	Op2DIV               Opcode = 0x8e
	OpNEGATE             Opcode = 0x8f
	OpABS                Opcode = 0x90
	OpNOT                Opcode = 0x91
	Op0NOTEQUAL          Opcode = 0x92
	OpADD                Opcode = 0x93
	OpSUB                Opcode = 0x94
	OpMUL                Opcode = 0x95
	OpDIV                Opcode = 0x96
	OpMOD                Opcode = 0x97
	OpLSHIFT             Opcode = 0x98
	OpRSHIFT             Opcode = 0x99
	OpBOOLAND            Opcode = 0x9a
	OpBOOLOR             Opcode = 0x9b
	OpNUMEQUAL           Opcode = 0x9c
	OpNUMEQUALVERIFY     Opcode = 0x9d
	OpNUMNOTEQUAL        Opcode = 0x9e
	OpLESSTHAN           Opcode = 0x9f
	OpGREATERTHAN        Opcode = 0xa0
	OpLESSTHANOREQUAL    Opcode = 0xa1
	OpGREATERTHANOREQUAL Opcode = 0xa2
	OpMIN                Opcode = 0xa3
	OpMAX                Opcode = 0xa4
	OpWITHIN             Opcode = 0xa5

	OpRIPEMD160           Opcode = 0xa6
	OpSHA1                Opcode = 0xa7
	OpSHA256              Opcode = 0xa8
	OpHASH160             Opcode = 0xa9
	OpHASH256             Opcode = 0xaa
	OpCODESEPARATOR       Opcode = 0xab
	OpCHECKSIG            Opcode = 0xac
	OpCHECKSIGVERIFY      Opcode = 0xad
	OpCHECKMULTISIG       Opcode = 0xae
	OpCHECKMULTISIGVERIFY Opcode = 0xaf

	OpNOP1                Opcode = 0xb0
	OpCHECKLOCKTIMEVERIFY Opcode = 0xb1
	OpCHECKSEQUENCEVERIFY Opcode = 0xb2
	OpNOP4                Opcode = 0xb3
	OpNOP10               Opcode = 0xb9

	OpCHECKDATASIG       Opcode = 0xba
	OpCHECKDATASIGVERIFY Opcode = 0xbb
)

// Kind groups opcodes by the part of the interpreter that executes them.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPushValue
	KindFlowControl
	KindStack
	KindSplice
	KindBitwise
	KindComparison
	KindArithmetic
	KindCryptographic
	KindLockTime
	KindNop
	KindDisabled
)

var kindNames = [...]string{
	KindInvalid:       "invalid",
	KindPushValue:     "push",
	KindFlowControl:   "flow",
	KindStack:         "stack",
	KindSplice:        "splice",
	KindBitwise:       "bitwise",
	KindComparison:    "comparison",
	KindArithmetic:    "arithmetic",
	KindCryptographic: "cryptographic",
	KindLockTime:      "locktime",
	KindNop:           "nop",
	KindDisabled:      "disabled",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return fmt.Sprintf("Kind(%d)", uint8(k))
}

var opcodeKinds [256]Kind

var opcodeNames = map[Opcode]string{
	OpFALSE: "OP_0", OpPUSHDATA1: "OP_PUSHDATA1", OpPUSHDATA2: "OP_PUSHDATA2", OpPUSHDATA4: "OP_PUSHDATA4",
	Op1NEGATE: "OP_1NEGATE", OpRESERVED: "OP_RESERVED",
	OpNOP: "OP_NOP", OpVER: "OP_VER", OpIF: "OP_IF", OpNOTIF: "OP_NOTIF", OpVERIF: "OP_VERIF", OpVERNOTIF: "OP_VERNOTIF",
	OpELSE: "OP_ELSE", OpENDIF: "OP_ENDIF", OpVERIFY: "OP_VERIFY", OpRETURN: "OP_RETURN",
	OpTOALTSTACK: "OP_TOALTSTACK", OpFROMALTSTACK: "OP_FROMALTSTACK", Op2DROP: "OP_2DROP", Op2DUP: "OP_2DUP",
	Op3DUP: "OP_3DUP", Op2OVER: "OP_2OVER", Op2ROT: "OP_2ROT", Op2SWAP: "OP_2SWAP", OpIFDUP: "OP_IFDUP",
	OpDEPTH: "OP_DEPTH", OpDROP: "OP_DROP", OpDUP: "OP_DUP", OpNIP: "OP_NIP", OpOVER: "OP_OVER", OpPICK: "OP_PICK",
	OpROLL: "OP_ROLL", OpROT: "OP_ROT", OpSWAP: "OP_SWAP", OpTUCK: "OP_TUCK",
	OpCAT: "OP_CAT", OpSPLIT: "OP_SPLIT", OpNUM2BIN: "OP_NUM2BIN", OpBIN2NUM: "OP_BIN2NUM", OpSIZE: "OP_SIZE",
	OpINVERT: "OP_INVERT", OpAND: "OP_AND", OpOR: "OP_OR", OpXOR: "OP_XOR", OpEQUAL: "OP_EQUAL",
	OpEQUALVERIFY: "OP_EQUALVERIFY", OpRESERVED1: "OP_RESERVED1", OpRESERVED2: "OP_RESERVED2",
	Op1ADD: "OP_1ADD", Op1SUB: "OP_1SUB", Op2MUL: "OP_2MUL", Op2DIV: "OP_2DIV", OpNEGATE: "OP_NEGATE",
	OpABS: "OP_ABS", OpNOT: "OP_NOT", Op0NOTEQUAL: "OP_0NOTEQUAL", OpADD: "OP_ADD", OpSUB: "OP_SUB",
	OpMUL: "OP_MUL", OpDIV: "OP_DIV", OpMOD: "OP_MOD", OpLSHIFT: "OP_LSHIFT", OpRSHIFT: "OP_RSHIFT",
	OpBOOLAND: "OP_BOOLAND", OpBOOLOR: "OP_BOOLOR", OpNUMEQUAL: "OP_NUMEQUAL", OpNUMEQUALVERIFY: "OP_NUMEQUALVERIFY",
	OpNUMNOTEQUAL: "OP_NUMNOTEQUAL", OpLESSTHAN: "OP_LESSTHAN", OpGREATERTHAN: "OP_GREATERTHAN",
	OpLESSTHANOREQUAL: "OP_LESSTHANOREQUAL", OpGREATERTHANOREQUAL: "OP_GREATERTHANOREQUAL",
	OpMIN: "OP_MIN", OpMAX: "OP_MAX", OpWITHIN: "OP_WITHIN",
	OpRIPEMD160: "OP_RIPEMD160", OpSHA1: "OP_SHA1", OpSHA256: "OP_SHA256", OpHASH160: "OP_HASH160",
	OpHASH256: "OP_HASH256", OpCODESEPARATOR: "OP_CODESEPARATOR", OpCHECKSIG: "OP_CHECKSIG",
	OpCHECKSIGVERIFY: "OP_CHECKSIGVERIFY", OpCHECKMULTISIG: "OP_CHECKMULTISIG",
	OpCHECKMULTISIGVERIFY: "OP_CHECKMULTISIGVERIFY", OpNOP1: "OP_NOP1",
	OpCHECKLOCKTIMEVERIFY: "OP_CHECKLOCKTIMEVERIFY", OpCHECKSEQUENCEVERIFY: "OP_CHECKSEQUENCEVERIFY",
	OpCHECKDATASIG: "OP_CHECKDATASIG", OpCHECKDATASIGVERIFY: "OP_CHECKDATASIGVERIFY",
}

func init() {
	for op := OpFALSE; op <= OpPUSHDATA4; op++ {
		opcodeKinds[op] = KindPushValue
	}

	opcodeKinds[Op1NEGATE] = KindPushValue

	for op := OpTRUE; op <= Op16; op++ {
		opcodeKinds[op] = KindPushValue
		opcodeNames[op] = fmt.Sprintf("OP_%d", op-OpTRUE+1)
	}

	for _, op := range []Opcode{OpNOP, OpIF, OpNOTIF, OpELSE, OpENDIF, OpVERIFY, OpRETURN} {
		opcodeKinds[op] = KindFlowControl
	}

	for op := OpTOALTSTACK; op <= OpTUCK; op++ {
		opcodeKinds[op] = KindStack
	}

	for _, op := range []Opcode{OpCAT, OpSPLIT, OpNUM2BIN, OpBIN2NUM, OpSIZE} {
		opcodeKinds[op] = KindSplice
	}

	for _, op := range []Opcode{OpAND, OpOR, OpXOR} {
		opcodeKinds[op] = KindBitwise
	}

	opcodeKinds[OpEQUAL] = KindComparison
	opcodeKinds[OpEQUALVERIFY] = KindComparison

	for op := Op1ADD; op <= OpWITHIN; op++ {
		opcodeKinds[op] = KindArithmetic
	}

	for op := OpRIPEMD160; op <= OpCHECKMULTISIGVERIFY; op++ {
		opcodeKinds[op] = KindCryptographic
	}

	opcodeKinds[OpCHECKDATASIG] = KindCryptographic
	opcodeKinds[OpCHECKDATASIGVERIFY] = KindCryptographic

	opcodeKinds[OpCHECKLOCKTIMEVERIFY] = KindLockTime
	opcodeKinds[OpCHECKSEQUENCEVERIFY] = KindLockTime

	opcodeKinds[OpNOP1] = KindNop
	for op := OpNOP4; op <= OpNOP10; op++ {
		opcodeKinds[op] = KindNop
		opcodeNames[op] = fmt.Sprintf("OP_NOP%d", op-OpNOP4+4)
	}

	for _, op := range []Opcode{OpINVERT, Op2MUL, Op2DIV, OpMUL, OpLSHIFT, OpRSHIFT} {
		opcodeKinds[op] = KindDisabled
	}
}

// KindOf returns the kind of op.  Opcodes without a meaning, including the
// reserved ones, are KindInvalid and fail when executed.
func KindOf(op Opcode) Kind {
	return opcodeKinds[op]
}

func (op Opcode) String() string {
	if op >= OpDATA1 && op <= OpDATA75 {
		return fmt.Sprintf("OP_DATA_%d", op)
	}

	if name, ok := opcodeNames[op]; ok {
		return name
	}

	return fmt.Sprintf("OP_UNKNOWN%d", op)
}

// IsPush reports whether op pushes a value: the data pushes, OP_1NEGATE,
// OP_1 to OP_16 and OP_RESERVED.
func (op Opcode) IsPush() bool {
	return op <= Op16
}
