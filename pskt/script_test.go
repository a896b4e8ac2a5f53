package pskt

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"
)

func TestExtractKeyOrderFromScript(t *testing.T) {
	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_2)
	pubA := append([]byte{0x02}, make([]byte, 32)...)
	pubB := append([]byte{0x03}, make([]byte, 32)...)
	pubB[1] = 0x01
	builder.AddData(pubA)
	builder.AddData(pubB)
	builder.AddOp(txscript.OP_2)
	builder.AddOp(txscript.OP_CHECKMULTISIG)
	script, err := builder.Script()
	require.NoError(t, err)

	sigA := []byte("sigA")
	sigB := []byte("sigB")

	ordered, err := extractKeyOrderFromScript(script, [][]byte{pubB, pubA}, [][]byte{sigB, sigA})
	require.NoError(t, err)
	require.Equal(t, [][]byte{sigA, sigB}, ordered)
}

func TestExtractKeyOrderFromScriptRejectsWrongCount(t *testing.T) {
	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_2)
	pubA := append([]byte{0x02}, make([]byte, 32)...)
	pubB := append([]byte{0x03}, make([]byte, 32)...)
	builder.AddData(pubA)
	builder.AddData(pubB)
	builder.AddOp(txscript.OP_2)
	builder.AddOp(txscript.OP_CHECKMULTISIG)
	script, err := builder.Script()
	require.NoError(t, err)

	_, err = extractKeyOrderFromScript(script, [][]byte{pubA}, [][]byte{[]byte("sigA")})
	require.ErrorIs(t, err, ErrUnsupportedScriptType)
}

func TestCheckRedeemScriptHash(t *testing.T) {
	redeem := []byte{0x51}
	h := hash160(redeem)
	scriptPubKey := append([]byte{txscript.OP_HASH160, 0x14}, h...)
	scriptPubKey = append(scriptPubKey, txscript.OP_EQUAL)

	require.NoError(t, checkRedeemScriptHash(scriptPubKey, redeem))
	require.ErrorIs(t, checkRedeemScriptHash(scriptPubKey, []byte{0x52}), ErrRedeemScriptMismatch)
}

func TestCheckWitnessScriptHash(t *testing.T) {
	witnessScript := []byte{0x51}
	sum := chainhash.HashB(witnessScript)
	program := append([]byte{txscript.OP_0, 0x20}, sum...)

	require.NoError(t, checkWitnessScriptHash(program, witnessScript))
	require.ErrorIs(t, checkWitnessScriptHash(program, []byte{0x52}), ErrWitnessScriptMismatch)
}

func TestClassifyScriptRecognizesTaproot(t *testing.T) {
	pkScript := append([]byte{txscript.OP_1, 0x20}, make([]byte, 32)...)
	require.Equal(t, txscript.WitnessV1TaprootTy, classifyScript(pkScript))
}

func TestClassifyScriptFallsBackToStandardClasses(t *testing.T) {
	pkScript := append([]byte{txscript.OP_0, 0x14}, make([]byte, 20)...)
	require.Equal(t, txscript.WitnessV0PubKeyHashTy, classifyScript(pkScript))
}
