package pskt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/koyotecoin/koyotecoin/pskt"
)

func TestExtractIncompleteFails(t *testing.T) {
	p := newP2WPKHPacket(t)
	_, err := pskt.Extract(p)
	require.ErrorIs(t, err, pskt.ErrIncomplete)
}

func TestFinalizeAndExtract(t *testing.T) {
	p := newP2WPKHPacket(t)
	pub := make([]byte, 33)
	pub[0] = 0x02
	p.Inputs[0].PartialSigs[string(pub)] = []byte("fake-signature-bytes")

	tx, err := pskt.FinalizeAndExtractPSKT(p)
	require.NoError(t, err)
	require.Len(t, tx.TxIn[0].Witness, 2)
	require.True(t, p.IsComplete())
}

func TestExtractCopiesFinalDataOntoUnsignedTx(t *testing.T) {
	p := newP2WPKHPacket(t)
	pub := make([]byte, 33)
	pub[0] = 0x02
	p.Inputs[0].PartialSigs[string(pub)] = []byte("fake-signature-bytes")
	require.NoError(t, pskt.FinalizePSKTInput(p, 0))

	tx, err := pskt.Extract(p)
	require.NoError(t, err)
	require.Equal(t, p.Inputs[0].FinalScriptSig, tx.TxIn[0].SignatureScript)
	require.Equal(t, len(p.Inputs[0].FinalScriptWitness), len(tx.TxIn[0].Witness))
	require.Equal(t, p.UnsignedTx.TxHash(), tx.TxHash())
}
