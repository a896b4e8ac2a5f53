package pskt_test

import (
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/koyotecoin/koyotecoin/pskt"
)

func TestAnalyzePSKTInputMissingUTXO(t *testing.T) {
	p := newSimplePacket(t)
	p.Inputs[0].WitnessUtxo = nil

	res, err := pskt.AnalyzePSKTInput(p, 0)
	require.NoError(t, err)
	require.False(t, res.HasUTXO)
	require.Equal(t, "utxo", res.Missing)
	require.Equal(t, pskt.RoleUpdater, res.NextRole)
}

func TestAnalyzePSKTInputFinalized(t *testing.T) {
	p := newP2WPKHPacket(t)
	pub := make([]byte, 33)
	pub[0] = 0x02
	p.Inputs[0].PartialSigs[string(pub)] = []byte("fake-signature-bytes")
	require.NoError(t, pskt.FinalizePSKTInput(p, 0))

	res, err := pskt.AnalyzePSKTInput(p, 0)
	require.NoError(t, err)
	require.True(t, res.IsFinal)
	require.Equal(t, pskt.RoleExtractor, res.NextRole)
}

func TestAnalyzePSKTInputMissingSigsDoesNotMutatePacket(t *testing.T) {
	p := newP2WPKHPacket(t)

	res, err := pskt.AnalyzePSKTInput(p, 0)
	require.NoError(t, err)
	require.Equal(t, "sigs", res.Missing)
	require.Equal(t, pskt.RoleSigner, res.NextRole)
	require.False(t, p.Inputs[0].IsFinalized())
	require.Nil(t, p.Inputs[0].FinalScriptWitness)
}

func TestAnalyzePSKTInputMissingRedeemScriptNeedsUpdater(t *testing.T) {
	p := newSimplePacket(t)
	pkScript := append([]byte{0xa9, 0x14}, make([]byte, 20)...)
	pkScript = append(pkScript, 0x87)
	p.Inputs[0].WitnessUtxo = &wire.TxOut{Value: 100000, PkScript: pkScript}

	res, err := pskt.AnalyzePSKTInput(p, 0)
	require.NoError(t, err)
	require.Equal(t, "redeemscript", res.Missing)
	require.Equal(t, pskt.RoleUpdater, res.NextRole)
}

func TestAnalyzePSKTComputesNextRoleAsMinimum(t *testing.T) {
	p := newP2WPKHPacket(t)
	require.NoError(t, p.AddInput(newTestOutpoint(2), 0))
	p.Inputs[1].WitnessUtxo = &wire.TxOut{Value: 200000, PkScript: p.Inputs[0].WitnessUtxo.PkScript}

	analysis, err := pskt.AnalyzePSKT(p, pskt.DefaultAnalyzerOptions())
	require.NoError(t, err)
	require.Equal(t, pskt.RoleSigner, analysis.NextRole)
	require.False(t, analysis.IsFinal)
}

func TestAnalyzePSKTComputesFeeWhenAllUTXOsKnown(t *testing.T) {
	p := newSimplePacket(t)

	analysis, err := pskt.AnalyzePSKT(p, pskt.DefaultAnalyzerOptions())
	require.NoError(t, err)
	require.True(t, analysis.HasFee)
	require.Equal(t, int64(100000-50000), analysis.Fee)
	require.Greater(t, analysis.EstimatedVSize, int64(0))
	require.Greater(t, analysis.FeeRate, float64(0))
}

func TestAnalyzePSKTSkipsFeeWhenUTXOMissing(t *testing.T) {
	p := newSimplePacket(t)
	p.Inputs[0].WitnessUtxo = nil

	analysis, err := pskt.AnalyzePSKT(p, pskt.DefaultAnalyzerOptions())
	require.NoError(t, err)
	require.False(t, analysis.HasFee)
}

func TestAnalyzePSKTVSizeCountsRealWitnessBytes(t *testing.T) {
	unsigned := newP2WPKHPacket(t)
	unsignedAnalysis, err := pskt.AnalyzePSKT(unsigned, pskt.DefaultAnalyzerOptions())
	require.NoError(t, err)

	signed := newP2WPKHPacket(t)
	pub := make([]byte, 33)
	pub[0] = 0x02
	signed.Inputs[0].PartialSigs[string(pub)] = []byte("fake-signature-bytes")
	require.NoError(t, pskt.FinalizePSKTInput(signed, 0))

	signedAnalysis, err := pskt.AnalyzePSKT(signed, pskt.DefaultAnalyzerOptions())
	require.NoError(t, err)

	require.Greater(t, signedAnalysis.EstimatedVSize, unsignedAnalysis.EstimatedVSize)
}
