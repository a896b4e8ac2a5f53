package rpc_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/koyotecoin/koyotecoin/pskt"
	"github.com/koyotecoin/koyotecoin/rpc"
)

func testOutpoint(b byte) wire.OutPoint {
	var h chainhash.Hash
	h[0] = b
	return wire.OutPoint{Hash: h, Index: 0}
}

func TestCreatePSKTDecodePSKTRoundTrip(t *testing.T) {
	b64, err := rpc.CreatePSKT(
		[]rpc.TxInput{{Hash: testOutpoint(1), Sequence: wire.MaxTxInSequenceNum}},
		[]rpc.TxOutput{{PkScript: []byte{0x51}, Value: 50000}},
		0, 2,
	)
	require.NoError(t, err)
	require.NotEmpty(t, b64)

	decoded, err := rpc.DecodePSKT(b64)
	require.NoError(t, err)
	require.Equal(t, 1, decoded.Tx.VinCount)
	require.Equal(t, 1, decoded.Tx.VoutCount)
	require.Len(t, decoded.Inputs, 1)
	require.Len(t, decoded.Outputs, 1)
}

func TestConvertToPSKTStripsSignatureData(t *testing.T) {
	tx := wire.NewMsgTx(2)
	op := testOutpoint(1)
	tx.AddTxIn(wire.NewTxIn(&op, []byte{0x01}, nil))
	tx.AddTxOut(wire.NewTxOut(1000, []byte{0x51}))

	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))

	b64, err := rpc.ConvertToPSKT(buf.Bytes())
	require.NoError(t, err)

	decoded, err := rpc.DecodePSKT(b64)
	require.NoError(t, err)
	require.Equal(t, 1, decoded.Tx.VinCount)
}

func TestCombinePSKTUnionsSignatures(t *testing.T) {
	b64, err := rpc.CreatePSKT(
		[]rpc.TxInput{{Hash: testOutpoint(1), Sequence: wire.MaxTxInSequenceNum}},
		[]rpc.TxOutput{{PkScript: []byte{0x51}, Value: 50000}},
		0, 2,
	)
	require.NoError(t, err)

	pA, err := pskt.B64Decode(b64)
	require.NoError(t, err)
	pA.Inputs[0].PartialSigs["pubkeyA"] = []byte("sigA")
	rawA, err := pskt.B64Encode(pA)
	require.NoError(t, err)

	pB, err := pskt.B64Decode(b64)
	require.NoError(t, err)
	pB.Inputs[0].PartialSigs["pubkeyB"] = []byte("sigB")
	rawB, err := pskt.B64Encode(pB)
	require.NoError(t, err)

	combined, err := rpc.CombinePSKT([]string{rawA, rawB})
	require.NoError(t, err)

	decoded, err := pskt.B64Decode(combined)
	require.NoError(t, err)
	require.Len(t, decoded.Inputs[0].PartialSigs, 2)
}

func TestJoinPSKTsRejectsDuplicateOutpoints(t *testing.T) {
	b64, err := rpc.CreatePSKT(
		[]rpc.TxInput{{Hash: testOutpoint(1), Sequence: wire.MaxTxInSequenceNum}},
		[]rpc.TxOutput{{PkScript: []byte{0x51}, Value: 50000}},
		0, 2,
	)
	require.NoError(t, err)

	_, err = rpc.JoinPSKTs([]string{b64, b64}, nil)
	require.Error(t, err)
	var rpcErr *rpc.Error
	require.ErrorAs(t, err, &rpcErr)
}

func TestJoinPSKTsConcatenatesDisjointInputs(t *testing.T) {
	b64A, err := rpc.CreatePSKT(
		[]rpc.TxInput{{Hash: testOutpoint(1), Sequence: wire.MaxTxInSequenceNum}},
		[]rpc.TxOutput{{PkScript: []byte{0x51}, Value: 50000}},
		0, 2,
	)
	require.NoError(t, err)
	b64B, err := rpc.CreatePSKT(
		[]rpc.TxInput{{Hash: testOutpoint(2), Sequence: wire.MaxTxInSequenceNum}},
		[]rpc.TxOutput{{PkScript: []byte{0x52}, Value: 60000}},
		0, 2,
	)
	require.NoError(t, err)

	joined, err := rpc.JoinPSKTs([]string{b64A, b64B}, nil)
	require.NoError(t, err)

	decoded, err := pskt.B64Decode(joined)
	require.NoError(t, err)
	require.Len(t, decoded.Inputs, 2)
	require.Len(t, decoded.Outputs, 2)
}

func TestJoinPSKTsTakesMaxVersionAndMinLocktime(t *testing.T) {
	b64A, err := rpc.CreatePSKT(
		[]rpc.TxInput{{Hash: testOutpoint(1), Sequence: wire.MaxTxInSequenceNum}},
		[]rpc.TxOutput{{PkScript: []byte{0x51}, Value: 50000}},
		500, 1,
	)
	require.NoError(t, err)
	b64B, err := rpc.CreatePSKT(
		[]rpc.TxInput{{Hash: testOutpoint(2), Sequence: wire.MaxTxInSequenceNum}},
		[]rpc.TxOutput{{PkScript: []byte{0x52}, Value: 60000}},
		200, 2,
	)
	require.NoError(t, err)

	joined, err := rpc.JoinPSKTs([]string{b64A, b64B}, nil)
	require.NoError(t, err)

	decoded, err := pskt.B64Decode(joined)
	require.NoError(t, err)
	require.EqualValues(t, 2, decoded.UnsignedTx.Version)
	require.EqualValues(t, 200, decoded.UnsignedTx.LockTime)
}

func TestJoinPSKTsMergesGlobalXpubs(t *testing.T) {
	b64A, err := rpc.CreatePSKT(
		[]rpc.TxInput{{Hash: testOutpoint(1), Sequence: wire.MaxTxInSequenceNum}},
		[]rpc.TxOutput{{PkScript: []byte{0x51}, Value: 50000}},
		0, 2,
	)
	require.NoError(t, err)
	pA, err := pskt.B64Decode(b64A)
	require.NoError(t, err)
	pA.Global.Xpubs["origin-a"] = &pskt.XpubGroup{Xpubs: map[string][]byte{"xpubA": []byte("xpubA")}}
	rawA, err := pskt.B64Encode(pA)
	require.NoError(t, err)

	b64B, err := rpc.CreatePSKT(
		[]rpc.TxInput{{Hash: testOutpoint(2), Sequence: wire.MaxTxInSequenceNum}},
		[]rpc.TxOutput{{PkScript: []byte{0x52}, Value: 60000}},
		0, 2,
	)
	require.NoError(t, err)
	pB, err := pskt.B64Decode(b64B)
	require.NoError(t, err)
	pB.Global.Xpubs["origin-b"] = &pskt.XpubGroup{Xpubs: map[string][]byte{"xpubB": []byte("xpubB")}}
	rawB, err := pskt.B64Encode(pB)
	require.NoError(t, err)

	joined, err := rpc.JoinPSKTs([]string{rawA, rawB}, nil)
	require.NoError(t, err)

	decoded, err := pskt.B64Decode(joined)
	require.NoError(t, err)
	var xpubs [][]byte
	for _, group := range decoded.Global.Xpubs {
		for _, xpub := range group.Xpubs {
			xpubs = append(xpubs, xpub)
		}
	}
	require.Contains(t, xpubs, []byte("xpubA"))
	require.Contains(t, xpubs, []byte("xpubB"))
}

func TestJoinPSKTsShufflesDeterministically(t *testing.T) {
	b64A, err := rpc.CreatePSKT(
		[]rpc.TxInput{{Hash: testOutpoint(1), Sequence: wire.MaxTxInSequenceNum}},
		[]rpc.TxOutput{{PkScript: []byte{0x51}, Value: 50000}},
		0, 2,
	)
	require.NoError(t, err)
	b64B, err := rpc.CreatePSKT(
		[]rpc.TxInput{{Hash: testOutpoint(2), Sequence: wire.MaxTxInSequenceNum}},
		[]rpc.TxOutput{{PkScript: []byte{0x52}, Value: 60000}},
		0, 2,
	)
	require.NoError(t, err)

	joined1, err := rpc.JoinPSKTs([]string{b64A, b64B}, rand.NewSource(42))
	require.NoError(t, err)
	joined2, err := rpc.JoinPSKTs([]string{b64A, b64B}, rand.NewSource(42))
	require.NoError(t, err)
	require.Equal(t, joined1, joined2)
}

func TestFinalizePSKTHappyPath(t *testing.T) {
	b64, err := rpc.CreatePSKT(
		[]rpc.TxInput{{Hash: testOutpoint(1), Sequence: wire.MaxTxInSequenceNum}},
		[]rpc.TxOutput{{PkScript: []byte{0x51}, Value: 50000}},
		0, 2,
	)
	require.NoError(t, err)

	p, err := pskt.B64Decode(b64)
	require.NoError(t, err)
	p.Inputs[0].WitnessUtxo = &wire.TxOut{Value: 100000, PkScript: append([]byte{0x00, 0x14}, make([]byte, 20)...)}
	pub := make([]byte, 33)
	pub[0] = 0x02
	p.Inputs[0].PartialSigs[string(pub)] = []byte("fake-signature-bytes")
	updated, err := pskt.B64Encode(p)
	require.NoError(t, err)

	finalB64, hexTx, complete, err := rpc.FinalizePSKT(updated, true)
	require.NoError(t, err)
	require.True(t, complete)
	require.NotEmpty(t, hexTx)
	require.NotEmpty(t, finalB64)
}

func TestFinalizePSKTWithoutExtractOmitsHex(t *testing.T) {
	b64, err := rpc.CreatePSKT(
		[]rpc.TxInput{{Hash: testOutpoint(1), Sequence: wire.MaxTxInSequenceNum}},
		[]rpc.TxOutput{{PkScript: []byte{0x51}, Value: 50000}},
		0, 2,
	)
	require.NoError(t, err)

	p, err := pskt.B64Decode(b64)
	require.NoError(t, err)
	p.Inputs[0].WitnessUtxo = &wire.TxOut{Value: 100000, PkScript: append([]byte{0x00, 0x14}, make([]byte, 20)...)}
	pub := make([]byte, 33)
	pub[0] = 0x02
	p.Inputs[0].PartialSigs[string(pub)] = []byte("fake-signature-bytes")
	updated, err := pskt.B64Encode(p)
	require.NoError(t, err)

	finalB64, hexTx, complete, err := rpc.FinalizePSKT(updated, false)
	require.NoError(t, err)
	require.True(t, complete)
	require.Empty(t, hexTx)
	require.NotEmpty(t, finalB64)
}

func TestAnalyzePSKTReportsNextRole(t *testing.T) {
	b64, err := rpc.CreatePSKT(
		[]rpc.TxInput{{Hash: testOutpoint(1), Sequence: wire.MaxTxInSequenceNum}},
		[]rpc.TxOutput{{PkScript: []byte{0x51}, Value: 50000}},
		0, 2,
	)
	require.NoError(t, err)

	p, err := pskt.B64Decode(b64)
	require.NoError(t, err)
	p.Inputs[0].WitnessUtxo = &wire.TxOut{Value: 100000, PkScript: append([]byte{0x00, 0x14}, make([]byte, 20)...)}
	updated, err := pskt.B64Encode(p)
	require.NoError(t, err)

	res, err := rpc.AnalyzePSKT(updated, pskt.DefaultAnalyzerOptions())
	require.NoError(t, err)
	require.Equal(t, "SIGNER", res.NextRole)
	require.True(t, res.Fee > 0 || res.Fee == 0)
}

func TestUtxoUpdatePSKTAppliesDescriptor(t *testing.T) {
	pkScript := append([]byte{0x00, 0x14}, make([]byte, 20)...)
	b64, err := rpc.CreatePSKT(
		nil,
		[]rpc.TxOutput{{PkScript: pkScript, Value: 50000}},
		0, 2,
	)
	require.NoError(t, err)

	updated, err := rpc.UtxoUpdatePSKT(b64, []rpc.OutputDescriptor{
		{Script: pkScript, WitnessScript: []byte{0x51}},
	})
	require.NoError(t, err)

	decoded, err := pskt.B64Decode(updated)
	require.NoError(t, err)
	require.Equal(t, []byte{0x51}, decoded.Outputs[0].WitnessScript)
}
