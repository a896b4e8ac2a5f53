package pskt_test

import (
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/koyotecoin/koyotecoin/pskt"
)

func TestMergeUnionsPartialSigs(t *testing.T) {
	a := newSimplePacket(t)
	b := newSimplePacket(t)

	a.Inputs[0].PartialSigs["pubkeyA"] = []byte("sigA")
	b.Inputs[0].PartialSigs["pubkeyB"] = []byte("sigB")

	merged, err := pskt.Merge(a, b)
	require.NoError(t, err)
	require.Len(t, merged.Inputs[0].PartialSigs, 2)
	require.Equal(t, []byte("sigA"), merged.Inputs[0].PartialSigs["pubkeyA"])
	require.Equal(t, []byte("sigB"), merged.Inputs[0].PartialSigs["pubkeyB"])
}

func TestMergeRejectsMismatchedTx(t *testing.T) {
	a := newSimplePacket(t)
	b := newSimplePacket(t)
	require.NoError(t, b.AddInput(newTestOutpoint(2), wire.MaxTxInSequenceNum))

	_, err := pskt.Merge(a, b)
	require.ErrorIs(t, err, pskt.ErrPsktMismatch)
}

func TestMergeIsCommutative(t *testing.T) {
	a := newSimplePacket(t)
	b := newSimplePacket(t)
	a.Inputs[0].PartialSigs["pubkeyA"] = []byte("sigA")
	b.Inputs[0].PartialSigs["pubkeyB"] = []byte("sigB")

	ab, err := pskt.Merge(a, b)
	require.NoError(t, err)
	ba, err := pskt.Merge(b, a)
	require.NoError(t, err)

	require.Equal(t, ab.Inputs[0].PartialSigs, ba.Inputs[0].PartialSigs)
}

func TestMergeIsIdempotent(t *testing.T) {
	a := newSimplePacket(t)
	a.Inputs[0].PartialSigs["pubkeyA"] = []byte("sigA")

	merged, err := pskt.Merge(a, a)
	require.NoError(t, err)
	require.Equal(t, a.Inputs[0].PartialSigs, merged.Inputs[0].PartialSigs)
}

func TestMergeIsAssociative(t *testing.T) {
	a := newSimplePacket(t)
	b := newSimplePacket(t)
	c := newSimplePacket(t)
	a.Inputs[0].PartialSigs["pubkeyA"] = []byte("sigA")
	b.Inputs[0].PartialSigs["pubkeyB"] = []byte("sigB")
	c.Inputs[0].PartialSigs["pubkeyC"] = []byte("sigC")

	left, err := pskt.Combine([]*pskt.Packet{a, b, c})
	require.NoError(t, err)

	bc, err := pskt.Merge(b, c)
	require.NoError(t, err)
	right, err := pskt.Merge(a, bc)
	require.NoError(t, err)

	require.Equal(t, left.Inputs[0].PartialSigs, right.Inputs[0].PartialSigs)
}

func TestMergeUnionsTapTreeByLeafIdentity(t *testing.T) {
	a := newSimplePacket(t)
	b := newSimplePacket(t)

	leaf := pskt.TapTreeLeaf{Depth: 1, LeafVersion: 0xc0, Script: []byte("script")}
	a.Outputs[0].TapTree = []pskt.TapTreeLeaf{leaf}
	b.Outputs[0].TapTree = []pskt.TapTreeLeaf{leaf}

	merged, err := pskt.Merge(a, b)
	require.NoError(t, err)
	require.Len(t, merged.Outputs[0].TapTree, 1)
}
