package pskt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/koyotecoin/koyotecoin/pskt"
)

func TestFillAndFromSignatureDataRoundTrip(t *testing.T) {
	p := newSimplePacket(t)
	p.Inputs[0].PartialSigs["pubkeyA"] = []byte("sigA")
	p.Inputs[0].RedeemScript = []byte{0x51}

	sd := pskt.FillSignatureData(p, 0)
	require.Equal(t, []byte("sigA"), sd.PartialSigs["pubkeyA"])
	require.Equal(t, []byte{0x51}, sd.RedeemScript)

	fresh := newSimplePacket(t)
	sd.PartialSigs["pubkeyB"] = []byte("sigB")
	pskt.FromSignatureData(sd, fresh.Inputs[0])
	require.Equal(t, []byte("sigA"), fresh.Inputs[0].PartialSigs["pubkeyA"])
	require.Equal(t, []byte("sigB"), fresh.Inputs[0].PartialSigs["pubkeyB"])
	require.Equal(t, []byte{0x51}, fresh.Inputs[0].RedeemScript)
}

func TestDummySigningProviderKnowsNothing(t *testing.T) {
	provider := pskt.NewDummySigningProvider()
	require.False(t, provider.HaveKey([]byte("anything")))
	_, ok := provider.GetScript([]byte("anything"))
	require.False(t, ok)
	_, ok = provider.GetKeyOrigin([]byte("anything"))
	require.False(t, ok)
}

func TestDummySignatureCreatorNeverSigns(t *testing.T) {
	creator := pskt.NewDummySignatureCreator()
	sig, ok, err := creator.CreateSig([]byte("pub"), []byte("hash"), 0)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, sig)
}
