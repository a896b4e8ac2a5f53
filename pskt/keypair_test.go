package pskt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadKeyPairRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeKeyPair(&buf, 0x01, []byte("keydata"), []byte("value")))

	kp, err := readKeyPair(&buf)
	require.NoError(t, err)
	require.Equal(t, uint8(0x01), kp.key.keyType)
	require.Equal(t, []byte("keydata"), kp.key.keyData)
	require.Equal(t, []byte("value"), kp.value)
}

func TestReadKeyPairSeparator(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSeparator(&buf))

	kp, err := readKeyPair(&buf)
	require.NoError(t, err)
	require.Nil(t, kp)
}

func TestKeySeenRejectsDuplicates(t *testing.T) {
	seen := newKeySeen()
	require.True(t, seen.add(0x01, []byte("a")))
	require.False(t, seen.add(0x01, []byte("a")))
	require.True(t, seen.add(0x01, []byte("b")))
}

func TestDrainSectionCollectsUnknowns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeKeyPair(&buf, 0x99, nil, []byte("mystery")))
	require.NoError(t, writeSeparator(&buf))

	seen := newKeySeen()
	unknowns, err := drainSection(&buf, seen, func(kp *keyPair) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	require.Len(t, unknowns, 1)
	require.Equal(t, []byte{0x99}, unknowns[0].key)
	require.Equal(t, []byte("mystery"), unknowns[0].value)
}

func TestDrainSectionRejectsDuplicateKeys(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeKeyPair(&buf, 0x01, []byte("a"), []byte("v1")))
	require.NoError(t, writeKeyPair(&buf, 0x01, []byte("a"), []byte("v2")))
	require.NoError(t, writeSeparator(&buf))

	seen := newKeySeen()
	_, err := drainSection(&buf, seen, func(kp *keyPair) (bool, error) {
		return true, nil
	})
	require.ErrorIs(t, err, ErrDuplicateKey)
}

func TestProprietaryKeyRoundTrip(t *testing.T) {
	p := proprietary{identifier: []byte("id"), subtype: 3, keyData: []byte("kd"), value: []byte("v")}
	keyData := proprietaryKeyBytes(p)

	k := key{keyType: 0xfc, keyData: keyData}
	got, err := proprietaryFromKey(k, p.value)
	require.NoError(t, err)
	require.Equal(t, p.identifier, got.identifier)
	require.Equal(t, p.subtype, got.subtype)
	require.Equal(t, p.keyData, got.keyData)
}
