package rpc_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/koyotecoin/koyotecoin/pskt"
	"github.com/koyotecoin/koyotecoin/rpc"
)

func TestErrorCodeMapping(t *testing.T) {
	_, err := rpc.DecodePSKT("not-valid-base64!!")
	require.Error(t, err)
	var rpcErr *rpc.Error
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, rpc.ErrCodeDeserialization, rpcErr.Code)
}

func TestErrorUnwrapsToUnderlyingPsktError(t *testing.T) {
	_, err := pskt.Decode([]byte{0x00})
	require.ErrorIs(t, err, pskt.ErrBadMagic)

	wrapped := &rpc.Error{Code: rpc.ErrCodeDeserialization, Message: "boom", Err: pskt.ErrBadMagic}
	require.True(t, errors.Is(wrapped, pskt.ErrBadMagic))
	require.Equal(t, "boom", wrapped.Error())
}
