// Package rpc exposes the PSKT engine (package pskt) as a set of Go
// functions shaped like the JSON-RPC method table of a koyotecoin node:
// createpskt, converttopskt, combinepskt, joinpskts, finalizepskt,
// utxoupdatepskt, decodepskt, analyzepskt. It carries no dispatcher, no
// transport and no persistence — only the request/response shapes and the
// pure functions that fill them.
package rpc

import (
	"errors"

	"github.com/koyotecoin/koyotecoin/pskt"
)

// Error codes follow the Bitcoin Core JSON-RPC convention so a real
// dispatcher built on top of this package can pass them straight through.
const (
	ErrCodeMisc            = -1
	ErrCodeInvalidParameter = -8
	ErrCodeDeserialization  = -22
	ErrCodeVerifyError      = -25
	ErrCodeInvalidAddressOrKey = -5
)

// Error is a JSON-RPC-shaped error: a stable numeric code plus a message,
// wrapping the underlying pskt error for callers that want it (§6.3).
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// wrapError classifies an error surfaced by package pskt into the RPC
// error taxonomy of §6.3.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, pskt.ErrDeserialization),
		errors.Is(err, pskt.ErrBadMagic),
		errors.Is(err, pskt.ErrTruncated),
		errors.Is(err, pskt.ErrTrailingBytes),
		errors.Is(err, pskt.ErrDuplicateKey),
		errors.Is(err, pskt.ErrInvalidKeySize),
		errors.Is(err, pskt.ErrInvalidTypeValue),
		errors.Is(err, pskt.ErrSectionCountMismatch),
		errors.Is(err, pskt.ErrInvalidProprietaryKey):
		return &Error{Code: ErrCodeDeserialization, Message: "PSKT decode failed: " + err.Error(), Err: err}

	case errors.Is(err, pskt.ErrInputDuplicated),
		errors.Is(err, pskt.ErrInvalidParameter),
		errors.Is(err, pskt.ErrInputIndexOutOfRange),
		errors.Is(err, pskt.ErrOutputIndexOutOfRange),
		errors.Is(err, pskt.ErrOutpointAlreadyPresent):
		return &Error{Code: ErrCodeInvalidParameter, Message: err.Error(), Err: err}

	case errors.Is(err, pskt.ErrPsktMismatch):
		return &Error{Code: ErrCodeInvalidAddressOrKey, Message: "PSKTs do not refer to the same transaction: " + err.Error(), Err: err}

	case errors.Is(err, pskt.ErrSigningFailure),
		errors.Is(err, pskt.ErrProviderFailure),
		errors.Is(err, pskt.ErrWitnessSignatureRequired),
		errors.Is(err, pskt.ErrRedeemScriptMismatch),
		errors.Is(err, pskt.ErrWitnessScriptMismatch),
		errors.Is(err, pskt.ErrNotFinalizable),
		errors.Is(err, pskt.ErrIncomplete),
		errors.Is(err, pskt.ErrUnsupportedScriptType),
		errors.Is(err, pskt.ErrUnsignedTxSigned),
		errors.Is(err, pskt.ErrUtxoMissing),
		errors.Is(err, pskt.ErrUtxoMismatch):
		return &Error{Code: ErrCodeVerifyError, Message: err.Error(), Err: err}

	default:
		return &Error{Code: ErrCodeMisc, Message: err.Error(), Err: err}
	}
}
