// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2019-2020 The VulpemVentures developers
// Copyright (c) 2021-present The Koyotecoin developers

// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that the above
// copyright notice and this permission notice appear in all copies.

// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
// WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
// ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
// WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
// ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
// OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.

// Package pskt implements Partially Signed Koyotecoin Transactions (PSKT),
// a BIP-174-compatible binary interchange format that lets multiple parties
// cooperatively build, sign, combine, finalize and extract a fully signed
// transaction.
package pskt

import "errors"

// MaxKeyLength is the length of the largest key that will successfully be
// deserialized from the wire. Anything more returns ErrInvalidKeySize.
const MaxKeyLength = 10000

// MaxUtxoValueLength is the size of the largest transaction serialization
// that could be passed in a NonWitnessUtxo field. Well under 4M.
const MaxUtxoValueLength = 4000000

var (
	// ErrNoMoreKeyPairs is returned internally when the section separator
	// (an empty key) has been reached while decoding key/value records.
	ErrNoMoreKeyPairs = errors.New("no more key pairs")

	// C1: codec errors.
	ErrBadMagic              = errors.New("pskt: invalid magic bytes")
	ErrTruncated             = errors.New("pskt: unexpected end of data")
	ErrTrailingBytes         = errors.New("pskt: trailing bytes after last record")
	ErrDuplicateKey          = errors.New("pskt: duplicate key in section")
	ErrInvalidKeySize        = errors.New("pskt: key exceeds maximum length")
	ErrInvalidTypeValue      = errors.New("pskt: malformed value for known type code")
	ErrSectionCountMismatch  = errors.New("pskt: input/output section count does not match unsigned tx")
	ErrInvalidProprietaryKey = errors.New("pskt: proprietary key must use type 0xfc")
	ErrUnsignedTxSigned      = errors.New("pskt: unsigned transaction must not carry scriptSig or witness data")

	// C2: data-model errors.
	ErrOutpointAlreadyPresent = errors.New("pskt: outpoint already present in transaction")
	ErrInputIndexOutOfRange   = errors.New("pskt: input index out of range")
	ErrOutputIndexOutOfRange  = errors.New("pskt: output index out of range")
	ErrUtxoMissing            = errors.New("pskt: input has no non-witness or witness utxo")
	ErrUtxoMismatch           = errors.New("pskt: non-witness utxo does not match prevout hash/index")

	// C3: merge errors.
	ErrPsktMismatch = errors.New("pskt: unsigned transactions differ, cannot merge")

	// C4: signature pipeline errors.
	ErrWitnessSignatureRequired  = errors.New("pskt: witness utxo present but no witness signature was produced")
	ErrProviderFailure           = errors.New("pskt: signing provider failed to produce a signature")
	ErrRedeemScriptMismatch      = errors.New("pskt: redeem script does not match p2sh scriptPubKey")
	ErrWitnessScriptMismatch     = errors.New("pskt: witness script does not match p2wsh commitment")
	ErrTaprootInternalKeyInvalid = errors.New("pskt: taproot internal key does not tweak to the output's witness program")

	// C5: finalize/extract errors.
	ErrNotFinalizable        = errors.New("pskt: input does not have enough data to finalize")
	ErrIncomplete            = errors.New("pskt: pskt is not complete, cannot extract")
	ErrUnsupportedScriptType = errors.New("pskt: unsupported or unrecognized script type")

	// RPC-facing, §6.3.
	ErrInputDuplicated  = errors.New("pskt: duplicate outpoint across joined psets")
	ErrInvalidParameter = errors.New("pskt: invalid parameter")
	ErrSigningFailure   = errors.New("pskt: signing failure")
	ErrDeserialization  = errors.New("pskt: deserialization failure")
)
