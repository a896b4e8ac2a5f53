package pskt

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// Input section type codes (BIP-174 + BIP-371 Taproot fields).
const (
	inNonWitnessUtxo     uint8 = 0x00
	inWitnessUtxo        uint8 = 0x01
	inPartialSig         uint8 = 0x02
	inSighashType        uint8 = 0x03
	inRedeemScript       uint8 = 0x04
	inWitnessScript      uint8 = 0x05
	inBip32Derivation    uint8 = 0x06
	inFinalScriptSig     uint8 = 0x07
	inFinalScriptWitness uint8 = 0x08
	inRipemd160          uint8 = 0x0a
	inSha256             uint8 = 0x0b
	inHash160            uint8 = 0x0c
	inHash256            uint8 = 0x0d
	inTapKeySig          uint8 = 0x13
	inTapScriptSig       uint8 = 0x14
	inTapLeafScript      uint8 = 0x15
	inTapBip32Derivation uint8 = 0x16
	inTapInternalKey     uint8 = 0x17
	inTapMerkleRoot      uint8 = 0x18
	inProprietary        uint8 = 0xfc
)

// TapScriptSigKey identifies a Taproot script-path partial signature by the
// x-only pubkey that produced it and the leaf it signs (§3.2).
type TapScriptSigKey struct {
	XOnlyPubKey [32]byte
	LeafHash    [32]byte
}

// TapLeafScriptKey identifies a Taproot leaf script by its script bytes and
// leaf version (§3.2, m_tap_scripts).
type TapLeafScriptKey struct {
	Script     string
	LeafVersion txscript.TapscriptLeafVersion
}

// TapBip32Entry is the value side of m_tap_bip32_paths: the set of leaf
// hashes an x-only pubkey participates in, plus its key origin (§3.2).
type TapBip32Entry struct {
	LeafHashes [][32]byte
	Origin     KeyOrigin
}

// Input is one per-input record of a PartiallySignedTransaction (§3.2).
// Every field is independently optional; an Input with every field
// absent/empty is "null" (see IsNull).
type Input struct {
	NonWitnessUtxo     *wire.MsgTx
	WitnessUtxo        *wire.TxOut
	PartialSigs        map[string][]byte // pubkey bytes -> DER signature (+ sighash byte)
	SighashType        *txscript.SigHashType
	RedeemScript       []byte
	WitnessScript      []byte
	HDKeypaths         map[string]KeyOrigin // pubkey bytes -> origin
	FinalScriptSig     []byte
	FinalScriptWitness [][]byte // decoded witness stack

	Ripemd160Preimages map[[20]byte][]byte
	Sha256Preimages    map[[32]byte][]byte
	Hash160Preimages   map[[20]byte][]byte
	Hash256Preimages   map[[32]byte][]byte

	TapKeySig         []byte
	TapScriptSigs     map[TapScriptSigKey][]byte
	TapLeafScripts    map[TapLeafScriptKey][][]byte // script+version -> set of control blocks
	TapBip32Paths     map[[32]byte]*TapBip32Entry
	TapInternalKey    []byte
	TapMerkleRoot     []byte

	Proprietary []proprietary
	Unknown     map[string][]byte
}

func newInput() *Input {
	return &Input{
		PartialSigs:        make(map[string][]byte),
		HDKeypaths:         make(map[string]KeyOrigin),
		Ripemd160Preimages: make(map[[20]byte][]byte),
		Sha256Preimages:    make(map[[32]byte][]byte),
		Hash160Preimages:   make(map[[20]byte][]byte),
		Hash256Preimages:   make(map[[32]byte][]byte),
		TapScriptSigs:      make(map[TapScriptSigKey][]byte),
		TapLeafScripts:     make(map[TapLeafScriptKey][][]byte),
		TapBip32Paths:      make(map[[32]byte]*TapBip32Entry),
		Unknown:            make(map[string][]byte),
	}
}

// IsNull reports whether every field of the input is absent/empty (§3.2).
func (in *Input) IsNull() bool {
	return in.NonWitnessUtxo == nil &&
		in.WitnessUtxo == nil &&
		len(in.PartialSigs) == 0 &&
		in.SighashType == nil &&
		len(in.RedeemScript) == 0 &&
		len(in.WitnessScript) == 0 &&
		len(in.HDKeypaths) == 0 &&
		len(in.FinalScriptSig) == 0 &&
		len(in.FinalScriptWitness) == 0 &&
		len(in.Ripemd160Preimages) == 0 &&
		len(in.Sha256Preimages) == 0 &&
		len(in.Hash160Preimages) == 0 &&
		len(in.Hash256Preimages) == 0 &&
		len(in.TapKeySig) == 0 &&
		len(in.TapScriptSigs) == 0 &&
		len(in.TapLeafScripts) == 0 &&
		len(in.TapBip32Paths) == 0 &&
		len(in.TapInternalKey) == 0 &&
		len(in.TapMerkleRoot) == 0 &&
		len(in.Proprietary) == 0 &&
		len(in.Unknown) == 0
}

// IsFinalized reports whether the input carries a terminal scriptSig or
// witness, i.e. it needs no further signing (§4.5).
func (in *Input) IsFinalized() bool {
	return len(in.FinalScriptSig) > 0 || len(in.FinalScriptWitness) > 0
}

// utxoValue returns the amount (in satoshi-equivalent units) of the spent
// output when a witness UTXO is recorded; a non-witness UTXO alone is not
// consulted and reports false.
func (in *Input) utxoValue() (int64, bool) {
	if in.WitnessUtxo != nil {
		return in.WitnessUtxo.Value, true
	}
	return 0, false
}
