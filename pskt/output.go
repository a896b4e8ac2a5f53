package pskt

import "github.com/btcsuite/btcd/txscript"

// Output section type codes (BIP-174 + BIP-371 Taproot fields).
const (
	outRedeemScript       uint8 = 0x00
	outWitnessScript      uint8 = 0x01
	outBip32Derivation    uint8 = 0x02
	outTapInternalKey     uint8 = 0x05
	outTapTree            uint8 = 0x06
	outTapBip32Derivation uint8 = 0x07
	outProprietary        uint8 = 0xfc
)

// TapTreeLeaf is one entry of the depth-first-ordered Taproot tree carried
// by an output (§3.3).
type TapTreeLeaf struct {
	Depth       uint8
	LeafVersion txscript.TapscriptLeafVersion
	Script      []byte
}

// Output is one per-output record of a PartiallySignedTransaction (§3.3).
type Output struct {
	RedeemScript   []byte
	WitnessScript  []byte
	HDKeypaths     map[string]KeyOrigin // pubkey bytes -> origin

	TapInternalKey []byte
	TapTree        []TapTreeLeaf
	TapBip32Paths  map[[32]byte]*TapBip32Entry

	Proprietary []proprietary
	Unknown     map[string][]byte
}

func newOutput() *Output {
	return &Output{
		HDKeypaths:    make(map[string]KeyOrigin),
		TapBip32Paths: make(map[[32]byte]*TapBip32Entry),
		Unknown:       make(map[string][]byte),
	}
}

// IsNull reports whether every field of the output is absent/empty.
func (out *Output) IsNull() bool {
	return len(out.RedeemScript) == 0 &&
		len(out.WitnessScript) == 0 &&
		len(out.HDKeypaths) == 0 &&
		len(out.TapInternalKey) == 0 &&
		len(out.TapTree) == 0 &&
		len(out.TapBip32Paths) == 0 &&
		len(out.Proprietary) == 0 &&
		len(out.Unknown) == 0
}

// tapTreeLeafKey identifies a tree leaf for the merge/dedup rule described
// in SPEC_FULL.md §6 (union by leaf identity, not blind concatenation).
type tapTreeLeafKey struct {
	depth       uint8
	leafVersion txscript.TapscriptLeafVersion
	script      string
}

func (l TapTreeLeaf) key() tapTreeLeafKey {
	return tapTreeLeafKey{depth: l.Depth, leafVersion: l.LeafVersion, script: string(l.Script)}
}
