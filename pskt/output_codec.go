package pskt

import (
	"bytes"
	"io"
	"sort"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// serializeOutput writes one output section in canonical (type-code) order.
func serializeOutput(w io.Writer, out *Output) error {
	if len(out.RedeemScript) > 0 {
		if err := writeKeyPair(w, outRedeemScript, nil, out.RedeemScript); err != nil {
			return err
		}
	}
	if len(out.WitnessScript) > 0 {
		if err := writeKeyPair(w, outWitnessScript, nil, out.WitnessScript); err != nil {
			return err
		}
	}
	{
		keys := make([]string, 0, len(out.HDKeypaths))
		for k := range out.HDKeypaths {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, pk := range keys {
			if err := writeKeyPair(w, outBip32Derivation, []byte(pk), encodeKeyOrigin(out.HDKeypaths[pk])); err != nil {
				return err
			}
		}
	}
	if len(out.TapInternalKey) > 0 {
		if err := writeKeyPair(w, outTapInternalKey, nil, out.TapInternalKey); err != nil {
			return err
		}
	}
	if len(out.TapTree) > 0 {
		// Leaves are written in the caller's order, which must already be
		// depth-first (BIP-371): re-sorting by depth would scramble the
		// left-to-right sibling order within a depth and break the
		// canonical round-trip for unbalanced trees.
		var buf bytes.Buffer
		for _, leaf := range out.TapTree {
			buf.WriteByte(leaf.Depth)
			buf.WriteByte(byte(leaf.LeafVersion))
			if err := wire.WriteVarBytes(&buf, 0, leaf.Script); err != nil {
				return err
			}
		}
		if err := writeKeyPair(w, outTapTree, nil, buf.Bytes()); err != nil {
			return err
		}
	}
	{
		keys := make([][32]byte, 0, len(out.TapBip32Paths))
		for k := range out.TapBip32Paths {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })
		for _, k := range keys {
			entry := out.TapBip32Paths[k]
			var buf bytes.Buffer
			_ = wire.WriteVarInt(&buf, 0, uint64(len(entry.LeafHashes)))
			for _, lh := range entry.LeafHashes {
				buf.Write(lh[:])
			}
			buf.Write(encodeKeyOrigin(entry.Origin))
			if err := writeKeyPair(w, outTapBip32Derivation, k[:], buf.Bytes()); err != nil {
				return err
			}
		}
	}
	for _, p := range out.Proprietary {
		if err := writeKeyPair(w, outProprietary, proprietaryKeyBytes(p), p.value); err != nil {
			return err
		}
	}
	for _, k := range out.unknownKeys() {
		if err := writeUnknown(w, unknown{key: []byte(k), value: out.Unknown[k]}); err != nil {
			return err
		}
	}
	return writeSeparator(w)
}

func (out *Output) unknownKeys() []string {
	keys := make([]string, 0, len(out.Unknown))
	for k := range out.Unknown {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// deserializeOutput reads one output section.
func deserializeOutput(r io.Reader) (*Output, error) {
	out := newOutput()
	seen := newKeySeen()

	unknowns, err := drainSection(r, seen, func(kp *keyPair) (bool, error) {
		switch kp.key.keyType {
		case outRedeemScript:
			if kp.key.keyData != nil {
				return false, ErrInvalidTypeValue
			}
			out.RedeemScript = kp.value
			return true, nil

		case outWitnessScript:
			if kp.key.keyData != nil {
				return false, ErrInvalidTypeValue
			}
			out.WitnessScript = kp.value
			return true, nil

		case outBip32Derivation:
			if len(kp.key.keyData) != 33 && len(kp.key.keyData) != 65 {
				return false, ErrInvalidTypeValue
			}
			origin, err := decodeKeyOrigin(kp.value)
			if err != nil {
				return false, err
			}
			out.HDKeypaths[string(kp.key.keyData)] = origin
			return true, nil

		case outTapInternalKey:
			if kp.key.keyData != nil || len(kp.value) != 32 {
				return false, ErrInvalidTypeValue
			}
			out.TapInternalKey = kp.value
			return true, nil

		case outTapTree:
			if kp.key.keyData != nil {
				return false, ErrInvalidTypeValue
			}
			vr := bytes.NewReader(kp.value)
			var leaves []TapTreeLeaf
			for vr.Len() > 0 {
				depth, err := vr.ReadByte()
				if err != nil {
					return false, ErrInvalidTypeValue
				}
				version, err := vr.ReadByte()
				if err != nil {
					return false, ErrInvalidTypeValue
				}
				script, err := wire.ReadVarBytes(vr, 0, txscript.MaxScriptSize, "tap leaf script")
				if err != nil {
					return false, ErrInvalidTypeValue
				}
				leaves = append(leaves, TapTreeLeaf{
					Depth:       depth,
					LeafVersion: txscript.TapscriptLeafVersion(version),
					Script:      script,
				})
			}
			out.TapTree = leaves
			return true, nil

		case outTapBip32Derivation:
			if len(kp.key.keyData) != 32 {
				return false, ErrInvalidTypeValue
			}
			vr := bytes.NewReader(kp.value)
			count, err := wire.ReadVarInt(vr, 0)
			if err != nil {
				return false, ErrInvalidTypeValue
			}
			leafHashes := make([][32]byte, count)
			for i := uint64(0); i < count; i++ {
				if _, err := io.ReadFull(vr, leafHashes[i][:]); err != nil {
					return false, ErrInvalidTypeValue
				}
			}
			rest, _ := io.ReadAll(vr)
			origin, err := decodeKeyOrigin(rest)
			if err != nil {
				return false, err
			}
			var xonly [32]byte
			copy(xonly[:], kp.key.keyData)
			out.TapBip32Paths[xonly] = &TapBip32Entry{LeafHashes: leafHashes, Origin: origin}
			return true, nil

		case outProprietary:
			p, err := proprietaryFromKey(kp.key, kp.value)
			if err != nil {
				return false, err
			}
			out.Proprietary = append(out.Proprietary, p)
			return true, nil

		default:
			return false, nil
		}
	})
	if err != nil {
		return nil, err
	}
	for _, u := range unknowns {
		out.Unknown[string(u.key)] = u.value
	}

	return out, nil
}
