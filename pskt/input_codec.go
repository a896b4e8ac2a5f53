package pskt

import (
	"bytes"
	"encoding/binary"
	"io"
	"sort"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

func encodeWitnessStack(stack [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.WriteVarInt(&buf, 0, uint64(len(stack))); err != nil {
		return nil, err
	}
	for _, item := range stack {
		if err := wire.WriteVarBytes(&buf, 0, item); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeWitnessStack(b []byte) ([][]byte, error) {
	r := bytes.NewReader(b)
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, ErrInvalidTypeValue
	}
	stack := make([][]byte, count)
	for i := uint64(0); i < count; i++ {
		item, err := wire.ReadVarBytes(r, 0, txscript.MaxScriptSize, "witness item")
		if err != nil {
			return nil, ErrInvalidTypeValue
		}
		stack[i] = item
	}
	return stack, nil
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// serializeInput writes one input section in canonical (type-code) order.
func serializeInput(w io.Writer, in *Input) error {
	if in.NonWitnessUtxo != nil {
		var buf bytes.Buffer
		if err := in.NonWitnessUtxo.Serialize(&buf); err != nil {
			return err
		}
		if err := writeKeyPair(w, inNonWitnessUtxo, nil, buf.Bytes()); err != nil {
			return err
		}
	}
	if in.WitnessUtxo != nil {
		var buf bytes.Buffer
		if err := wire.WriteTxOut(&buf, 0, 0, in.WitnessUtxo); err != nil {
			return err
		}
		if err := writeKeyPair(w, inWitnessUtxo, nil, buf.Bytes()); err != nil {
			return err
		}
	}
	for _, pk := range sortedKeys(in.PartialSigs) {
		if err := writeKeyPair(w, inPartialSig, []byte(pk), in.PartialSigs[pk]); err != nil {
			return err
		}
	}
	if in.SighashType != nil {
		val := make([]byte, 4)
		binary.LittleEndian.PutUint32(val, uint32(*in.SighashType))
		if err := writeKeyPair(w, inSighashType, nil, val); err != nil {
			return err
		}
	}
	if len(in.RedeemScript) > 0 {
		if err := writeKeyPair(w, inRedeemScript, nil, in.RedeemScript); err != nil {
			return err
		}
	}
	if len(in.WitnessScript) > 0 {
		if err := writeKeyPair(w, inWitnessScript, nil, in.WitnessScript); err != nil {
			return err
		}
	}
	{
		keys := make([]string, 0, len(in.HDKeypaths))
		for k := range in.HDKeypaths {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, pk := range keys {
			if err := writeKeyPair(w, inBip32Derivation, []byte(pk), encodeKeyOrigin(in.HDKeypaths[pk])); err != nil {
				return err
			}
		}
	}
	if len(in.FinalScriptSig) > 0 {
		if err := writeKeyPair(w, inFinalScriptSig, nil, in.FinalScriptSig); err != nil {
			return err
		}
	}
	if len(in.FinalScriptWitness) > 0 {
		val, err := encodeWitnessStack(in.FinalScriptWitness)
		if err != nil {
			return err
		}
		if err := writeKeyPair(w, inFinalScriptWitness, nil, val); err != nil {
			return err
		}
	}
	if err := writePreimages20(w, inRipemd160, in.Ripemd160Preimages); err != nil {
		return err
	}
	if err := writePreimages32(w, inSha256, in.Sha256Preimages); err != nil {
		return err
	}
	if err := writePreimages20(w, inHash160, in.Hash160Preimages); err != nil {
		return err
	}
	if err := writePreimages32(w, inHash256, in.Hash256Preimages); err != nil {
		return err
	}
	if len(in.TapKeySig) > 0 {
		if err := writeKeyPair(w, inTapKeySig, nil, in.TapKeySig); err != nil {
			return err
		}
	}
	{
		keys := make([]TapScriptSigKey, 0, len(in.TapScriptSigs))
		for k := range in.TapScriptSigs {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if !bytes.Equal(keys[i].XOnlyPubKey[:], keys[j].XOnlyPubKey[:]) {
				return bytes.Compare(keys[i].XOnlyPubKey[:], keys[j].XOnlyPubKey[:]) < 0
			}
			return bytes.Compare(keys[i].LeafHash[:], keys[j].LeafHash[:]) < 0
		})
		for _, k := range keys {
			keyData := append(append([]byte{}, k.XOnlyPubKey[:]...), k.LeafHash[:]...)
			if err := writeKeyPair(w, inTapScriptSig, keyData, in.TapScriptSigs[k]); err != nil {
				return err
			}
		}
	}
	{
		keys := make([]TapLeafScriptKey, 0, len(in.TapLeafScripts))
		for k := range in.TapLeafScripts {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Script < keys[j].Script })
		for _, k := range keys {
			for _, cb := range in.TapLeafScripts[k] {
				value := append(append([]byte{}, []byte(k.Script)...), byte(k.LeafVersion))
				if err := writeKeyPair(w, inTapLeafScript, cb, value); err != nil {
					return err
				}
			}
		}
	}
	{
		keys := make([][32]byte, 0, len(in.TapBip32Paths))
		for k := range in.TapBip32Paths {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })
		for _, k := range keys {
			entry := in.TapBip32Paths[k]
			var buf bytes.Buffer
			_ = wire.WriteVarInt(&buf, 0, uint64(len(entry.LeafHashes)))
			for _, lh := range entry.LeafHashes {
				buf.Write(lh[:])
			}
			buf.Write(encodeKeyOrigin(entry.Origin))
			if err := writeKeyPair(w, inTapBip32Derivation, k[:], buf.Bytes()); err != nil {
				return err
			}
		}
	}
	if len(in.TapInternalKey) > 0 {
		if err := writeKeyPair(w, inTapInternalKey, nil, in.TapInternalKey); err != nil {
			return err
		}
	}
	if len(in.TapMerkleRoot) > 0 {
		if err := writeKeyPair(w, inTapMerkleRoot, nil, in.TapMerkleRoot); err != nil {
			return err
		}
	}
	for _, p := range in.Proprietary {
		if err := writeKeyPair(w, inProprietary, proprietaryKeyBytes(p), p.value); err != nil {
			return err
		}
	}
	for _, k := range in.unknownKeys() {
		if err := writeUnknown(w, unknown{key: []byte(k), value: in.Unknown[k]}); err != nil {
			return err
		}
	}
	return writeSeparator(w)
}

func (in *Input) unknownKeys() []string {
	keys := make([]string, 0, len(in.Unknown))
	for k := range in.Unknown {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writePreimages20(w io.Writer, keyType uint8, m map[[20]byte][]byte) error {
	keys := make([][20]byte, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })
	for _, k := range keys {
		if err := writeKeyPair(w, keyType, k[:], m[k]); err != nil {
			return err
		}
	}
	return nil
}

func writePreimages32(w io.Writer, keyType uint8, m map[[32]byte][]byte) error {
	keys := make([][32]byte, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })
	for _, k := range keys {
		if err := writeKeyPair(w, keyType, k[:], m[k]); err != nil {
			return err
		}
	}
	return nil
}

// deserializeInput reads one input section.
func deserializeInput(r io.Reader) (*Input, error) {
	in := newInput()
	seen := newKeySeen()

	unknowns, err := drainSection(r, seen, func(kp *keyPair) (bool, error) {
		switch kp.key.keyType {
		case inNonWitnessUtxo:
			if kp.key.keyData != nil {
				return false, ErrInvalidTypeValue
			}
			tx := wire.NewMsgTx(wire.TxVersion)
			if err := tx.Deserialize(bytes.NewReader(kp.value)); err != nil {
				return false, ErrInvalidTypeValue
			}
			in.NonWitnessUtxo = tx
			return true, nil

		case inWitnessUtxo:
			if kp.key.keyData != nil {
				return false, ErrInvalidTypeValue
			}
			txout := &wire.TxOut{}
			if err := wire.ReadTxOut(bytes.NewReader(kp.value), 0, 0, txout); err != nil {
				return false, ErrInvalidTypeValue
			}
			in.WitnessUtxo = txout
			return true, nil

		case inPartialSig:
			if len(kp.key.keyData) != 33 && len(kp.key.keyData) != 65 {
				return false, ErrInvalidTypeValue
			}
			in.PartialSigs[string(kp.key.keyData)] = kp.value
			return true, nil

		case inSighashType:
			if kp.key.keyData != nil || len(kp.value) != 4 {
				return false, ErrInvalidTypeValue
			}
			sh := txscript.SigHashType(binary.LittleEndian.Uint32(kp.value))
			in.SighashType = &sh
			return true, nil

		case inRedeemScript:
			if kp.key.keyData != nil {
				return false, ErrInvalidTypeValue
			}
			in.RedeemScript = kp.value
			return true, nil

		case inWitnessScript:
			if kp.key.keyData != nil {
				return false, ErrInvalidTypeValue
			}
			in.WitnessScript = kp.value
			return true, nil

		case inBip32Derivation:
			if len(kp.key.keyData) != 33 && len(kp.key.keyData) != 65 {
				return false, ErrInvalidTypeValue
			}
			origin, err := decodeKeyOrigin(kp.value)
			if err != nil {
				return false, err
			}
			in.HDKeypaths[string(kp.key.keyData)] = origin
			return true, nil

		case inFinalScriptSig:
			if kp.key.keyData != nil {
				return false, ErrInvalidTypeValue
			}
			in.FinalScriptSig = kp.value
			return true, nil

		case inFinalScriptWitness:
			if kp.key.keyData != nil {
				return false, ErrInvalidTypeValue
			}
			stack, err := decodeWitnessStack(kp.value)
			if err != nil {
				return false, err
			}
			in.FinalScriptWitness = stack
			return true, nil

		case inRipemd160:
			var h [20]byte
			if len(kp.key.keyData) != 20 {
				return false, ErrInvalidTypeValue
			}
			copy(h[:], kp.key.keyData)
			in.Ripemd160Preimages[h] = kp.value
			return true, nil

		case inHash160:
			var h [20]byte
			if len(kp.key.keyData) != 20 {
				return false, ErrInvalidTypeValue
			}
			copy(h[:], kp.key.keyData)
			in.Hash160Preimages[h] = kp.value
			return true, nil

		case inSha256:
			var h [32]byte
			if len(kp.key.keyData) != 32 {
				return false, ErrInvalidTypeValue
			}
			copy(h[:], kp.key.keyData)
			in.Sha256Preimages[h] = kp.value
			return true, nil

		case inHash256:
			var h [32]byte
			if len(kp.key.keyData) != 32 {
				return false, ErrInvalidTypeValue
			}
			copy(h[:], kp.key.keyData)
			in.Hash256Preimages[h] = kp.value
			return true, nil

		case inTapKeySig:
			if kp.key.keyData != nil || (len(kp.value) != 64 && len(kp.value) != 65) {
				return false, ErrInvalidTypeValue
			}
			in.TapKeySig = kp.value
			return true, nil

		case inTapScriptSig:
			if len(kp.key.keyData) != 64 {
				return false, ErrInvalidTypeValue
			}
			if len(kp.value) != 64 && len(kp.value) != 65 {
				return false, ErrInvalidTypeValue
			}
			var k TapScriptSigKey
			copy(k.XOnlyPubKey[:], kp.key.keyData[:32])
			copy(k.LeafHash[:], kp.key.keyData[32:])
			in.TapScriptSigs[k] = kp.value
			return true, nil

		case inTapLeafScript:
			if len(kp.key.keyData) == 0 || len(kp.value) == 0 {
				return false, ErrInvalidTypeValue
			}
			script := kp.value[:len(kp.value)-1]
			version := txscript.TapscriptLeafVersion(kp.value[len(kp.value)-1])
			k := TapLeafScriptKey{Script: string(script), LeafVersion: version}
			in.TapLeafScripts[k] = append(in.TapLeafScripts[k], kp.key.keyData)
			return true, nil

		case inTapBip32Derivation:
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
			in.TapBip32Paths[xonly] = &TapBip32Entry{LeafHashes: leafHashes, Origin: origin}
			return true, nil

		case inTapInternalKey:
			if kp.key.keyData != nil || len(kp.value) != 32 {
				return false, ErrInvalidTypeValue
			}
			in.TapInternalKey = kp.value
			return true, nil

		case inTapMerkleRoot:
			if kp.key.keyData != nil || len(kp.value) != 32 {
				return false, ErrInvalidTypeValue
			}
			in.TapMerkleRoot = kp.value
			return true, nil

		case inProprietary:
			p, err := proprietaryFromKey(kp.key, kp.value)
			if err != nil {
				return false, err
			}
			in.Proprietary = append(in.Proprietary, p)
			return true, nil

		default:
			return false, nil
		}
	})
	if err != nil {
		return nil, err
	}
	for _, u := range unknowns {
		in.Unknown[string(u.key)] = u.value
	}

	return in, nil
}
