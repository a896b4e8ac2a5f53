package pskt

import (
	"bytes"
	"io"

	"github.com/btcsuite/btcd/wire"
)

// psktMagic is the 5-byte prefix that opens every raw PSKT serialization:
// "pskt" followed by 0xff.
var psktMagic = [5]byte{0x70, 0x73, 0x6b, 0x74, 0xff}

// key is the <keytype><keydata> portion of a key/value record.
type key struct {
	keyType uint8
	keyData []byte
}

// keyPair is one <key><value> record of a PSKT section.
type keyPair struct {
	key   key
	value []byte
}

// unknown captures a key/value record whose type code was not recognized by
// this package, preserved verbatim for forward compatibility (§4.1).
type unknown struct {
	key   []byte // full key bytes: keytype byte followed by keydata
	value []byte
}

// proprietary is a (identifier, subtype, keydata, value) record reserved for
// third-party extensions (§3.1, §3.3).
type proprietary struct {
	identifier []byte
	subtype    uint8
	keyData    []byte
	value      []byte
}

// proprietaryKeyBytes reassembles the raw key bytes (without the leading
// type byte 0xfc, which the caller already knows) for a proprietary record.
func proprietaryKeyBytes(p proprietary) []byte {
	var buf bytes.Buffer
	_ = wire.WriteVarBytes(&buf, 0, p.identifier)
	buf.WriteByte(p.subtype)
	buf.Write(p.keyData)
	return buf.Bytes()
}

func proprietaryFromKey(k key, value []byte) (proprietary, error) {
	if k.keyType != 0xfc {
		return proprietary{}, ErrInvalidProprietaryKey
	}
	r := bytes.NewReader(k.keyData)
	identifier, err := wire.ReadVarBytes(r, 0, MaxKeyLength, "proprietary identifier")
	if err != nil {
		return proprietary{}, ErrInvalidTypeValue
	}
	subtype, err := r.ReadByte()
	if err != nil {
		return proprietary{}, ErrInvalidTypeValue
	}
	rest, _ := io.ReadAll(r)
	return proprietary{
		identifier: identifier,
		subtype:    subtype,
		keyData:    rest,
		value:      value,
	}, nil
}

// writeKeyPair writes a single <keylen><keytype><keydata><vallen><valdata>
// record to w.
func writeKeyPair(w io.Writer, keyType uint8, keyData, value []byte) error {
	fullKey := make([]byte, 0, len(keyData)+1)
	fullKey = append(fullKey, keyType)
	fullKey = append(fullKey, keyData...)

	if err := wire.WriteVarBytes(w, 0, fullKey); err != nil {
		return err
	}
	return wire.WriteVarBytes(w, 0, value)
}

// writeUnknown writes a raw, previously-unrecognized key/value record back
// out verbatim.
func writeUnknown(w io.Writer, u unknown) error {
	if err := wire.WriteVarBytes(w, 0, u.key); err != nil {
		return err
	}
	return wire.WriteVarBytes(w, 0, u.value)
}

// writeSeparator writes the single 0x00 byte terminating a section.
func writeSeparator(w io.Writer) error {
	_, err := w.Write([]byte{0x00})
	return err
}

// readKeyPair reads the next key/value record from r. A nil, nil return
// indicates the section separator (an empty key) was consumed.
func readKeyPair(r io.Reader) (*keyPair, error) {
	keyLen, err := wire.ReadVarInt(r, 0)
	if err != nil {
		if err == io.EOF {
			return nil, ErrTruncated
		}
		return nil, err
	}
	if keyLen == 0 {
		return nil, nil
	}
	if keyLen > MaxKeyLength {
		return nil, ErrInvalidKeySize
	}

	rawKey := make([]byte, keyLen)
	if _, err := io.ReadFull(r, rawKey); err != nil {
		return nil, ErrTruncated
	}

	value, err := wire.ReadVarBytes(r, 0, MaxUtxoValueLength, "value")
	if err != nil {
		return nil, ErrTruncated
	}

	kp := &keyPair{
		key: key{
			keyType: rawKey[0],
			keyData: nil,
		},
		value: value,
	}
	if len(rawKey) > 1 {
		kp.key.keyData = rawKey[1:]
	}
	return kp, nil
}

// keySeen tracks keys already observed within one section, to reject
// duplicates per §4.1.
type keySeen struct {
	seen map[string]bool
}

func newKeySeen() *keySeen {
	return &keySeen{seen: make(map[string]bool)}
}

// add returns false if (keyType, keyData) has already been added.
func (s *keySeen) add(keyType uint8, keyData []byte) bool {
	k := string(append([]byte{keyType}, keyData...))
	if s.seen[k] {
		return false
	}
	s.seen[k] = true
	return true
}

// drainSection drains any remaining records in a section into an ordered
// slice of unknown key/value pairs, stopping at the section separator.
// Callers pass a handle func that returns handled=true for keys they
// already dealt with in their own switch; unhandled keys become unknowns.
func drainSection(r io.Reader, seen *keySeen, handle func(kp *keyPair) (handled bool, err error)) ([]unknown, error) {
	var unknowns []unknown
	for {
		kp, err := readKeyPair(r)
		if err != nil {
			return nil, err
		}
		if kp == nil {
			return unknowns, nil
		}
		if !seen.add(kp.key.keyType, kp.key.keyData) {
			return nil, ErrDuplicateKey
		}
		handled, err := handle(kp)
		if err != nil {
			return nil, err
		}
		if !handled {
			fullKey := append([]byte{kp.key.keyType}, kp.key.keyData...)
			unknowns = append(unknowns, unknown{key: fullKey, value: kp.value})
		}
	}
}
