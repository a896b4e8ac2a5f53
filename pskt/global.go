package pskt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/btcsuite/btcd/wire"
)

// Global section type codes (BIP-174).
const (
	globalUnsignedTx  uint8 = 0x00
	globalXpub        uint8 = 0x01
	globalVersion     uint8 = 0xfb
	globalProprietary uint8 = 0xfc
)

// KeyOrigin is a master-fingerprint + derivation-path pair as defined by
// BIP-32, used both for the global xpubs map and per-input/output HD
// keypaths (§3.1, §3.2, §3.3).
type KeyOrigin struct {
	Fingerprint [4]byte
	Path        []uint32
}

// String renders the origin as "fingerprint/path", e.g. "d34db33f/44'/0'/0'".
func (o KeyOrigin) String() string {
	s := fmt.Sprintf("%x", o.Fingerprint[:])
	for _, step := range o.Path {
		hardened := step&0x80000000 != 0
		idx := step &^ 0x80000000
		if hardened {
			s += fmt.Sprintf("/%d'", idx)
		} else {
			s += fmt.Sprintf("/%d", idx)
		}
	}
	return s
}

// key returns a value usable as a Go map key for this origin.
func (o KeyOrigin) key() string {
	buf := make([]byte, 4+4*len(o.Path))
	copy(buf, o.Fingerprint[:])
	for i, step := range o.Path {
		binary.LittleEndian.PutUint32(buf[4+4*i:], step)
	}
	return string(buf)
}

func decodeKeyOrigin(b []byte) (KeyOrigin, error) {
	if len(b) < 4 || len(b)%4 != 0 {
		return KeyOrigin{}, ErrInvalidTypeValue
	}
	var o KeyOrigin
	copy(o.Fingerprint[:], b[:4])
	for i := 4; i < len(b); i += 4 {
		o.Path = append(o.Path, binary.LittleEndian.Uint32(b[i:i+4]))
	}
	return o, nil
}

func encodeKeyOrigin(o KeyOrigin) []byte {
	buf := make([]byte, 4+4*len(o.Path))
	copy(buf, o.Fingerprint[:])
	for i, step := range o.Path {
		binary.LittleEndian.PutUint32(buf[4+4*i:], step)
	}
	return buf
}

// XpubGroup is the set of extended public keys declared under one key
// origin at global scope (§3.1). The in-memory model groups by origin
// (rather than by xpub, as the raw BIP-174 wire format does) so that
// Merge's "union xpubs, values are sets" rule (§4.3) is a direct map
// union instead of a special case.
type XpubGroup struct {
	Origin KeyOrigin
	Xpubs  map[string][]byte // set of raw serialized extended pubkeys, keyed by their own bytes
}

// Global is the global section of a PartiallySignedTransaction (§3.1).
type Global struct {
	Xpubs       map[string]*XpubGroup // keyed by KeyOrigin.key()
	Version     *uint32
	Proprietary []proprietary
	Unknown     map[string][]byte // keyed by raw key bytes
}

func newGlobal() *Global {
	return &Global{
		Xpubs:   make(map[string]*XpubGroup),
		Unknown: make(map[string][]byte),
	}
}

// GetVersion returns the PSKT format version, defaulting to 0 when absent
// per §9's open question.
func (g *Global) GetVersion() uint32 {
	if g.Version == nil {
		return 0
	}
	return *g.Version
}

// addXpub records an extended pubkey under its key origin.
func (g *Global) addXpub(origin KeyOrigin, xpub []byte) {
	k := origin.key()
	group, ok := g.Xpubs[k]
	if !ok {
		group = &XpubGroup{Origin: origin, Xpubs: make(map[string][]byte)}
		g.Xpubs[k] = group
	}
	group.Xpubs[string(xpub)] = xpub
}

func (g *Global) unknownKeys() []string {
	keys := make([]string, 0, len(g.Unknown))
	for k := range g.Unknown {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// serializeGlobal writes the global section: the unsigned tx record first,
// then xpubs, version and proprietary records in type-code order, then
// unknowns, terminated by a separator (§4.1, canonical encoding).
func serializeGlobal(w io.Writer, tx *wire.MsgTx, g *Global) error {
	var txBuf bytes.Buffer
	if err := tx.SerializeNoWitness(&txBuf); err != nil {
		return err
	}
	if err := writeKeyPair(w, globalUnsignedTx, nil, txBuf.Bytes()); err != nil {
		return err
	}

	// Deterministic order: sort xpub groups by origin key, and within a
	// group sort by xpub bytes, so re-encoding a decoded PSKT is
	// byte-for-byte canonical (§8, "canonical encoding").
	originKeys := make([]string, 0, len(g.Xpubs))
	for k := range g.Xpubs {
		originKeys = append(originKeys, k)
	}
	sort.Strings(originKeys)
	for _, ok := range originKeys {
		group := g.Xpubs[ok]
		xpubKeys := make([]string, 0, len(group.Xpubs))
		for k := range group.Xpubs {
			xpubKeys = append(xpubKeys, k)
		}
		sort.Strings(xpubKeys)
		for _, xk := range xpubKeys {
			xpub := group.Xpubs[xk]
			if err := writeKeyPair(w, globalXpub, xpub, encodeKeyOrigin(group.Origin)); err != nil {
				return err
			}
		}
	}

	if g.Version != nil {
		val := make([]byte, 4)
		binary.LittleEndian.PutUint32(val, *g.Version)
		if err := writeKeyPair(w, globalVersion, nil, val); err != nil {
			return err
		}
	}

	for _, p := range g.Proprietary {
		if err := writeKeyPair(w, globalProprietary, proprietaryKeyBytes(p), p.value); err != nil {
			return err
		}
	}

	for _, k := range g.unknownKeys() {
		if err := writeUnknown(w, unknown{key: []byte(k), value: g.Unknown[k]}); err != nil {
			return err
		}
	}

	return writeSeparator(w)
}

// deserializeGlobal reads the global section, returning the parsed unsigned
// transaction and the rest of the global record set.
func deserializeGlobal(r io.Reader) (*wire.MsgTx, *Global, error) {
	kp, err := readKeyPair(r)
	if err != nil {
		return nil, nil, err
	}
	if kp == nil || kp.key.keyType != globalUnsignedTx {
		return nil, nil, ErrInvalidTypeValue
	}
	if kp.key.keyData != nil {
		return nil, nil, ErrInvalidTypeValue
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.DeserializeNoWitness(bytes.NewReader(kp.value)); err != nil {
		return nil, nil, ErrInvalidTypeValue
	}
	for _, in := range tx.TxIn {
		if len(in.SignatureScript) != 0 || len(in.Witness) != 0 {
			return nil, nil, ErrUnsignedTxSigned
		}
	}

	g := newGlobal()
	seen := newKeySeen()
	seen.add(globalUnsignedTx, nil)

	unknowns, err := drainSection(r, seen, func(kp *keyPair) (bool, error) {
		switch kp.key.keyType {
		case globalXpub:
			if len(kp.key.keyData) == 0 {
				return false, ErrInvalidTypeValue
			}
			origin, err := decodeKeyOrigin(kp.value)
			if err != nil {
				return false, err
			}
			g.addXpub(origin, kp.key.keyData)
			return true, nil
		case globalVersion:
			if len(kp.value) != 4 {
				return false, ErrInvalidTypeValue
			}
			v := binary.LittleEndian.Uint32(kp.value)
			g.Version = &v
			return true, nil
		case globalProprietary:
			p, err := proprietaryFromKey(kp.key, kp.value)
			if err != nil {
				return false, err
			}
			g.Proprietary = append(g.Proprietary, p)
			return true, nil
		default:
			return false, nil
		}
	})
	if err != nil {
		return nil, nil, err
	}
	for _, u := range unknowns {
		g.Unknown[string(u.key)] = u.value
	}

	return tx, g, nil
}
