package pskt

import (
	"bytes"
	"encoding/base64"
	"io"
)

// Encode serializes p to the raw binary PSKT format: magic bytes, the
// global section, then one section per input and output, in order (§4.1).
func Encode(p *Packet) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(psktMagic[:])

	if err := serializeGlobal(&buf, p.UnsignedTx, p.Global); err != nil {
		return nil, err
	}
	for _, in := range p.Inputs {
		if err := serializeInput(&buf, in); err != nil {
			return nil, err
		}
	}
	for _, out := range p.Outputs {
		if err := serializeOutput(&buf, out); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// B64Encode is Encode followed by standard base64 encoding, the form used
// by the RPC surface (§6.1).
func B64Encode(p *Packet) (string, error) {
	raw, err := Encode(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses the raw binary PSKT format produced by Encode, validating
// magic bytes, section counts against the unsigned tx, and rejecting
// trailing data (§4.1, §7).
func Decode(raw []byte) (*Packet, error) {
	r := bytes.NewReader(raw)

	var magic [5]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != psktMagic {
		return nil, ErrBadMagic
	}

	tx, global, err := deserializeGlobal(r)
	if err != nil {
		return nil, err
	}

	inputs := make([]*Input, len(tx.TxIn))
	for i := range inputs {
		in, err := deserializeInput(r)
		if err != nil {
			return nil, err
		}
		inputs[i] = in
	}

	outputs := make([]*Output, len(tx.TxOut))
	for i := range outputs {
		out, err := deserializeOutput(r)
		if err != nil {
			return nil, err
		}
		outputs[i] = out
	}

	if r.Len() != 0 {
		return nil, ErrTrailingBytes
	}

	p := &Packet{
		UnsignedTx: tx,
		Inputs:     inputs,
		Outputs:    outputs,
		Global:     global,
	}
	if err := p.SanityCheck(); err != nil {
		return nil, err
	}
	return p, nil
}

// B64Decode base64-decodes s and then parses it with Decode, the inverse
// of B64Encode.
func B64Decode(s string) (*Packet, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrDeserialization
	}
	return Decode(raw)
}
