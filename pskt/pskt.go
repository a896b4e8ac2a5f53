package pskt

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Packet is the PartiallySignedTransaction: the global record plus its
// parallel per-input and per-output vectors (§3.1).
//
// The unsigned transaction's TxIn/TxOut vectors are logically parallel to
// Inputs/Outputs; every mutation goes through AddInput/AddOutput so the two
// never drift apart (§9, "no back-references or weak pointers").
type Packet struct {
	UnsignedTx *wire.MsgTx
	Inputs     []*Input
	Outputs    []*Output
	Global     *Global
}

// New builds an empty PSKT with the given unsigned tx skeleton, allocating
// one empty Input/Output per existing vin/vout (§4.2).
func New(tx *wire.MsgTx) (*Packet, error) {
	for _, in := range tx.TxIn {
		if len(in.SignatureScript) != 0 || len(in.Witness) != 0 {
			return nil, ErrUnsignedTxSigned
		}
	}

	inputs := make([]*Input, len(tx.TxIn))
	for i := range inputs {
		inputs[i] = newInput()
	}
	outputs := make([]*Output, len(tx.TxOut))
	for i := range outputs {
		outputs[i] = newOutput()
	}

	return &Packet{
		UnsignedTx: tx,
		Inputs:     inputs,
		Outputs:    outputs,
		Global:     newGlobal(),
	}, nil
}

// hasOutpoint reports whether the given outpoint is already spent by an
// existing input.
func (p *Packet) hasOutpoint(op wire.OutPoint) bool {
	for _, in := range p.UnsignedTx.TxIn {
		if in.PreviousOutPoint == op {
			return true
		}
	}
	return false
}

// AddInput appends a new input to both the unsigned transaction and the
// input record vector atomically (§4.2). It is rejected if the outpoint is
// already spent by this PSKT.
func (p *Packet) AddInput(op wire.OutPoint, sequence uint32) error {
	if p.hasOutpoint(op) {
		return ErrOutpointAlreadyPresent
	}
	p.UnsignedTx.TxIn = append(p.UnsignedTx.TxIn, wire.NewTxIn(&op, nil, nil))
	p.UnsignedTx.TxIn[len(p.UnsignedTx.TxIn)-1].Sequence = sequence
	p.Inputs = append(p.Inputs, newInput())
	return nil
}

// AddOutput appends a new output to both the unsigned transaction and the
// output record vector atomically (§4.2).
func (p *Packet) AddOutput(pkScript []byte, value int64) {
	p.UnsignedTx.TxOut = append(p.UnsignedTx.TxOut, wire.NewTxOut(value, pkScript))
	p.Outputs = append(p.Outputs, newOutput())
}

// GetInputUTXO returns the spent output for input i, preferring
// NonWitnessUtxo (with hash/index verification) over WitnessUtxo (§4.2).
func (p *Packet) GetInputUTXO(i int) (*wire.TxOut, error) {
	if i < 0 || i >= len(p.Inputs) {
		return nil, ErrInputIndexOutOfRange
	}
	in := p.Inputs[i]
	prevout := p.UnsignedTx.TxIn[i].PreviousOutPoint

	if in.NonWitnessUtxo != nil {
		txHash := in.NonWitnessUtxo.TxHash()
		if txHash != chainhash.Hash(prevout.Hash) {
			return nil, ErrUtxoMismatch
		}
		if int(prevout.Index) >= len(in.NonWitnessUtxo.TxOut) {
			return nil, ErrUtxoMismatch
		}
		return in.NonWitnessUtxo.TxOut[prevout.Index], nil
	}
	if in.WitnessUtxo != nil {
		return in.WitnessUtxo, nil
	}
	return nil, ErrUtxoMissing
}

// IsComplete reports whether every input has been finalized (§4.5).
func (p *Packet) IsComplete() bool {
	for _, in := range p.Inputs {
		if !in.IsFinalized() {
			return false
		}
	}
	return true
}

// SanityCheck verifies the structural invariants of §3.1: parallel vector
// lengths, no signed data in the unsigned tx, unique unknown/proprietary
// keys per section (already enforced at decode time by the codec).
func (p *Packet) SanityCheck() error {
	if len(p.Inputs) != len(p.UnsignedTx.TxIn) {
		return ErrSectionCountMismatch
	}
	if len(p.Outputs) != len(p.UnsignedTx.TxOut) {
		return ErrSectionCountMismatch
	}
	for _, in := range p.UnsignedTx.TxIn {
		if len(in.SignatureScript) != 0 || len(in.Witness) != 0 {
			return ErrUnsignedTxSigned
		}
	}
	return nil
}
