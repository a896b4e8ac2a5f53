package rpc

import (
	"bytes"
	cryptorand "crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/rand"

	"github.com/btcsuite/btcd/wire"
	"github.com/koyotecoin/koyotecoin/pskt"
)

// TxInput describes one input to create, as accepted by CreatePSKT.
type TxInput struct {
	Hash     wire.OutPoint
	Sequence uint32
}

// TxOutput describes one output to create, as accepted by CreatePSKT.
type TxOutput struct {
	PkScript []byte
	Value    int64
}

// CreatePSKT builds a fresh, empty PSKT around a caller-supplied set of
// inputs and outputs, matching `createpskt` (§6.2).
func CreatePSKT(inputs []TxInput, outputs []TxOutput, locktime uint32, version int32) (string, error) {
	tx := wire.NewMsgTx(version)
	tx.LockTime = locktime
	for _, in := range inputs {
		tx.AddTxIn(wire.NewTxIn(&in.Hash, nil, nil))
		tx.TxIn[len(tx.TxIn)-1].Sequence = in.Sequence
	}
	for _, out := range outputs {
		tx.AddTxOut(wire.NewTxOut(out.Value, out.PkScript))
	}

	p, err := pskt.New(tx)
	if err != nil {
		return "", wrapError(err)
	}
	b64, err := pskt.B64Encode(p)
	if err != nil {
		return "", wrapError(err)
	}
	return b64, nil
}

// ConvertToPSKT wraps an already-serialized unsigned transaction in an
// empty PSKT, matching `converttopskt` (§6.2).
func ConvertToPSKT(rawTx []byte) (string, error) {
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(rawTx)); err != nil {
		return "", wrapError(pskt.ErrDeserialization)
	}
	for _, in := range tx.TxIn {
		in.SignatureScript = nil
		in.Witness = nil
	}

	p, err := pskt.New(tx)
	if err != nil {
		return "", wrapError(err)
	}
	b64, err := pskt.B64Encode(p)
	if err != nil {
		return "", wrapError(err)
	}
	return b64, nil
}

// CombinePSKT merges every PSKT in psts into one, matching `combinepskt`
// (§6.2). All must describe the same unsigned transaction.
func CombinePSKT(psts []string) (string, error) {
	packets, err := decodeAll(psts)
	if err != nil {
		return "", err
	}
	combined, err := pskt.Combine(packets)
	if err != nil {
		return "", wrapError(err)
	}
	b64, err := pskt.B64Encode(combined)
	if err != nil {
		return "", wrapError(err)
	}
	return b64, nil
}

// JoinPSKTs concatenates the disjoint inputs/outputs of several PSKTs
// describing *different* unsigned transactions into one, matching
// `joinpskts` (§6.2). It rejects any outpoint that appears in more than one
// input PSKT. The joined input and output orders are shuffled with source;
// a nil source uses a generator seeded from crypto/rand (§6, supplemented
// feature).
func JoinPSKTs(psts []string, source rand.Source) (string, error) {
	packets, err := decodeAll(psts)
	if err != nil {
		return "", err
	}
	if len(packets) == 0 {
		return "", wrapError(pskt.ErrInvalidParameter)
	}

	tx := wire.NewMsgTx(maxVersion(packets))
	tx.LockTime = minLocktime(packets)

	joined, err := pskt.New(tx)
	if err != nil {
		return "", wrapError(err)
	}

	seen := make(map[wire.OutPoint]bool)
	for _, p := range packets {
		joined.Global = pskt.MergeGlobal(joined.Global, p.Global)

		for i, txin := range p.UnsignedTx.TxIn {
			if seen[txin.PreviousOutPoint] {
				return "", wrapError(pskt.ErrInputDuplicated)
			}
			seen[txin.PreviousOutPoint] = true
			if err := joined.AddInput(txin.PreviousOutPoint, txin.Sequence); err != nil {
				return "", wrapError(err)
			}
			joined.Inputs[len(joined.Inputs)-1] = p.Inputs[i]
		}
		for i, txout := range p.UnsignedTx.TxOut {
			joined.AddOutput(txout.PkScript, txout.Value)
			joined.Outputs[len(joined.Outputs)-1] = p.Outputs[i]
		}
	}

	if source == nil {
		var seed [8]byte
		if _, err := cryptorand.Read(seed[:]); err != nil {
			return "", wrapError(err)
		}
		source = rand.NewSource(int64(binary.LittleEndian.Uint64(seed[:])))
	}
	shufflePacket(joined, source)

	b64, err := pskt.B64Encode(joined)
	if err != nil {
		return "", wrapError(err)
	}
	return b64, nil
}

// maxVersion returns the highest unsigned-tx version across packets, the
// same "best_version starts at 1, take the max" rule Bitcoin Core's
// joinpsbts uses so the joined transaction can carry whatever version any
// of its sources required.
func maxVersion(packets []*pskt.Packet) int32 {
	max := int32(1)
	for _, p := range packets {
		if p.UnsignedTx.Version > max {
			max = p.UnsignedTx.Version
		}
	}
	return max
}

// minLocktime returns the lowest unsigned-tx locktime across packets,
// mirroring Bitcoin Core's "best_locktime starts at 0xffffffff, take the
// min" rule: a joined transaction must not lock later than any of its
// sources required.
func minLocktime(packets []*pskt.Packet) uint32 {
	min := uint32(0xffffffff)
	for _, p := range packets {
		if p.UnsignedTx.LockTime < min {
			min = p.UnsignedTx.LockTime
		}
	}
	return min
}

// shufflePacket permutes the input and output vectors of p in lockstep
// with their PSKT records, using source for randomness (§6, joinpskts).
func shufflePacket(p *pskt.Packet, source rand.Source) {
	r := rand.New(source)

	inPerm := r.Perm(len(p.Inputs))
	newTxIn := make([]*wire.TxIn, len(p.Inputs))
	newIn := make([]*pskt.Input, len(p.Inputs))
	for i, j := range inPerm {
		newTxIn[i] = p.UnsignedTx.TxIn[j]
		newIn[i] = p.Inputs[j]
	}
	p.UnsignedTx.TxIn = newTxIn
	p.Inputs = newIn

	outPerm := r.Perm(len(p.Outputs))
	newTxOut := make([]*wire.TxOut, len(p.Outputs))
	newOut := make([]*pskt.Output, len(p.Outputs))
	for i, j := range outPerm {
		newTxOut[i] = p.UnsignedTx.TxOut[j]
		newOut[i] = p.Outputs[j]
	}
	p.UnsignedTx.TxOut = newTxOut
	p.Outputs = newOut
}

// FinalizePSKT finalizes every input of pst, matching `finalizepskt`
// (§6.2). If extract is true and the result is complete, the fully signed
// transaction is also returned hex-encoded; if extract is false the caller
// only wants the finalized PSKT back, mirroring finalizepsbt's own
// "extract" request parameter.
func FinalizePSKT(pst string, extract bool) (b64 string, hexTx string, complete bool, err error) {
	p, err := pskt.B64Decode(pst)
	if err != nil {
		return "", "", false, wrapError(err)
	}
	if ferr := pskt.FinalizePSKT(p); ferr != nil {
		return "", "", false, wrapError(ferr)
	}

	b64, err = pskt.B64Encode(p)
	if err != nil {
		return "", "", false, wrapError(err)
	}
	complete = p.IsComplete()

	if !extract || !complete {
		return b64, "", complete, nil
	}
	tx, err := pskt.Extract(p)
	if err != nil {
		return b64, "", complete, wrapError(err)
	}
	raw, err := serializeTx(tx)
	if err != nil {
		return b64, "", complete, wrapError(err)
	}
	return b64, hex.EncodeToString(raw), true, nil
}

// UtxoUpdatePSKT augments pst's inputs/outputs with previously resolved
// spending descriptors, matching `utxoupdatepskt` (§6.2, supplemented
// feature — see DESIGN.md for why this takes resolved descriptors rather
// than descriptor strings).
func UtxoUpdatePSKT(pst string, descriptors []OutputDescriptor) (string, error) {
	p, err := pskt.B64Decode(pst)
	if err != nil {
		return "", wrapError(err)
	}

	byScript := make(map[string]OutputDescriptor, len(descriptors))
	for _, d := range descriptors {
		byScript[string(d.Script)] = d
	}

	for i, out := range p.UnsignedTx.TxOut {
		d, ok := byScript[string(out.PkScript)]
		if !ok {
			continue
		}
		if err := pskt.UpdatePSKTOutput(pskt.NewDummySigningProvider(), p, i, d.RedeemScript, d.WitnessScript); err != nil {
			return "", wrapError(err)
		}
		for pk, origin := range d.HDKeypaths {
			p.Outputs[i].HDKeypaths[pk] = origin
		}
	}

	for i, in := range p.Inputs {
		utxo, err := p.GetInputUTXO(i)
		if err != nil {
			continue
		}
		d, ok := byScript[string(utxo.PkScript)]
		if !ok {
			continue
		}
		if len(d.RedeemScript) > 0 {
			in.RedeemScript = d.RedeemScript
		}
		if len(d.WitnessScript) > 0 {
			in.WitnessScript = d.WitnessScript
		}
		for pk, origin := range d.HDKeypaths {
			in.HDKeypaths[pk] = origin
		}
	}

	b64, err := pskt.B64Encode(p)
	if err != nil {
		return "", wrapError(err)
	}
	return b64, nil
}

// DecodePSKT renders pst as a JSON-friendly summary, matching `decodepskt`
// (§6.1).
func DecodePSKT(pst string) (*DecodeResult, error) {
	p, err := pskt.B64Decode(pst)
	if err != nil {
		return nil, wrapError(err)
	}

	res := &DecodeResult{
		Tx: TxSummary{
			Txid:      p.UnsignedTx.TxHash().String(),
			Version:   p.UnsignedTx.Version,
			Locktime:  p.UnsignedTx.LockTime,
			VinCount:  len(p.UnsignedTx.TxIn),
			VoutCount: len(p.UnsignedTx.TxOut),
		},
		Global: GlobalSummary{
			Version:     p.Global.GetVersion(),
			XpubCount:   len(p.Global.Xpubs),
			UnknownKeys: len(p.Global.Unknown),
		},
	}

	for i, in := range p.Inputs {
		res.Inputs = append(res.Inputs, InputSummary{
			Index:             i,
			HasNonWitnessUtxo: in.NonWitnessUtxo != nil,
			HasWitnessUtxo:    in.WitnessUtxo != nil,
			PartialSigCount:   len(in.PartialSigs),
			HasRedeemScript:   len(in.RedeemScript) > 0,
			HasWitnessScript:  len(in.WitnessScript) > 0,
			IsFinal:           in.IsFinalized(),
			HasTapKeySig:      len(in.TapKeySig) > 0,
			TapScriptSigCount: len(in.TapScriptSigs),
		})
	}
	for i, out := range p.Outputs {
		res.Outputs = append(res.Outputs, OutputSummary{
			Index:            i,
			HasRedeemScript:  len(out.RedeemScript) > 0,
			HasWitnessScript: len(out.WitnessScript) > 0,
			HasTapTree:       len(out.TapTree) > 0,
		})
	}

	if analysis, err := pskt.AnalyzePSKT(p, pskt.DefaultAnalyzerOptions()); err == nil && analysis.HasFee {
		res.Fee = analysis.Fee
	}

	return res, nil
}

// AnalyzePSKT renders the engine's analysis as a JSON-friendly summary,
// matching `analyzepskt` (§6.2).
func AnalyzePSKT(pst string, opts pskt.AnalyzerOptions) (*AnalyzeResult, error) {
	p, err := pskt.B64Decode(pst)
	if err != nil {
		return nil, wrapError(err)
	}

	analysis, err := pskt.AnalyzePSKT(p, opts)
	if err != nil {
		return nil, wrapError(err)
	}
	if analysis.Invalid {
		return &AnalyzeResult{Error: analysis.InvalidMsg}, nil
	}

	res := &AnalyzeResult{
		NextRole:       analysis.NextRole.String(),
		IsFinal:        analysis.IsFinal,
		EstimatedVSize: analysis.EstimatedVSize,
	}
	if analysis.HasFee {
		res.Fee = analysis.Fee
		res.FeeRate = analysis.FeeRate
	}
	for _, in := range analysis.Inputs {
		res.Inputs = append(res.Inputs, AnalyzeInputResult{
			Index:    in.Index,
			HasUTXO:  in.HasUTXO,
			IsFinal:  in.IsFinal,
			NextRole: in.NextRole.String(),
			Missing:  in.Missing,
		})
	}
	return res, nil
}

func decodeAll(psts []string) ([]*pskt.Packet, error) {
	packets := make([]*pskt.Packet, 0, len(psts))
	for _, s := range psts {
		p, err := pskt.B64Decode(s)
		if err != nil {
			return nil, wrapError(err)
		}
		packets = append(packets, p)
	}
	return packets, nil
}

func serializeTx(tx *wire.MsgTx) ([]byte, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("pskt: failed to serialize extracted transaction: %w", err)
	}
	return buf.Bytes(), nil
}
