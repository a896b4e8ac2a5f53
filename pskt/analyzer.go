package pskt

import (
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
)

// AnalyzerOptions threads policy knobs through analysis instead of relying
// on package-level state (§9, "no hidden global state"). NBytesPerSigOp
// scales the whole transaction's signature-operation cost in the virtual
// size estimate, which uses the larger of that product and the weight.
type AnalyzerOptions struct {
	NBytesPerSigOp int64
}

// DefaultAnalyzerOptions returns the conservative defaults used when the
// caller has no policy preference: NBytesPerSigOp matches koyotecoin's
// mainnet policy constant (20, the same value Bitcoin Core's
// nBytesPerSigOp uses).
func DefaultAnalyzerOptions() AnalyzerOptions {
	return AnalyzerOptions{NBytesPerSigOp: 20}
}

// InputAnalysis is the per-input result of AnalyzePSKTInput (§4.6).
type InputAnalysis struct {
	Index      int
	HasUTXO    bool
	IsFinal    bool
	NextRole   PSKTRole
	Missing    string // reason tag, e.g. "utxo", "sigs", "redeemscript"
	Invalid    bool
	InvalidMsg string
}

// PSKTAnalysis is the whole-packet result of AnalyzePSKT (§4.6).
type PSKTAnalysis struct {
	Inputs         []InputAnalysis
	NextRole       PSKTRole
	IsFinal        bool
	EstimatedVSize int64
	Fee            int64
	HasFee         bool
	FeeRate        float64 // satoshis per 1000 virtual bytes (kvB)
	Invalid        bool
	InvalidMsg     string
}

// SetInvalid marks a as structurally invalid with a caller-supplied reason,
// short-circuiting further role/fee computation (§4.6).
func (a *PSKTAnalysis) SetInvalid(msg string) {
	a.Invalid = true
	a.InvalidMsg = msg
}

// AnalyzePSKTInput classifies input i's readiness without mutating p: it
// determines whether the coin being spent is known, whether the input is
// already finalized, and what role would need to act on it next.
func AnalyzePSKTInput(p *Packet, i int) (InputAnalysis, error) {
	if i < 0 || i >= len(p.Inputs) {
		return InputAnalysis{}, ErrInputIndexOutOfRange
	}
	in := p.Inputs[i]
	res := InputAnalysis{Index: i}

	if _, err := p.GetInputUTXO(i); err != nil {
		res.HasUTXO = false
		res.NextRole = RoleUpdater
		res.Missing = "utxo"
		return res, nil
	}
	res.HasUTXO = true

	if in.IsFinalized() {
		res.IsFinal = true
		res.NextRole = RoleExtractor
		return res, nil
	}

	// Attempt finalization on an isolated copy so analysis never mutates
	// the packet it inspects.
	cp := *in
	scratch := &Packet{UnsignedTx: p.UnsignedTx, Inputs: append(append([]*Input{}, p.Inputs[:i]...), &cp)}
	scratch.Inputs = append(scratch.Inputs, p.Inputs[i+1:]...)
	if err := FinalizePSKTInput(scratch, i); err == nil {
		res.NextRole = RoleFinalizer
		return res, nil
	}

	// Only signatures missing (no missing script or pubkey) means a
	// signer can act next; anything else still needs an updater.
	sd := FillSignatureData(p, i)
	switch {
	case sd.MissingRedeemScript:
		res.Missing = "redeemscript"
		res.NextRole = RoleUpdater
	case sd.MissingWitnessScript:
		res.Missing = "witnessscript"
		res.NextRole = RoleUpdater
	case len(sd.MissingPubkeys) > 0:
		res.Missing = "pubkeys"
		res.NextRole = RoleUpdater
	default:
		res.Missing = "sigs"
		res.NextRole = RoleSigner
	}
	return res, nil
}

// AnalyzePSKT walks every input, then reports the PSKT-wide next role (the
// minimum across all per-input next roles, since the whole packet cannot
// advance past whatever its least-ready input requires) plus a fee/vsize
// estimate when every input's UTXO is known (§4.6).
func AnalyzePSKT(p *Packet, opts AnalyzerOptions) (*PSKTAnalysis, error) {
	if err := p.SanityCheck(); err != nil {
		return nil, err
	}

	analysis := &PSKTAnalysis{}
	nextRole := RoleExtractor
	allFinal := true

	var totalIn int64
	haveAllUTXOs := true

	for i := range p.Inputs {
		res, err := AnalyzePSKTInput(p, i)
		if err != nil {
			return nil, err
		}

		if res.HasUTXO {
			utxo, _ := p.GetInputUTXO(i)
			if !moneyRange(utxo.Value) || !moneyRange(totalIn+utxo.Value) {
				analysis.SetInvalid(fmt.Sprintf("PSKT is not valid. Input %d has invalid value", i))
				analysis.NextRole = RoleCreator
				return analysis, nil
			}
			if isUnspendable(utxo.PkScript) {
				analysis.SetInvalid(fmt.Sprintf("PSKT is not valid. Input %d spends unspendable output", i))
				analysis.NextRole = RoleCreator
				return analysis, nil
			}
			totalIn += utxo.Value
		} else {
			haveAllUTXOs = false
		}

		analysis.Inputs = append(analysis.Inputs, res)
		nextRole = minRole(nextRole, res.NextRole)
		if !res.IsFinal {
			allFinal = false
		}
	}

	analysis.NextRole = nextRole
	analysis.IsFinal = allFinal

	if haveAllUTXOs {
		var totalOut int64
		validOut := true
		for _, out := range p.UnsignedTx.TxOut {
			if !moneyRange(totalOut) || !moneyRange(out.Value) || !moneyRange(totalOut+out.Value) {
				validOut = false
				break
			}
			totalOut += out.Value
		}
		if !validOut || !moneyRange(totalOut) {
			analysis.SetInvalid("PSKT is not valid. Output amount invalid")
			analysis.NextRole = RoleCreator
			return analysis, nil
		}

		fee := totalIn - totalOut
		analysis.Fee = fee
		analysis.HasFee = true

		vsize := estimateVirtualSize(p, opts)
		analysis.EstimatedVSize = vsize
		if vsize > 0 {
			analysis.FeeRate = float64(fee) * 1000 / float64(vsize)
		}
	}

	return analysis, nil
}

// estimateVirtualSize builds a scratch copy of the unsigned transaction with
// every input's currently-known scriptSig/witness written in (finalized, or
// opportunistically finalizable from whatever signature data already
// exists), then applies Bitcoin Core's virtual-size formula:
// ceil(max(weight, sigOpCost*nBytesPerSigOp) / 4) (§4.6). Inputs that
// cannot yet be finalized carry no scriptSig or witness bytes, same as in
// the unsigned tx.
func estimateVirtualSize(p *Packet, opts AnalyzerOptions) int64 {
	mtx := p.UnsignedTx.Copy()

	var sigOpCost int64
	for i := range p.Inputs {
		in := p.Inputs[i]
		utxo, err := p.GetInputUTXO(i)
		if err != nil {
			continue
		}

		scriptSig, witness := in.FinalScriptSig, in.FinalScriptWitness
		if !in.IsFinalized() {
			cp := *in
			scratch := &Packet{UnsignedTx: p.UnsignedTx, Inputs: append(append([]*Input{}, p.Inputs[:i]...), &cp)}
			scratch.Inputs = append(scratch.Inputs, p.Inputs[i+1:]...)
			if err := FinalizePSKTInput(scratch, i); err == nil {
				scriptSig, witness = cp.FinalScriptSig, cp.FinalScriptWitness
			}
		}

		mtx.TxIn[i].SignatureScript = scriptSig
		mtx.TxIn[i].Witness = witness

		sigOpCost += inputSigOpCost(utxo.PkScript, in)
	}

	weight := blockchain.GetTransactionWeight(btcutil.NewTx(mtx))
	sigOpWeight := sigOpCost * opts.NBytesPerSigOp
	vsize := weight
	if sigOpWeight > vsize {
		vsize = sigOpWeight
	}
	return (vsize + 3) / 4
}

// inputSigOpCost approximates Bitcoin Core's GetTransactionSigOpCost per
// input: legacy and P2SH-wrapped sigops count 4x (WITNESS_SCALE_FACTOR),
// native/wrapped segwit sigops count 1x (§4.6).
func inputSigOpCost(pkScript []byte, in *Input) int64 {
	const witnessScaleFactor = 4

	scriptCode := pkScript
	class := classifyScript(pkScript)
	legacyWeight := int64(witnessScaleFactor)

	if class == txscript.ScriptHashTy && len(in.RedeemScript) > 0 {
		scriptCode = in.RedeemScript
		class = classifyScript(scriptCode)
	}
	if class == txscript.WitnessV0ScriptHashTy {
		legacyWeight = 1
		if len(in.WitnessScript) > 0 {
			scriptCode = in.WitnessScript
		}
	} else if class == txscript.WitnessV0PubKeyHashTy || class == txscript.WitnessV1TaprootTy {
		return 1
	}

	if class == txscript.MultiSigTy {
		_, n, err := txscript.CalcMultiSigStats(scriptCode)
		if err == nil {
			return int64(n) * legacyWeight
		}
	}
	if class == txscript.PubKeyHashTy || class == txscript.PubKeyTy {
		return legacyWeight
	}
	return 0
}

// moneyRange reports whether amt is a plausible satoshi amount, mirroring
// Bitcoin Core's MoneyRange check used throughout PSKT analysis.
func moneyRange(amt int64) bool {
	return amt >= 0 && amt <= btcutil.MaxSatoshi
}

// isUnspendable reports whether pkScript can never be spent: an OP_RETURN
// data carrier or a script too large to ever execute.
func isUnspendable(pkScript []byte) bool {
	return (len(pkScript) > 0 && pkScript[0] == txscript.OP_RETURN) ||
		len(pkScript) > txscript.MaxScriptSize
}
