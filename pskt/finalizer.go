package pskt

import (
	"bytes"
	"errors"
	"sort"

	"github.com/btcsuite/btcd/txscript"
)

// FinalizePSKTInput attempts to build the final scriptSig/witness for input
// i from whatever signature data it currently carries (§4.5). It is
// idempotent: finalizing an already-finalized input succeeds without
// changing it.
func FinalizePSKTInput(p *Packet, i int) error {
	if i < 0 || i >= len(p.Inputs) {
		return ErrInputIndexOutOfRange
	}
	in := p.Inputs[i]
	if in.IsFinalized() {
		return nil
	}

	utxo, err := p.GetInputUTXO(i)
	if err != nil {
		return err
	}

	originalClass := classifyScript(utxo.PkScript)

	scriptCode, class, err := resolveScriptCode(in, utxo.PkScript, nil)
	if err != nil {
		return err
	}

	prefixScript := []byte(nil)
	if originalClass == txscript.ScriptHashTy {
		prefixScript = in.RedeemScript
	}

	switch {
	case class == txscript.WitnessV1TaprootTy:
		return finalizeTaproot(in, utxo.PkScript)

	case class == txscript.WitnessV0ScriptHashTy:
		return finalizeWitnessScriptHash(in, scriptCode, prefixScript)

	case class == txscript.WitnessV0PubKeyHashTy:
		return finalizeWitnessKeyHash(in, prefixScript)

	case class == txscript.MultiSigTy:
		return finalizeMultisig(in, scriptCode, prefixScript, false)

	case class == txscript.PubKeyHashTy:
		return finalizePubKeyHash(in)

	case class == txscript.PubKeyTy:
		return finalizePubKey(in)

	default:
		return ErrUnsupportedScriptType
	}
}

// FinalizePSKT finalizes every input it can from the signature data already
// present; no new signatures are produced (§4.5). Inputs that still lack a
// UTXO, a script or signatures are left as they are, so the caller checks
// IsComplete afterwards; any other per-input error is returned.
func FinalizePSKT(p *Packet) error {
	for i := range p.Inputs {
		err := FinalizePSKTInput(p, i)
		if err != nil && !errors.Is(err, ErrIncomplete) &&
			!errors.Is(err, ErrNotFinalizable) && !errors.Is(err, ErrUtxoMissing) {
			return err
		}
	}
	return nil
}

func finalizePubKey(in *Input) error {
	for _, sig := range in.PartialSigs {
		in.FinalScriptSig = mustPushScript(sig)
		return nil
	}
	return ErrIncomplete
}

func finalizePubKeyHash(in *Input) error {
	for pub, sig := range in.PartialSigs {
		builder := txscript.NewScriptBuilder()
		builder.AddData(sig)
		builder.AddData([]byte(pub))
		script, err := builder.Script()
		if err != nil {
			return err
		}
		in.FinalScriptSig = script
		return nil
	}
	return ErrIncomplete
}

func finalizeWitnessKeyHash(in *Input, prefixScript []byte) error {
	for pub, sig := range in.PartialSigs {
		in.FinalScriptWitness = [][]byte{sig, []byte(pub)}
		if prefixScript != nil {
			in.FinalScriptSig = mustPushScript(prefixScript)
		}
		return nil
	}
	return ErrIncomplete
}

func finalizeMultisig(in *Input, witnessScript, prefixScript []byte, witness bool) error {
	pubKeys, numSigs, err := txscript.CalcMultiSigStats(witnessScript)
	if err != nil {
		return ErrUnsupportedScriptType
	}
	_ = numSigs

	required := requiredSigCount(witnessScript)
	var pubs, sigs [][]byte
	for pk, sig := range in.PartialSigs {
		pubs = append(pubs, []byte(pk))
		sigs = append(sigs, sig)
	}
	if len(sigs) < required {
		return ErrIncomplete
	}
	sort.Slice(pubs, func(i, j int) bool { return bytes.Compare(pubs[i], pubs[j]) < 0 })
	sigsByPub := make(map[string][]byte, len(pubs))
	for _, pk := range pubs {
		sigsByPub[string(pk)] = in.PartialSigs[string(pk)]
	}
	pubs = pubs[:required]
	sigs = sigs[:0]
	for _, pk := range pubs {
		sigs = append(sigs, sigsByPub[string(pk)])
	}

	ordered, err := extractKeyOrderFromScript(witnessScript, pubs, sigs)
	if err != nil {
		return err
	}
	_ = pubKeys

	if !witness {
		builder := txscript.NewScriptBuilder()
		builder.AddOp(txscript.OP_0)
		for _, sig := range ordered {
			builder.AddData(sig)
		}
		if prefixScript != nil {
			builder.AddData(witnessScript)
		}
		script, err := builder.Script()
		if err != nil {
			return err
		}
		in.FinalScriptSig = script
		return nil
	}

	stack := make([][]byte, 0, len(ordered)+2)
	stack = append(stack, nil)
	stack = append(stack, ordered...)
	stack = append(stack, witnessScript)
	in.FinalScriptWitness = stack
	if prefixScript != nil {
		in.FinalScriptSig = mustPushScript(prefixScript)
	}
	return nil
}

func finalizeWitnessScriptHash(in *Input, witnessScript, prefixScript []byte) error {
	if txscript.GetScriptClass(witnessScript) != txscript.MultiSigTy {
		return finalizeSingleWitnessScript(in, witnessScript, prefixScript)
	}
	return finalizeMultisig(in, witnessScript, prefixScript, true)
}

func finalizeSingleWitnessScript(in *Input, witnessScript, prefixScript []byte) error {
	for _, sig := range in.PartialSigs {
		in.FinalScriptWitness = [][]byte{sig, witnessScript}
		if prefixScript != nil {
			in.FinalScriptSig = mustPushScript(prefixScript)
		}
		return nil
	}
	return ErrIncomplete
}

func finalizeTaproot(in *Input, pkScript []byte) error {
	if len(in.TapKeySig) > 0 {
		if err := verifyTaprootInternalKey(pkScript, in.TapInternalKey, in.TapMerkleRoot); err != nil {
			return err
		}
		in.FinalScriptWitness = [][]byte{in.TapKeySig}
		return nil
	}
	for leafKey, controlBlocks := range in.TapLeafScripts {
		for _, cb := range controlBlocks {
			sigs := taprootLeafSigs(in, leafKey)
			if len(sigs) == 0 {
				continue
			}
			if err := verifyTaprootControlBlock(pkScript, in.TapInternalKey, in.TapMerkleRoot, cb); err != nil {
				return err
			}
			stack := make([][]byte, 0, len(sigs)+2)
			stack = append(stack, sigs...)
			stack = append(stack, []byte(leafKey.Script))
			stack = append(stack, cb)
			in.FinalScriptWitness = stack
			return nil
		}
	}
	return ErrIncomplete
}

func taprootLeafSigs(in *Input, leaf TapLeafScriptKey) [][]byte {
	var sigs [][]byte
	for k, sig := range in.TapScriptSigs {
		leafHash := tapLeafHashOf(leaf)
		if k.LeafHash == leafHash {
			sigs = append(sigs, sig)
		}
	}
	return sigs
}

func tapLeafHashOf(leaf TapLeafScriptKey) [32]byte {
	tapLeaf := txscript.NewTapLeaf(leaf.LeafVersion, []byte(leaf.Script))
	hash := tapLeaf.TapHash()
	var h [32]byte
	copy(h[:], hash[:])
	return h
}

func requiredSigCount(script []byte) int {
	_, n, err := txscript.CalcMultiSigStats(script)
	if err != nil {
		return 0
	}
	return n
}

func mustPushScript(data []byte) []byte {
	builder := txscript.NewScriptBuilder()
	builder.AddData(data)
	script, _ := builder.Script()
	return script
}
