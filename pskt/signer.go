package pskt

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// PrecomputePSKTData builds the txscript.TxSigHashes cache used by every
// witness/taproot sighash computation for pskt, keyed once per packet
// rather than once per input (§4.4, "avoid O(n^2) sighash recomputation").
func PrecomputePSKTData(p *Packet) *txscript.TxSigHashes {
	fetcher := prevOutputFetcher(p)
	return txscript.NewTxSigHashes(p.UnsignedTx, fetcher)
}

// prevOutputFetcher builds a txscript.PrevOutputFetcher over every input
// whose UTXO is currently known; inputs with no known UTXO are simply
// absent, which is safe for legacy/witness-v0 sighashes and only matters
// for BIP-341-style all-inputs commitments.
func prevOutputFetcher(p *Packet) *txscript.MultiPrevOutFetcher {
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range p.UnsignedTx.TxIn {
		out, err := p.GetInputUTXO(i)
		if err != nil {
			continue
		}
		fetcher.AddPrevOut(in.PreviousOutPoint, out)
	}
	return fetcher
}

func defaultSighashType(pkScript []byte) txscript.SigHashType {
	if isTaproot(pkScript) {
		return txscript.SigHashDefault
	}
	return txscript.SigHashAll
}

// UpdatePSKTOutput registers what an Updater knows about output i's
// spending conditions (redeem/witness script) without
// touching the transaction itself (§4.2, updater role). A caller-supplied
// redeemScript/witnessScript wins; when either is absent, provider is asked
// for a script matching the output's scriptPubKey the same way SignPSKTInput
// resolves an input's redeem/witness script.
func UpdatePSKTOutput(provider SigningProvider, p *Packet, i int, redeemScript, witnessScript []byte) error {
	if i < 0 || i >= len(p.Outputs) {
		return ErrOutputIndexOutOfRange
	}
	out := p.Outputs[i]
	pkScript := p.UnsignedTx.TxOut[i].PkScript

	scriptCode := pkScript
	class := classifyScript(pkScript)

	if class == txscript.ScriptHashTy {
		if len(redeemScript) == 0 {
			if h, herr := extractP2SHHash(pkScript); herr == nil {
				if rs, ok := provider.GetScript(h); ok {
					redeemScript = rs
				}
			}
		}
		if len(redeemScript) > 0 {
			scriptCode = redeemScript
			class = classifyScript(redeemScript)
		}
	}

	if class == txscript.WitnessV0ScriptHashTy && len(witnessScript) == 0 {
		if len(scriptCode) >= 2 {
			if ws, ok := provider.GetScript(scriptCode[2:]); ok {
				witnessScript = ws
			}
		}
	}

	if len(redeemScript) > 0 {
		out.RedeemScript = redeemScript
	}
	if len(witnessScript) > 0 {
		out.WitnessScript = witnessScript
	}
	return nil
}

// SignPSKTInput drives the capability-based signing pipeline for input i:
// it classifies the spent script, resolves any redeem/witness script
// (cross-checking their hashes against the scriptPubKey), computes the
// sighash appropriate to that script type, asks creator for a signature
// under every pubkey in the input's HD keypaths the provider holds a key for,
// and — if finalize is true — attempts to finalize the input immediately
// after (§4.4).
func SignPSKTInput(
	provider SigningProvider,
	creator SignatureCreator,
	p *Packet,
	i int,
	hashCache *txscript.TxSigHashes,
	finalize bool,
) (*SignatureData, error) {
	if i < 0 || i >= len(p.Inputs) {
		return nil, ErrInputIndexOutOfRange
	}
	in := p.Inputs[i]
	if in.IsFinalized() {
		return FillSignatureData(p, i), nil
	}

	utxo, err := p.GetInputUTXO(i)
	if err != nil {
		return nil, err
	}
	// A witness_utxo can't be verified against the previous transaction the
	// way a non_witness_utxo can, so its amount can't be trusted for a
	// legacy (non-amount-committing) sighash. Require a witness-type
	// signature whenever that's the only UTXO evidence we have.
	requireWitnessSig := in.NonWitnessUtxo == nil && in.WitnessUtxo != nil

	sighashType := defaultSighashType(utxo.PkScript)
	if in.SighashType != nil {
		sighashType = *in.SighashType
	}

	scriptCode, class, err := resolveScriptCode(in, utxo.PkScript, provider)
	if err != nil {
		return nil, err
	}
	if requireWitnessSig && !isWitnessScriptClass(class) {
		return nil, ErrWitnessSignatureRequired
	}

	sd := FillSignatureData(p, i)

	sigHash, err := computeSignatureHash(p, i, utxo, scriptCode, class, sighashType, hashCache)
	if err != nil {
		return nil, err
	}

	pubkeys := candidatePubkeys(in, provider, scriptCode)
	for _, pub := range pubkeys {
		s, ok, err := creator.CreateSig(pub, sigHash, sighashType)
		if err != nil {
			return nil, ErrProviderFailure
		}
		if !ok {
			continue
		}
		if class == txscript.WitnessV1TaprootTy {
			sd.TaprootKeyPathSig = s
			in.TapKeySig = s
			continue
		}
		sd.PartialSigs[string(pub)] = s
		in.PartialSigs[string(pub)] = s
	}

	if finalize {
		if err := FinalizePSKTInput(p, i); err != nil {
			return sd, err
		}
	}

	return sd, nil
}

// candidatePubkeys collects every pubkey recorded in HDKeypaths that the
// provider claims to hold a signing key for.
func candidatePubkeys(in *Input, provider SigningProvider, scriptCode []byte) [][]byte {
	var out [][]byte
	for pk := range in.HDKeypaths {
		if provider.HaveKey([]byte(pk)) {
			out = append(out, []byte(pk))
		}
	}
	return out
}

// computeSignatureHash returns the sighash digest to sign for input i,
// dispatching on the classified spend type (§4.4).
func computeSignatureHash(
	p *Packet,
	i int,
	utxo *wire.TxOut,
	scriptCode []byte,
	class txscript.ScriptClass,
	sighashType txscript.SigHashType,
	hashCache *txscript.TxSigHashes,
) ([]byte, error) {
	switch class {
	case txscript.WitnessV1TaprootTy:
		fetcher := prevOutputFetcher(p)
		sh, err := txscript.CalcTaprootSignatureHash(hashCache, sighashType, p.UnsignedTx, i, fetcher)
		if err != nil {
			return nil, ErrProviderFailure
		}
		return sh, nil

	case txscript.WitnessV0ScriptHashTy, txscript.WitnessV0PubKeyHashTy:
		sh, err := txscript.CalcWitnessSigHash(scriptCode, hashCache, sighashType, p.UnsignedTx, i, utxo.Value)
		if err != nil {
			return nil, ErrProviderFailure
		}
		return sh, nil

	default:
		sh, err := txscript.CalcSignatureHash(scriptCode, sighashType, p.UnsignedTx, i)
		if err != nil {
			return nil, ErrProviderFailure
		}
		return sh, nil
	}
}
