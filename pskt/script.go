package pskt

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160"
)

// checkIsMultiSigScript reports whether script fits the standard multisig
// template and the given pubkey/sig counts are consistent with it.
func checkIsMultiSigScript(pubKeys [][]byte, sigs [][]byte, script []byte) bool {
	if txscript.GetScriptClass(script) != txscript.MultiSigTy {
		return false
	}
	_, numSigs, err := txscript.CalcMultiSigStats(script)
	if err != nil {
		return false
	}
	return numSigs == len(pubKeys) && numSigs == len(sigs)
}

// extractKeyOrderFromScript reorders sigs to match the order their
// corresponding pubkeys first appear in script, which is the order a
// multisig scriptSig/witness must present them in (§4.4).
func extractKeyOrderFromScript(script []byte, pubKeys, sigs [][]byte) ([][]byte, error) {
	if !checkIsMultiSigScript(pubKeys, sigs, script) {
		return nil, ErrUnsupportedScriptType
	}

	type entry struct {
		pos int
		sig []byte
	}
	entries := make([]entry, 0, len(pubKeys))
	for i, pub := range pubKeys {
		pos := bytes.Index(script, pub)
		if pos < 0 {
			return nil, fmt.Errorf("pskt: script does not contain pubkey")
		}
		entries = append(entries, entry{pos: pos, sig: sigs[i]})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].pos < entries[j].pos })

	ordered := make([][]byte, len(entries))
	for i, e := range entries {
		ordered[i] = e.sig
	}
	return ordered, nil
}

// checkRedeemScriptHash verifies that redeemScript hashes to the pushed
// data in a P2SH scriptPubKey (§4.4, redeem-script cross-check).
func checkRedeemScriptHash(scriptPubKey, redeemScript []byte) error {
	h := hash160(redeemScript)
	expected, err := extractP2SHHash(scriptPubKey)
	if err != nil {
		return err
	}
	if !bytes.Equal(h, expected) {
		return ErrRedeemScriptMismatch
	}
	return nil
}

// checkWitnessScriptHash verifies that witnessScript hashes (sha256) to
// the pushed data in a P2WSH scriptPubKey/redeemScript (§4.4).
func checkWitnessScriptHash(witnessProgram, witnessScript []byte) error {
	expected, err := extractP2WSHProgram(witnessProgram)
	if err != nil {
		return err
	}
	h := chainhash.HashB(witnessScript)
	if !bytes.Equal(h, expected) {
		return ErrWitnessScriptMismatch
	}
	return nil
}

func extractP2SHHash(scriptPubKey []byte) ([]byte, error) {
	if len(scriptPubKey) != 23 || scriptPubKey[0] != txscript.OP_HASH160 ||
		scriptPubKey[1] != 0x14 || scriptPubKey[22] != txscript.OP_EQUAL {
		return nil, ErrUnsupportedScriptType
	}
	return scriptPubKey[2:22], nil
}

func extractP2WSHProgram(script []byte) ([]byte, error) {
	if len(script) != 34 || script[0] != txscript.OP_0 || script[1] != 0x20 {
		return nil, ErrUnsupportedScriptType
	}
	return script[2:], nil
}

func hash160(b []byte) []byte {
	sha := chainhash.HashB(b)
	r := ripemd160.New()
	r.Write(sha)
	return r.Sum(nil)
}

// classifyScript reports the standard script class of a scriptPubKey,
// including Taproot which txscript.GetScriptClass predates.
func classifyScript(pkScript []byte) txscript.ScriptClass {
	if isTaproot(pkScript) {
		return txscript.WitnessV1TaprootTy
	}
	return txscript.GetScriptClass(pkScript)
}

func isTaproot(pkScript []byte) bool {
	return len(pkScript) == 34 && pkScript[0] == txscript.OP_1 && pkScript[1] == 0x20
}

func isWitnessProgram(pkScript []byte) bool {
	return txscript.IsWitnessProgram(pkScript)
}

// isWitnessScriptClass reports whether class is a script type whose sighash
// commits to the spent amount (segwit v0 or Taproot), the property
// require_witness_sig demands before trusting a witness_utxo-only input's
// signature (§4.4).
func isWitnessScriptClass(class txscript.ScriptClass) bool {
	switch class {
	case txscript.WitnessV0PubKeyHashTy, txscript.WitnessV0ScriptHashTy, txscript.WitnessV1TaprootTy:
		return true
	default:
		return false
	}
}

// resolveScriptCode walks the P2SH -> P2WSH unwrapping chain for a spent
// scriptPubKey, filling in.RedeemScript/in.WitnessScript from provider when
// they're still empty. provider may be nil, in which case only whatever
// redeem/witness script is already recorded on in is used — the path
// FinalizePSKTInput takes, since finalizing must never invent new signing
// material on its own. Returns the final scriptCode to sign or finalize
// against and its class; shared by SignPSKTInput and FinalizePSKTInput so
// the P2SH/P2WSH unwrapping rules live in exactly one place (§4.4/§4.5).
func resolveScriptCode(in *Input, pkScript []byte, provider SigningProvider) ([]byte, txscript.ScriptClass, error) {
	scriptCode := pkScript
	class := classifyScript(pkScript)

	if class == txscript.ScriptHashTy {
		redeem := in.RedeemScript
		if len(redeem) == 0 && provider != nil {
			if h, herr := extractP2SHHash(pkScript); herr == nil {
				if rs, ok := provider.GetScript(h); ok {
					redeem = rs
				}
			}
		}
		if len(redeem) == 0 {
			return nil, class, ErrNotFinalizable
		}
		if err := checkRedeemScriptHash(pkScript, redeem); err != nil {
			return nil, class, err
		}
		in.RedeemScript = redeem
		scriptCode = redeem
		class = classifyScript(redeem)
	}

	if class == txscript.WitnessV0ScriptHashTy {
		witnessScript := in.WitnessScript
		if len(witnessScript) == 0 && provider != nil {
			if ws, ok := provider.GetScript(scriptCode[2:]); ok {
				witnessScript = ws
			}
		}
		if len(witnessScript) == 0 {
			return nil, class, ErrNotFinalizable
		}
		if err := checkWitnessScriptHash(scriptCode, witnessScript); err != nil {
			return nil, class, err
		}
		in.WitnessScript = witnessScript
		scriptCode = witnessScript
	}

	return scriptCode, class, nil
}

// taprootOutputKey tweaks internalKey (a BIP-340 32-byte x-only pubkey) by
// merkleRoot (nil for a key-path-only output/input), the same computation
// the teacher's own (deleted) taproot.go performed in ToControlBlock before
// reading off the output key's parity bit.
func taprootOutputKey(internalKey, merkleRoot []byte) (*btcec.PublicKey, error) {
	internalPub, err := schnorr.ParsePubKey(internalKey)
	if err != nil {
		return nil, fmt.Errorf("pskt: invalid taproot internal key: %w", err)
	}
	return txscript.ComputeTaprootOutputKey(internalPub, merkleRoot), nil
}

// verifyTaprootInternalKey confirms that internalKey plus merkleRoot
// actually tweaks to the witness program committed to in pkScript. Skipped
// entirely when internalKey isn't the right size, since not every
// input/output that carries a TapKeySig also carries an internal key
// (§4.4).
func verifyTaprootInternalKey(pkScript, internalKey, merkleRoot []byte) error {
	if len(internalKey) != 32 {
		return nil
	}
	if !isTaproot(pkScript) {
		return ErrUnsupportedScriptType
	}
	outputPub, err := taprootOutputKey(internalKey, merkleRoot)
	if err != nil {
		return err
	}
	if !bytes.Equal(schnorr.SerializePubKey(outputPub), pkScript[2:]) {
		return ErrTaprootInternalKeyInvalid
	}
	return nil
}

// verifyTaprootControlBlock cross-checks a script-path control block against
// the input's recorded internal key/merkle root: the control block's own
// internal key must match, and its parity bit must match the output key's
// actual y-coordinate parity, the same OutputKeyYIsOdd field the teacher's
// ToControlBlock computed from secp.PubKeyFormatCompressedOdd. Skipped when
// no internal key is recorded on the input.
func verifyTaprootControlBlock(pkScript, internalKey, merkleRoot, controlBlock []byte) error {
	if len(internalKey) != 32 {
		return nil
	}
	if err := verifyTaprootInternalKey(pkScript, internalKey, merkleRoot); err != nil {
		return err
	}

	parsed, err := txscript.ParseControlBlock(controlBlock)
	if err != nil {
		return fmt.Errorf("pskt: invalid taproot control block: %w", err)
	}
	if !bytes.Equal(schnorr.SerializePubKey(parsed.InternalKey), internalKey) {
		return ErrTaprootInternalKeyInvalid
	}

	outputPub, err := taprootOutputKey(internalKey, merkleRoot)
	if err != nil {
		return err
	}
	outputKeyIsOdd := outputPub.SerializeCompressed()[0] == secp.PubKeyFormatCompressedOdd
	if parsed.OutputKeyYIsOdd != outputKeyIsOdd {
		return ErrTaprootInternalKeyInvalid
	}
	return nil
}
