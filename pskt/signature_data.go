package pskt

import "github.com/btcsuite/btcd/txscript"

// TaprootSpendData describes everything needed to spend a Taproot output
// via the script path: the internal key, the merkle root, and the map of
// leaf scripts to the control blocks that reveal them (§4.4).
type TaprootSpendData struct {
	InternalKey []byte
	MerkleRoot  []byte
	Scripts     map[TapLeafScriptKey][][]byte
}

// SignatureData is the engine-neutral view of "everything known about how
// to spend one input" that FillSignatureData extracts from a PSKT Input and
// FromSignatureData writes back (§4.4). It is the boundary object the
// signature pipeline passes between an Input and a SigningProvider.
type SignatureData struct {
	ScriptSig     []byte
	Witness       [][]byte
	PartialSigs   map[string][]byte // pubkey -> signature
	RedeemScript  []byte
	WitnessScript []byte
	MiscPubkeys   map[string]KeyOrigin

	TaprootKeyPathSig  []byte
	TaprootScriptSigs  map[TapScriptSigKey][]byte
	TaprootSpendData   TaprootSpendData
	TaprootMiscPubkeys map[[32]byte]*TapBip32Entry

	Complete bool

	MissingPubkeys       [][]byte
	MissingSigs          int
	MissingRedeemScript  bool
	MissingWitnessScript bool
}

func newSignatureData() *SignatureData {
	return &SignatureData{
		PartialSigs:        make(map[string][]byte),
		MiscPubkeys:        make(map[string]KeyOrigin),
		TaprootScriptSigs:  make(map[TapScriptSigKey][]byte),
		TaprootMiscPubkeys: make(map[[32]byte]*TapBip32Entry),
		TaprootSpendData: TaprootSpendData{
			Scripts: make(map[TapLeafScriptKey][][]byte),
		},
	}
}

// FillSignatureData copies everything an Input knows about spending its
// coin into a SignatureData, the shape the signature pipeline operates on.
// p and i give it access to the spent UTXO so it can also report what
// script-level data (redeem script, witness script, pubkeys, signatures)
// is still missing before the input could be finalized (§4.4, §4.6).
func FillSignatureData(p *Packet, i int) *SignatureData {
	in := p.Inputs[i]
	sd := newSignatureData()

	sd.ScriptSig = in.FinalScriptSig
	sd.Witness = in.FinalScriptWitness
	for k, v := range in.PartialSigs {
		sd.PartialSigs[k] = v
	}
	sd.RedeemScript = in.RedeemScript
	sd.WitnessScript = in.WitnessScript
	for k, v := range in.HDKeypaths {
		sd.MiscPubkeys[k] = v
	}

	sd.TaprootKeyPathSig = in.TapKeySig
	for k, v := range in.TapScriptSigs {
		sd.TaprootScriptSigs[k] = v
	}
	sd.TaprootSpendData.InternalKey = in.TapInternalKey
	sd.TaprootSpendData.MerkleRoot = in.TapMerkleRoot
	for k, v := range in.TapLeafScripts {
		sd.TaprootSpendData.Scripts[k] = append([][]byte{}, v...)
	}
	for k, v := range in.TapBip32Paths {
		sd.TaprootMiscPubkeys[k] = v
	}

	sd.Complete = in.IsFinalized()
	if sd.Complete {
		return sd
	}

	utxo, err := p.GetInputUTXO(i)
	if err != nil {
		return sd
	}

	class := classifyScript(utxo.PkScript)
	scriptCode := utxo.PkScript

	if class == txscript.ScriptHashTy {
		if len(in.RedeemScript) == 0 {
			sd.MissingRedeemScript = true
			return sd
		}
		scriptCode = in.RedeemScript
		class = classifyScript(in.RedeemScript)
	}

	if class == txscript.WitnessV0ScriptHashTy {
		if len(in.WitnessScript) == 0 {
			sd.MissingWitnessScript = true
			return sd
		}
		scriptCode = in.WitnessScript
	}

	if class == txscript.MultiSigTy {
		_, required, err := txscript.CalcMultiSigStats(scriptCode)
		if err != nil {
			return sd
		}
		pubKeys, err := txscript.PushedData(scriptCode)
		if err != nil {
			return sd
		}
		// Every pubkey is named by the multisig script itself, so only
		// signatures can be missing here.
		have := 0
		for _, pk := range pubKeys {
			if _, ok := in.PartialSigs[string(pk)]; ok {
				have++
			}
		}
		if have < required {
			sd.MissingSigs = required - have
		}
		return sd
	}

	if class == txscript.WitnessV1TaprootTy {
		if len(in.TapKeySig) == 0 && len(in.TapScriptSigs) == 0 {
			sd.MissingSigs = 1
		}
		return sd
	}

	if len(in.PartialSigs) == 0 {
		sd.MissingSigs = 1
	}
	return sd
}

// FromSignatureData writes a (possibly updated) SignatureData back into an
// Input, the inverse of FillSignatureData.
func FromSignatureData(sd *SignatureData, in *Input) {
	if len(sd.ScriptSig) > 0 {
		in.FinalScriptSig = sd.ScriptSig
	}
	if len(sd.Witness) > 0 {
		in.FinalScriptWitness = sd.Witness
	}
	for k, v := range sd.PartialSigs {
		in.PartialSigs[k] = v
	}
	if len(sd.RedeemScript) > 0 {
		in.RedeemScript = sd.RedeemScript
	}
	if len(sd.WitnessScript) > 0 {
		in.WitnessScript = sd.WitnessScript
	}
	for k, v := range sd.MiscPubkeys {
		in.HDKeypaths[k] = v
	}
	if len(sd.TaprootKeyPathSig) > 0 {
		in.TapKeySig = sd.TaprootKeyPathSig
	}
	for k, v := range sd.TaprootScriptSigs {
		in.TapScriptSigs[k] = v
	}
}

// SigningProvider is the "give me known key/script metadata" capability the
// signature pipeline consumes. Implementations never expose private key
// material through this interface (§4.4).
type SigningProvider interface {
	// GetKeyOrigin returns the HD origin registered for pubkey, if known.
	GetKeyOrigin(pubkey []byte) (KeyOrigin, bool)
	// GetScript returns a redeem/witness script by its hash160/sha256
	// digest, if known.
	GetScript(scriptHash []byte) ([]byte, bool)
	// HaveKey reports whether the provider can sign with pubkey.
	HaveKey(pubkey []byte) bool
}

// SignatureCreator is the "produce a raw signature" capability. The engine
// never touches private keys directly; it asks a SignatureCreator instead,
// handing over the already-computed sighash digest so the creator need not
// know anything about transaction serialization.
type SignatureCreator interface {
	// CreateSig produces a signature over sigHash under pubkey, appending
	// the sighash-type byte (or, for Taproot default sighash, nothing) as
	// scriptCode's class requires. ok is false if this creator cannot sign
	// for pubkey (e.g. a dummy/metadata-only creator).
	CreateSig(pubkey, sigHash []byte, sigHashType txscript.SigHashType) (sig []byte, ok bool, err error)
}

// dummySignatureCreator never produces a real signature, for callers that
// want to run the signing pipeline without a private key (§4.5).
type dummySignatureCreator struct{}

// NewDummySignatureCreator returns a SignatureCreator that always declines
// to sign.
func NewDummySignatureCreator() SignatureCreator {
	return dummySignatureCreator{}
}

func (dummySignatureCreator) CreateSig(_, _ []byte, _ txscript.SigHashType) ([]byte, bool, error) {
	return nil, false, nil
}

// dummySigningProvider knows nothing; useful as a no-op default.
type dummySigningProvider struct{}

// NewDummySigningProvider returns a SigningProvider with no registered
// keys or scripts.
func NewDummySigningProvider() SigningProvider {
	return dummySigningProvider{}
}

func (dummySigningProvider) GetKeyOrigin(_ []byte) (KeyOrigin, bool) { return KeyOrigin{}, false }
func (dummySigningProvider) GetScript(_ []byte) ([]byte, bool)       { return nil, false }
func (dummySigningProvider) HaveKey(_ []byte) bool                   { return false }
