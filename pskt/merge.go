package pskt

// Merge combines two PSKTs describing the same unsigned transaction,
// following the field-level combinators of §4.3: set union for signature
// and preimage collections, first-writer-wins for single-valued optional
// fields, and map union for keypaths and xpubs. Merge is commutative,
// idempotent and associative, so repeated or reordered application of
// Merge/Combine always converges to the same result (§8).
func Merge(a, b *Packet) (*Packet, error) {
	if a.UnsignedTx.TxHash() != b.UnsignedTx.TxHash() {
		return nil, ErrPsktMismatch
	}
	if len(a.Inputs) != len(b.Inputs) || len(a.Outputs) != len(b.Outputs) {
		return nil, ErrPsktMismatch
	}

	out := &Packet{
		UnsignedTx: a.UnsignedTx,
		Global:     mergeGlobal(a.Global, b.Global),
		Inputs:     make([]*Input, len(a.Inputs)),
		Outputs:    make([]*Output, len(a.Outputs)),
	}
	for i := range a.Inputs {
		out.Inputs[i] = mergeInput(a.Inputs[i], b.Inputs[i])
	}
	for i := range a.Outputs {
		out.Outputs[i] = mergeOutput(a.Outputs[i], b.Outputs[i])
	}
	return out, nil
}

// Combine left-folds Merge across pskts, in order. Associativity of Merge
// means the result does not depend on fold direction, only on the set of
// inputs (§4.3).
func Combine(pskts []*Packet) (*Packet, error) {
	if len(pskts) == 0 {
		return nil, ErrInvalidParameter
	}
	acc := pskts[0]
	for _, p := range pskts[1:] {
		merged, err := Merge(acc, p)
		if err != nil {
			return nil, err
		}
		acc = merged
	}
	return acc, nil
}

// MergeGlobal exports mergeGlobal's xpub/version/proprietary/unknown union
// for callers outside this package that need to fold several PSKTs' global
// sections together without going through the full unsigned-tx-equality
// Merge (e.g. joinpskts, which combines PSKTs that describe *different*
// unsigned transactions).
func MergeGlobal(a, b *Global) *Global {
	return mergeGlobal(a, b)
}

func mergeGlobal(a, b *Global) *Global {
	g := newGlobal()

	for k, group := range a.Xpubs {
		ng := &XpubGroup{Origin: group.Origin, Xpubs: make(map[string][]byte, len(group.Xpubs))}
		for xk, xv := range group.Xpubs {
			ng.Xpubs[xk] = xv
		}
		g.Xpubs[k] = ng
	}
	for k, group := range b.Xpubs {
		ng, ok := g.Xpubs[k]
		if !ok {
			ng = &XpubGroup{Origin: group.Origin, Xpubs: make(map[string][]byte, len(group.Xpubs))}
			g.Xpubs[k] = ng
		}
		for xk, xv := range group.Xpubs {
			ng.Xpubs[xk] = xv
		}
	}

	g.Version = firstNonNilUint32(a.Version, b.Version)

	g.Proprietary = append(g.Proprietary, a.Proprietary...)
	g.Proprietary = append(g.Proprietary, dedupProprietary(a.Proprietary, b.Proprietary)...)

	g.Unknown = mergeUnknown(a.Unknown, b.Unknown)
	return g
}

func firstNonNilUint32(a, b *uint32) *uint32 {
	if a != nil {
		return a
	}
	return b
}

// dedupProprietary returns the entries of b whose (identifier, subtype,
// keyData) triple does not already appear in a, preserving a's
// first-writer-wins semantics for duplicate proprietary keys.
func dedupProprietary(a, b []proprietary) []proprietary {
	seen := make(map[string]bool, len(a))
	for _, p := range a {
		seen[string(proprietaryKeyBytes(p))] = true
	}
	var out []proprietary
	for _, p := range b {
		k := string(proprietaryKeyBytes(p))
		if !seen[k] {
			seen[k] = true
			out = append(out, p)
		}
	}
	return out
}

func mergeUnknown(a, b map[string][]byte) map[string][]byte {
	m := make(map[string][]byte, len(a)+len(b))
	for k, v := range a {
		m[k] = v
	}
	for k, v := range b {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return m
}

func mergeInput(a, b *Input) *Input {
	in := newInput()

	if a.NonWitnessUtxo != nil {
		in.NonWitnessUtxo = a.NonWitnessUtxo
	} else {
		in.NonWitnessUtxo = b.NonWitnessUtxo
	}
	if a.WitnessUtxo != nil {
		in.WitnessUtxo = a.WitnessUtxo
	} else {
		in.WitnessUtxo = b.WitnessUtxo
	}

	in.PartialSigs = mergeBytesMap(a.PartialSigs, b.PartialSigs)

	if a.SighashType != nil {
		in.SighashType = a.SighashType
	} else {
		in.SighashType = b.SighashType
	}

	in.RedeemScript = firstNonEmpty(a.RedeemScript, b.RedeemScript)
	in.WitnessScript = firstNonEmpty(a.WitnessScript, b.WitnessScript)
	in.HDKeypaths = mergeKeyOriginMap(a.HDKeypaths, b.HDKeypaths)

	// Final scriptSig/witness are not merged across two PSKTs: a finalized
	// input already carries enough data and a-wins preserves determinism.
	if len(a.FinalScriptSig) > 0 || len(a.FinalScriptWitness) > 0 {
		in.FinalScriptSig = a.FinalScriptSig
		in.FinalScriptWitness = a.FinalScriptWitness
	} else {
		in.FinalScriptSig = b.FinalScriptSig
		in.FinalScriptWitness = b.FinalScriptWitness
	}

	in.Ripemd160Preimages = mergePreimages20(a.Ripemd160Preimages, b.Ripemd160Preimages)
	in.Sha256Preimages = mergePreimages32(a.Sha256Preimages, b.Sha256Preimages)
	in.Hash160Preimages = mergePreimages20(a.Hash160Preimages, b.Hash160Preimages)
	in.Hash256Preimages = mergePreimages32(a.Hash256Preimages, b.Hash256Preimages)

	in.TapKeySig = firstNonEmpty(a.TapKeySig, b.TapKeySig)
	in.TapScriptSigs = mergeTapScriptSigs(a.TapScriptSigs, b.TapScriptSigs)
	in.TapLeafScripts = mergeTapLeafScripts(a.TapLeafScripts, b.TapLeafScripts)
	in.TapBip32Paths = mergeTapBip32(a.TapBip32Paths, b.TapBip32Paths)
	in.TapInternalKey = firstNonEmpty(a.TapInternalKey, b.TapInternalKey)
	in.TapMerkleRoot = firstNonEmpty(a.TapMerkleRoot, b.TapMerkleRoot)

	in.Proprietary = append(in.Proprietary, a.Proprietary...)
	in.Proprietary = append(in.Proprietary, dedupProprietary(a.Proprietary, b.Proprietary)...)
	in.Unknown = mergeUnknown(a.Unknown, b.Unknown)

	return in
}

func mergeOutput(a, b *Output) *Output {
	out := newOutput()

	out.RedeemScript = firstNonEmpty(a.RedeemScript, b.RedeemScript)
	out.WitnessScript = firstNonEmpty(a.WitnessScript, b.WitnessScript)
	out.HDKeypaths = mergeKeyOriginMap(a.HDKeypaths, b.HDKeypaths)
	out.TapInternalKey = firstNonEmpty(a.TapInternalKey, b.TapInternalKey)
	out.TapTree = mergeTapTree(a.TapTree, b.TapTree)
	out.TapBip32Paths = mergeTapBip32(a.TapBip32Paths, b.TapBip32Paths)

	out.Proprietary = append(out.Proprietary, a.Proprietary...)
	out.Proprietary = append(out.Proprietary, dedupProprietary(a.Proprietary, b.Proprietary)...)
	out.Unknown = mergeUnknown(a.Unknown, b.Unknown)

	return out
}

func firstNonEmpty(a, b []byte) []byte {
	if len(a) > 0 {
		return a
	}
	return b
}

func mergeBytesMap(a, b map[string][]byte) map[string][]byte {
	m := make(map[string][]byte, len(a)+len(b))
	for k, v := range a {
		m[k] = v
	}
	for k, v := range b {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return m
}

func mergeKeyOriginMap(a, b map[string]KeyOrigin) map[string]KeyOrigin {
	m := make(map[string]KeyOrigin, len(a)+len(b))
	for k, v := range a {
		m[k] = v
	}
	for k, v := range b {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return m
}

func mergePreimages20(a, b map[[20]byte][]byte) map[[20]byte][]byte {
	m := make(map[[20]byte][]byte, len(a)+len(b))
	for k, v := range a {
		m[k] = v
	}
	for k, v := range b {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return m
}

func mergePreimages32(a, b map[[32]byte][]byte) map[[32]byte][]byte {
	m := make(map[[32]byte][]byte, len(a)+len(b))
	for k, v := range a {
		m[k] = v
	}
	for k, v := range b {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return m
}

func mergeTapScriptSigs(a, b map[TapScriptSigKey][]byte) map[TapScriptSigKey][]byte {
	m := make(map[TapScriptSigKey][]byte, len(a)+len(b))
	for k, v := range a {
		m[k] = v
	}
	for k, v := range b {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return m
}

// mergeTapLeafScripts unions the control-block sets of matching
// (script, leaf version) keys rather than concatenating blindly, so the
// same control block contributed by both sides is not duplicated.
func mergeTapLeafScripts(a, b map[TapLeafScriptKey][][]byte) map[TapLeafScriptKey][][]byte {
	m := make(map[TapLeafScriptKey][][]byte, len(a))
	for k, v := range a {
		m[k] = append([][]byte{}, v...)
	}
	for k, v := range b {
		seen := make(map[string]bool, len(m[k]))
		for _, cb := range m[k] {
			seen[string(cb)] = true
		}
		for _, cb := range v {
			if !seen[string(cb)] {
				seen[string(cb)] = true
				m[k] = append(m[k], cb)
			}
		}
	}
	return m
}

func mergeTapBip32(a, b map[[32]byte]*TapBip32Entry) map[[32]byte]*TapBip32Entry {
	m := make(map[[32]byte]*TapBip32Entry, len(a)+len(b))
	for k, v := range a {
		m[k] = v
	}
	for k, v := range b {
		if existing, ok := m[k]; ok {
			seen := make(map[[32]byte]bool, len(existing.LeafHashes))
			leafHashes := append([][32]byte{}, existing.LeafHashes...)
			for _, lh := range leafHashes {
				seen[lh] = true
			}
			for _, lh := range v.LeafHashes {
				if !seen[lh] {
					seen[lh] = true
					leafHashes = append(leafHashes, lh)
				}
			}
			m[k] = &TapBip32Entry{LeafHashes: leafHashes, Origin: existing.Origin}
		} else {
			m[k] = v
		}
	}
	return m
}

// mergeTapTree unions Taproot tree leaves by (depth, leaf version, script)
// identity: leaves present on only one side are kept, leaves present on
// both are kept once.
func mergeTapTree(a, b []TapTreeLeaf) []TapTreeLeaf {
	if len(a) == 0 {
		return append([]TapTreeLeaf{}, b...)
	}
	if len(b) == 0 {
		return append([]TapTreeLeaf{}, a...)
	}
	seen := make(map[tapTreeLeafKey]bool, len(a))
	leaves := make([]TapTreeLeaf, 0, len(a)+len(b))
	for _, l := range a {
		seen[l.key()] = true
		leaves = append(leaves, l)
	}
	for _, l := range b {
		if !seen[l.key()] {
			seen[l.key()] = true
			leaves = append(leaves, l)
		}
	}
	return leaves
}
