package pskt

import "github.com/btcsuite/btcd/wire"

// Extract builds the fully signed wire.MsgTx from a complete PSKT, copying
// each input's FinalScriptSig/FinalScriptWitness onto a clone of the
// unsigned transaction (§4.5). It does not mutate p.
func Extract(p *Packet) (*wire.MsgTx, error) {
	if !p.IsComplete() {
		return nil, ErrIncomplete
	}

	tx := p.UnsignedTx.Copy()
	for i, in := range p.Inputs {
		tx.TxIn[i].SignatureScript = in.FinalScriptSig
		tx.TxIn[i].Witness = wire.TxWitness(in.FinalScriptWitness)
	}
	return tx, nil
}

// FinalizeAndExtractPSKT finalizes every input (if not already finalized)
// and then extracts the resulting transaction in one step (§4.5).
func FinalizeAndExtractPSKT(p *Packet) (*wire.MsgTx, error) {
	if err := FinalizePSKT(p); err != nil {
		return nil, err
	}
	return Extract(p)
}
