package rpc

import "github.com/koyotecoin/koyotecoin/pskt"

// OutputDescriptor is a pre-resolved spending descriptor for one output:
// the scriptPubKey it pays, its redeem/witness script if any, and the
// BIP-32 origins of the keys involved. utxoupdatepskt takes these directly
// rather than raw descriptor strings, since descriptor-language parsing is
// out of scope (SPEC_FULL.md §6).
type OutputDescriptor struct {
	Script        []byte
	RedeemScript  []byte
	WitnessScript []byte
	HDKeypaths    map[string]pskt.KeyOrigin // pubkey bytes -> origin
}

// DecodeResult is the JSON-shaped result of decodepskt: a plain-data view
// over a pskt.Packet's global/input/output sections (§6.1).
type DecodeResult struct {
	Tx      TxSummary       `json:"tx"`
	Global  GlobalSummary   `json:"global"`
	Inputs  []InputSummary  `json:"inputs"`
	Outputs []OutputSummary `json:"outputs"`
	Fee     int64           `json:"fee,omitempty"`
}

// TxSummary is the JSON view of the unsigned transaction skeleton.
type TxSummary struct {
	Txid     string   `json:"txid"`
	Version  int32    `json:"version"`
	Locktime uint32   `json:"locktime"`
	VinCount int      `json:"vin_count"`
	VoutCount int     `json:"vout_count"`
}

// GlobalSummary is the JSON view of the global section.
type GlobalSummary struct {
	Version     uint32   `json:"pskt_version"`
	XpubCount   int      `json:"xpub_count"`
	UnknownKeys int      `json:"unknown_keys"`
}

// InputSummary is the JSON view of one input section.
type InputSummary struct {
	Index            int    `json:"index"`
	HasNonWitnessUtxo bool  `json:"has_non_witness_utxo"`
	HasWitnessUtxo   bool   `json:"has_witness_utxo"`
	PartialSigCount  int    `json:"partial_sigs"`
	HasRedeemScript  bool   `json:"has_redeem_script"`
	HasWitnessScript bool   `json:"has_witness_script"`
	IsFinal          bool   `json:"is_final"`
	HasTapKeySig     bool   `json:"has_taproot_key_sig"`
	TapScriptSigCount int   `json:"taproot_script_sigs"`
}

// OutputSummary is the JSON view of one output section.
type OutputSummary struct {
	Index            int  `json:"index"`
	HasRedeemScript  bool `json:"has_redeem_script"`
	HasWitnessScript bool `json:"has_witness_script"`
	HasTapTree       bool `json:"has_taproot_tree"`
}

// AnalyzeResult is the JSON-shaped result of analyzepskt (§6.2), a plain
// mirror of pskt.PSKTAnalysis with the role enum rendered as text.
type AnalyzeResult struct {
	Inputs         []AnalyzeInputResult `json:"inputs"`
	NextRole       string               `json:"next"`
	IsFinal        bool                 `json:"is_final"`
	EstimatedVSize int64                `json:"estimated_vsize,omitempty"`
	Fee            int64                `json:"fee,omitempty"`
	FeeRate        float64              `json:"feerate,omitempty"`
	Error          string               `json:"error,omitempty"`
}

// AnalyzeInputResult is the JSON view of one input's analysis.
type AnalyzeInputResult struct {
	Index    int    `json:"index"`
	HasUTXO  bool   `json:"has_utxo"`
	IsFinal  bool   `json:"is_final"`
	NextRole string `json:"next"`
	Missing  string `json:"missing,omitempty"`
}
