package script

import "github.com/rubin-dev/cashcore/consensus"

// Limits mirrored from the consensus package so the interpreter has no
// free-floating magic numbers (spec.md §4.C).
const (
	MaxScriptSize      = consensus.MaxScriptSize
	MaxScriptPush      = consensus.MaxScriptPush
	MaxScriptStack     = consensus.MaxScriptStack
	MaxScriptOps       = consensus.MaxScriptOps
	MaxMultisigPubkeys = consensus.MaxMultisigPubkeys
)
