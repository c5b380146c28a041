package chain

import "github.com/rubin-dev/cashcore/consensus"

// CheckTxContextual implements spec.md §4.D's contextual checks: every
// prevout must resolve to an unspent UTXO, coinbase maturity, input
// value ranges, and fee non-negativity. It does not mutate view; the
// caller applies the spend/add afterward once the whole block passes.
func CheckTxContextual(tx *consensus.Tx, view *CoinView, spendHeight uint64) (fee consensus.Amount, verr *consensus.VerifyError) {
	var totalIn consensus.Amount
	for _, in := range tx.Inputs {
		entry, ok, err := view.Get(in.PrevOut)
		if err != nil || !ok {
			return 0, consensus.NewVerifyError(consensus.ReasonTxMissingInputs, 0, "input refers to unknown or spent output")
		}
		if entry.IsCoinBase && spendHeight < entry.Height+consensus.CoinbaseMaturity {
			return 0, consensus.NewVerifyError(consensus.ReasonTxPrematureSpend, 0, "spend of immature coinbase")
		}
		if entry.Output.Value < 0 || entry.Output.Value > consensus.MaxMoney {
			return 0, consensus.NewVerifyError(consensus.ReasonTxInputRange, 100, "input value out of range")
		}
		totalIn += entry.Output.Value
		if totalIn < 0 || totalIn > consensus.MaxMoney {
			return 0, consensus.NewVerifyError(consensus.ReasonTxInputRange, 100, "input total out of range")
		}
	}

	var totalOut consensus.Amount
	for _, out := range tx.Outputs {
		totalOut += out.Value
	}
	if totalIn < totalOut {
		return 0, consensus.NewVerifyError(consensus.ReasonTxInBelowOut, 100, "sum(inputs) < sum(outputs)")
	}
	fee = totalIn - totalOut
	if fee < 0 || fee > consensus.MaxMoney {
		return 0, consensus.NewVerifyError(consensus.ReasonTxFeeOutOfRange, 100, "fee out of range")
	}
	return fee, nil
}

// ApplyTx spends the transaction's inputs and adds its outputs to
// view, assuming CheckTxContextual already passed.
func ApplyTx(tx *consensus.Tx, view *CoinView, height uint64) {
	isCoinBase := tx.IsCoinBase()
	if !isCoinBase {
		for _, in := range tx.Inputs {
			view.Spend(in.PrevOut)
		}
	}
	h := tx.Hash()
	for i, out := range tx.Outputs {
		op := consensus.OutPoint{PrevHash: h, Index: uint32(i)}
		view.Add(op, UTXOEntry{Output: out, Height: height, IsCoinBase: isCoinBase})
	}
}
