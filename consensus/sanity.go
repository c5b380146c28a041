package consensus

// CheckTxSanity runs the context-free checks from spec.md §4.D: shape,
// size, value ranges, duplicate prevouts, and the coinbase script size
// bound. It never consults chain state.
func CheckTxSanity(tx *Tx) *VerifyError {
	if len(tx.Inputs) == 0 {
		return NewVerifyError(ReasonTxVinEmpty, 100, "transaction has no inputs")
	}
	if len(tx.Outputs) == 0 {
		return NewVerifyError(ReasonTxVoutEmpty, 100, "transaction has no outputs")
	}
	if tx.SerializedSize() > MaxTxSize {
		return NewVerifyError(ReasonTxOversize, 100, "transaction exceeds MAX_TX_SIZE")
	}

	var total Amount
	for _, out := range tx.Outputs {
		if out.Value < 0 || out.Value > MaxMoney {
			return NewVerifyError(ReasonTxOutputRange, 100, "output value out of range")
		}
		total += out.Value
		if total < 0 || total > MaxMoney {
			return NewVerifyError(ReasonTxOutputTotalRange, 100, "output total out of range")
		}
	}

	if tx.IsCoinBase() {
		n := len(tx.Inputs[0].Script)
		if n < MinCoinbaseScriptSize || n > MaxCoinbaseScriptSize {
			return NewVerifyError(ReasonCoinbaseLength, 100, "coinbase script length out of range")
		}
	} else {
		seen := make(map[OutPoint]struct{}, len(tx.Inputs))
		for _, in := range tx.Inputs {
			if in.PrevOut.IsNull() {
				return NewVerifyError(ReasonTxPrevoutNull, 100, "non-coinbase input has a null prevout")
			}
			if _, dup := seen[in.PrevOut]; dup {
				return NewVerifyError(ReasonTxDupInputs, 100, "duplicate prevout across inputs")
			}
			seen[in.PrevOut] = struct{}{}
		}
	}
	return nil
}
