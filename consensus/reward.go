package consensus

// GetReward computes the coinbase subsidy at height, halving every
// interval blocks and dropping to zero after 33 halvings (spec.md §4.G).
func GetReward(height uint64, interval uint64) Amount {
	halvings := height / interval
	if halvings >= 33 {
		return 0
	}
	if halvings == 0 {
		return BaseReward
	}
	return HalfReward >> (halvings - 1)
}
