package chain

// MagneticAnomalyActivationTime is the mainnet MTP threshold past
// which canonical transaction ordering (CTOR) and the cash opcode
// extensions become mandatory (spec.md §4.E).
const MagneticAnomalyActivationTime = 1573819200 // 2019-11-15T00:00:00Z

// MagneticAnomalyActive reports whether the feature is active for a
// block whose parent has the given median-time-past.
func MagneticAnomalyActive(parentMTP uint64) bool {
	return parentMTP >= MagneticAnomalyActivationTime
}
