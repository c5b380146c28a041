package consensus

import "math/big"

// CompactToTarget decodes Bitcoin's compact 32-bit "nBits" target
// encoding (sign bit in 0x00800000; a 3-byte mantissa shifted by
// exponent-minus-3 bytes) into a 256-bit target.
func CompactToTarget(bits uint32) *big.Int {
	exponent := int(bits >> 24)
	mantissa := bits & 0x007fffff
	negative := bits&0x00800000 != 0

	target := new(big.Int)
	if exponent <= 3 {
		mantissa >>= uint(8 * (3 - exponent))
		target.SetUint64(uint64(mantissa))
	} else {
		target.SetUint64(uint64(mantissa))
		target.Lsh(target, uint(8*(exponent-3)))
	}
	if negative && mantissa != 0 {
		target.Neg(target)
	}
	return target
}

// TargetToCompact encodes a 256-bit target into Bitcoin's compact
// "nBits" form. A negative target is encoded from its absolute value
// with the 0x00800000 sign bit set; a zero target encodes as 0 (the
// chain layer rejects non-positive targets separately).
func TargetToCompact(target *big.Int) uint32 {
	if target.Sign() == 0 {
		return 0
	}
	negative := target.Sign() < 0
	abs := new(big.Int).Abs(target)

	b := abs.Bytes()
	exponent := len(b)
	var mantissa uint32
	switch {
	case exponent <= 3:
		mantissa = uint32(new(big.Int).Lsh(abs, uint(8*(3-exponent))).Uint64())
	default:
		top3 := b[:3]
		mantissa = uint32(top3[0])<<16 | uint32(top3[1])<<8 | uint32(top3[2])
	}

	// If the mantissa's top bit is set, it would be interpreted as the
	// sign bit; shift down one byte and bump the exponent to compensate.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	out := uint32(exponent)<<24 | mantissa
	if negative {
		out |= 0x00800000
	}
	return out
}

// CheckProofOfWork reports whether hash, interpreted as a
// little-endian 256-bit integer, is at or below the target encoded by
// bits, and that the target itself is in (0, powLimit].
func CheckProofOfWork(hash Hash, bits uint32, powLimit *big.Int) bool {
	target := CompactToTarget(bits)
	if target.Sign() <= 0 {
		return false
	}
	if target.Cmp(powLimit) > 0 {
		return false
	}
	var rev [32]byte
	for i := 0; i < 32; i++ {
		rev[i] = hash[31-i]
	}
	hashInt := new(big.Int).SetBytes(rev[:])
	return hashInt.Cmp(target) <= 0
}
