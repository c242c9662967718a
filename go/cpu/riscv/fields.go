package riscv

// bitrange returns bits [hi:lo] of v, inclusive.
func bitrange(v uint32, hi, lo uint) uint32 {
	return (v >> lo) & (1<<(hi-lo+1) - 1)
}

func signExtend(v uint64, bits uint) int64 {
	shift := 64 - bits
	return int64(v<<shift) >> shift
}

func immI(raw uint32) int64 {
	return signExtend(uint64(bitrange(raw, 31, 20)), 12)
}

func immS(raw uint32) int64 {
	return signExtend(uint64(bitrange(raw, 31, 25)<<5|bitrange(raw, 11, 7)), 12)
}

func immB(raw uint32) int64 {
	v := bitrange(raw, 31, 31)<<12 | bitrange(raw, 7, 7)<<11 |
		bitrange(raw, 30, 25)<<5 | bitrange(raw, 11, 8)<<1
	return signExtend(uint64(v), 13)
}

func immU(raw uint32) int64 {
	return signExtend(uint64(raw&0xfffff000), 32)
}

func immJ(raw uint32) int64 {
	v := bitrange(raw, 31, 31)<<20 | bitrange(raw, 19, 12)<<12 |
		bitrange(raw, 20, 20)<<11 | bitrange(raw, 30, 21)<<1
	return signExtend(uint64(v), 21)
}
