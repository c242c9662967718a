package riscv

// Catalog returns every instruction definition for both XLENs. Callers
// must not modify the result.
func Catalog() []*Definition {
	var defs []*Definition
	defs = append(defs, baseDefs...)
	defs = append(defs, mulDefs...)
	defs = append(defs, atomicDefs()...)
	defs = append(defs, floatDefs()...)
	defs = append(defs, systemDefs...)
	return defs
}
