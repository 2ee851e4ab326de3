package clusters

// FeatureSet is a FeatureMap bitmap under construction.
type FeatureSet uint32

// With returns the set with bits added when cond holds.
func (f FeatureSet) With(bits uint32, cond bool) FeatureSet {
	if cond {
		return f | FeatureSet(bits)
	}
	return f
}

// Has reports whether all bits are set.
func (f FeatureSet) Has(bits uint32) bool {
	return uint32(f)&bits == bits
}

// HasAny reports whether any of bits is set.
func (f FeatureSet) HasAny(bits uint32) bool {
	return uint32(f)&bits != 0
}

// Uint32 returns the raw bitmap.
func (f FeatureSet) Uint32() uint32 {
	return uint32(f)
}
