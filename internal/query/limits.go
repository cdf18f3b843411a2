package query

type Limits struct {
	Default int
	Max     int
}

// Normalize resolves optional pagination inputs: a nil limit falls back to the
// default, anything else is clamped to [1, Max]; offsets clamp to >= 0.
func (l Limits) Normalize(limit, offset *int) (int, int) {
	resolved := l.Default
	if limit != nil {
		resolved = *limit
		if resolved < 1 {
			resolved = 1
		}
		if l.Max > 0 && resolved > l.Max {
			resolved = l.Max
		}
	}
	resolvedOffset := 0
	if offset != nil && *offset > 0 {
		resolvedOffset = *offset
	}
	return resolved, resolvedOffset
}

// NormalizeSample clamps an optional sample size into [floor, Max], falling
// back to the default when absent or non-positive.
func (l Limits) NormalizeSample(sample *int, floor int) int {
	resolved := l.Default
	if sample != nil && *sample > 0 {
		resolved = *sample
	}
	if l.Max > 0 && resolved > l.Max {
		resolved = l.Max
	}
	if resolved < floor {
		resolved = floor
	}
	return resolved
}
