package timeseries

// Fill replaces every gap with a value linearly interpolated between the
// nearest known neighbours. Leading and trailing gaps have a known value on
// one side only and are filled by constant extension of that value. The input
// must carry at least two known samples.
func Fill(s *Series) (*Series, error) {
	known := 0
	for i := 0; i < s.Len(); i++ {
		if !IsGap(s.At(i)) {
			known++
		}
	}
	if known < 2 {
		return nil, ErrInsufficientData
	}

	v := s.Values()

	// Interior gaps: weight by the fractional position between the two
	// enclosing known samples.
	prev := -1
	for i := 0; i < len(v); i++ {
		if IsGap(v[i]) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			span := float64(i - prev)
			for j := prev + 1; j < i; j++ {
				frac := float64(j-prev) / span
				v[j] = v[prev] + (v[i]-v[prev])*frac
			}
		}
		prev = i
	}

	// Leading gaps extend the first known value backwards.
	first := 0
	for IsGap(v[first]) {
		first++
	}
	for j := 0; j < first; j++ {
		v[j] = v[first]
	}

	// Trailing gaps extend the last known value forwards.
	last := len(v) - 1
	for IsGap(v[last]) {
		last--
	}
	for j := last + 1; j < len(v); j++ {
		v[j] = v[last]
	}

	return &Series{start: s.start, step: s.step, values: v}, nil
}
