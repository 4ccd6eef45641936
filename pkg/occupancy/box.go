package occupancy

import "math"

// Bounds returns the bounding box of a (possibly triclinic) box.
func (b Box) Bounds() (lo, hi [3]float64) {
	lo, hi = b.Lo, b.Hi
	xy, xz, yz := b.Tilt[0], b.Tilt[1], b.Tilt[2]
	lo[0] += math.Min(math.Min(0, xy), math.Min(xz, xy+xz))
	hi[0] += math.Max(math.Max(0, xy), math.Max(xz, xy+xz))
	lo[1] += math.Min(0, yz)
	hi[1] += math.Max(0, yz)
	return
}

// Wrap maps p into the box through the periodic boundaries.
func (b Box) Wrap(p [3]float64) [3]float64 {
	var l [3]float64
	for k := range l {
		l[k] = b.Hi[k] - b.Lo[k]
		if l[k] <= 0 {
			return p
		}
	}
	xy, xz, yz := b.Tilt[0], b.Tilt[1], b.Tilt[2]

	// Fractional coordinates.
	var s [3]float64
	s[2] = (p[2] - b.Lo[2]) / l[2]
	s[1] = (p[1] - b.Lo[1] - yz*s[2]) / l[1]
	s[0] = (p[0] - b.Lo[0] - xy*s[1] - xz*s[2]) / l[0]
	for k := range s {
		s[k] -= math.Floor(s[k])
	}

	return [3]float64{
		b.Lo[0] + l[0]*s[0] + xy*s[1] + xz*s[2],
		b.Lo[1] + l[1]*s[1] + yz*s[2],
		b.Lo[2] + l[2]*s[2],
	}
}
