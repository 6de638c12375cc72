package xlatmap

// interval is an address-space tile in absolute [lo, hi] form, used
// only as scratch during Set; the persistent representation stays
// EndOff-relative (Range) so maps stay cheap to clone.
type interval struct {
	lo, hi uint64
	method int
}

// Set installs method for the inclusive range [addr, addr+endOff],
// clipping or splitting any overlapping ranges so the map continues
// to tile [0, 2^64) with no gaps:
//
//   - a new range that abuts or overlaps a same-method neighbor merges
//     with it;
//   - a partially overlapped different-method neighbor is shortened,
//     or dropped if fully covered;
//   - exact-boundary collisions favor the new range.
func (m *Map) Set(addr, endOff uint64, method int) {
	lo := addr
	hi := addr + endOff // inclusive

	var out []interval
	var base uint64
	for _, r := range m.ranges {
		rlo := base
		rhi := base + r.EndOff
		base = rhi + 1

		switch {
		case rhi < lo || rlo > hi:
			// No overlap with the new range: keep as-is.
			out = append(out, interval{rlo, rhi, r.Method})
		case rlo < lo:
			// Existing range's head survives, clipped before lo.
			out = append(out, interval{rlo, lo - 1, r.Method})
			if rhi > hi {
				// ...and its tail survives too, clipped after hi.
				out = append(out, interval{hi + 1, rhi, r.Method})
			}
		case rhi > hi:
			// Existing range's tail survives, clipped after hi.
			out = append(out, interval{hi + 1, rhi, r.Method})
		default:
			// Existing range fully covered by the new one: drop it.
		}
	}

	out = insertSorted(out, interval{lo, hi, method})
	m.ranges = toRanges(coalesce(out))
}

// insertSorted inserts iv into out (already sorted and gap-tiling
// outside iv's span) at its address-ordered position.
func insertSorted(out []interval, iv interval) []interval {
	i := 0
	for i < len(out) && out[i].lo < iv.lo {
		i++
	}
	res := make([]interval, 0, len(out)+1)
	res = append(res, out[:i]...)
	res = append(res, iv)
	res = append(res, out[i:]...)
	return res
}

// coalesce merges adjacent intervals that share a method index.
func coalesce(in []interval) []interval {
	if len(in) == 0 {
		return in
	}
	out := make([]interval, 0, len(in))
	cur := in[0]
	for _, iv := range in[1:] {
		if iv.method == cur.method && iv.lo == cur.hi+1 {
			cur.hi = iv.hi
			continue
		}
		out = append(out, cur)
		cur = iv
	}
	out = append(out, cur)
	return out
}

// toRanges converts a gap-tiling, address-ordered interval list back
// to the EndOff-relative Range representation.
func toRanges(in []interval) []Range {
	out := make([]Range, len(in))
	for i, iv := range in {
		out[i] = Range{EndOff: iv.hi - iv.lo, Method: iv.method}
	}
	return out
}
