// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package feefrac

// Ordering is the result of comparing two feerate diagrams.  Diagrams are
// only partially ordered, so besides the usual three outcomes two diagrams
// can be Incomparable.
type Ordering int8

const (
	// Worse means the first diagram is nowhere above the second and below
	// it somewhere.
	Worse Ordering = -1

	// Equal means the diagrams coincide.
	Equal Ordering = 0

	// Better means the first diagram is nowhere below the second and above
	// it somewhere.
	Better Ordering = 1

	// Incomparable means each diagram is above the other somewhere.
	Incomparable Ordering = 2
)

// String returns a human readable form of the ordering.
func (o Ordering) String() string {
	switch o {
	case Worse:
		return "worse"
	case Equal:
		return "equal"
	case Better:
		return "better"
	case Incomparable:
		return "incomparable"
	default:
		return "unknown"
	}
}

// Diagram returns the cumulative points of a chunk sequence, starting with
// the empty point.
func Diagram(chunks []FeeFrac) []FeeFrac {
	points := make([]FeeFrac, 0, len(chunks)+1)
	var acc FeeFrac
	points = append(points, acc)
	for _, chunk := range chunks {
		acc = acc.Add(chunk)
		points = append(points, acc)
	}
	return points
}

// FeeAtSize returns the fee collected by the first size bytes of a chunk
// sequence, assuming chunks may be cut anywhere.  The value is rounded
// down.  Sizes beyond the total return the total fee.
func FeeAtSize(chunks []FeeFrac, size int32) int64 {
	var fee int64
	for _, chunk := range chunks {
		if size <= 0 {
			break
		}
		if chunk.Size <= size {
			fee += chunk.Fee
			size -= chunk.Size
			continue
		}
		fee += chunk.EvaluateFeeDown(size)
		size = 0
	}
	return fee
}

// CompareChunks compares the feerate diagrams formed by two chunk
// sequences, each of which must have non-increasing feerates.  The result is
// from the perspective of chunks0.  Where one diagram is shorter than the
// other it is extended with a zero feerate tail.
func CompareChunks(chunks0, chunks1 []FeeFrac) Ordering {
	chunk := [2][]FeeFrac{chunks0, chunks1}
	var (
		next            [2]int
		accum           [2]FeeFrac
		betterSomewhere [2]bool
	)

	nextPoint := func(side int) FeeFrac {
		return accum[side].Add(chunk[side][next[side]])
	}
	advance := func(side int) {
		accum[side] = accum[side].Add(chunk[side][next[side]])
		next[side]++
	}

	for {
		done0 := next[0] == len(chunk[0])
		done1 := next[1] == len(chunk[1])
		if done0 && done1 {
			break
		}

		// Pick the side whose next point comes first.  When one side
		// is exhausted, process the other.
		var side int
		switch {
		case done0:
			side = 1
		case done1:
			side = 0
		case nextPoint(0).Size > nextPoint(1).Size:
			side = 1
		}
		other := 1 - side

		// P is the next point on side, A the last processed point on
		// the other side and B the next point there.  Compare the
		// slope AP against AB to decide whether P lies above or below
		// the other diagram.
		pointP := nextPoint(side)
		pointA := accum[other]
		slopeAP := pointP.Sub(pointA)

		var c int
		if done0 || done1 {
			c = FeeRateCompare(slopeAP, New(0, 1))
		} else {
			pointB := nextPoint(other)
			slopeAB := pointB.Sub(pointA)
			c = FeeRateCompare(slopeAP, slopeAB)

			// B has been compared at this size as well.
			if pointB.Size == pointP.Size {
				advance(other)
			}
		}

		if c > 0 {
			betterSomewhere[side] = true
		}
		if c < 0 {
			betterSomewhere[other] = true
		}
		advance(side)

		if betterSomewhere[0] && betterSomewhere[1] {
			return Incomparable
		}
	}

	switch {
	case betterSomewhere[0]:
		return Better
	case betterSomewhere[1]:
		return Worse
	default:
		return Equal
	}
}
