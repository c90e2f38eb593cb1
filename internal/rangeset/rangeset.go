// Package rangeset implements compressed sets of positive message numbers
// as ordered lists of closed intervals, using the IMAP sequence-set syntax
// ("1:5,7,9:12") for the wire and persisted representations.
package rangeset

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Interval is a closed interval of message numbers.
type Interval struct {
	Lo, Hi uint32
}

// Range is a set of positive integers stored as ordered, disjoint,
// non-adjacent intervals. The zero value is the empty set. Every exported
// operation yields a canonical Range, so two ranges describe the same set
// iff Equal reports true.
type Range []Interval

// FromNums returns the canonical Range containing the given numbers.
// Zero values are ignored.
func FromNums(nums ...uint32) Range {
	var r Range
	r.Add(nums...)
	return r
}

// New returns the Range covering the single interval [lo, hi].
// It returns the empty Range when hi < lo or hi is zero.
func New(lo, hi uint32) Range {
	if hi < lo || hi == 0 {
		return nil
	}
	if lo == 0 {
		lo = 1
	}
	return Range{{Lo: lo, Hi: hi}}
}

// Parse decodes a Range from its sequence-set form.
func Parse(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var r Range
	for _, part := range strings.Split(s, ",") {
		lo, hi, found := strings.Cut(part, ":")
		start, err := strconv.ParseUint(lo, 10, 32)
		if err != nil || start == 0 {
			return nil, errors.Errorf("rangeset: invalid number %q", lo)
		}
		stop := start
		if found {
			stop, err = strconv.ParseUint(hi, 10, 32)
			if err != nil || stop == 0 {
				return nil, errors.Errorf("rangeset: invalid number %q", hi)
			}
		}
		if stop < start {
			start, stop = stop, start
		}
		r = append(r, Interval{Lo: uint32(start), Hi: uint32(stop)})
	}
	return canonical(r), nil
}

// String encodes the Range in sequence-set form. The empty Range encodes
// as the empty string.
func (r Range) String() string {
	var sb strings.Builder
	for i, iv := range r {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(iv.Lo), 10))
		if iv.Hi != iv.Lo {
			sb.WriteByte(':')
			sb.WriteString(strconv.FormatUint(uint64(iv.Hi), 10))
		}
	}
	return sb.String()
}

// Add inserts the given numbers, keeping the Range canonical.
func (r *Range) Add(nums ...uint32) {
	for _, n := range nums {
		if n == 0 {
			continue
		}
		*r = append(*r, Interval{Lo: n, Hi: n})
	}
	*r = canonical(*r)
}

// AddInterval inserts the interval [lo, hi], keeping the Range canonical.
func (r *Range) AddInterval(lo, hi uint32) {
	if hi < lo || hi == 0 {
		return
	}
	if lo == 0 {
		lo = 1
	}
	*r = canonical(append(*r, Interval{Lo: lo, Hi: hi}))
}

// Union returns the set union of r and other.
func (r Range) Union(other Range) Range {
	merged := make(Range, 0, len(r)+len(other))
	merged = append(merged, r...)
	merged = append(merged, other...)
	return canonical(merged)
}

// Intersect returns the set intersection of r and other.
func (r Range) Intersect(other Range) Range {
	var out Range
	i, j := 0, 0
	for i < len(r) && j < len(other) {
		a, b := r[i], other[j]
		lo := max32(a.Lo, b.Lo)
		hi := min32(a.Hi, b.Hi)
		if lo <= hi {
			out = append(out, Interval{Lo: lo, Hi: hi})
		}
		if a.Hi < b.Hi {
			i++
		} else {
			j++
		}
	}
	return canonical(out)
}

// Subtract returns the members of r not contained in other.
func (r Range) Subtract(other Range) Range {
	var out Range
	for _, iv := range r {
		lo := iv.Lo
		for _, cut := range other {
			if cut.Hi < lo {
				continue
			}
			if cut.Lo > iv.Hi {
				break
			}
			if cut.Lo > lo {
				out = append(out, Interval{Lo: lo, Hi: cut.Lo - 1})
			}
			if cut.Hi >= iv.Hi {
				lo = 0
				break
			}
			lo = cut.Hi + 1
		}
		if lo != 0 && lo <= iv.Hi {
			out = append(out, Interval{Lo: lo, Hi: iv.Hi})
		}
	}
	return canonical(out)
}

// ComplementWithin returns the members of [lo, hi] not contained in r.
func (r Range) ComplementWithin(lo, hi uint32) Range {
	return New(lo, hi).Subtract(r)
}

// Contains reports whether n is a member of the set.
func (r Range) Contains(n uint32) bool {
	idx := sort.Search(len(r), func(i int) bool { return r[i].Hi >= n })
	return idx < len(r) && r[idx].Lo <= n
}

// Nums expands the Range into the sorted slice of its members.
func (r Range) Nums() []uint32 {
	nums := make([]uint32, 0, r.Count())
	for _, iv := range r {
		for n := iv.Lo; ; n++ {
			nums = append(nums, n)
			if n == iv.Hi {
				break
			}
		}
	}
	return nums
}

// Count returns the number of members in the set.
func (r Range) Count() uint32 {
	var total uint32
	for _, iv := range r {
		total += iv.Hi - iv.Lo + 1
	}
	return total
}

// Empty reports whether the set has no members.
func (r Range) Empty() bool {
	return len(r) == 0
}

// Equal reports whether r and other describe the same set.
func (r Range) Equal(other Range) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i] != other[i] {
			return false
		}
	}
	return true
}

// Min returns the smallest member, or zero for the empty set.
func (r Range) Min() uint32 {
	if len(r) == 0 {
		return 0
	}
	return r[0].Lo
}

// Max returns the largest member, or zero for the empty set.
func (r Range) Max() uint32 {
	if len(r) == 0 {
		return 0
	}
	return r[len(r)-1].Hi
}

// MarshalText encodes the Range in sequence-set form for persistence.
func (r Range) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes the Range from sequence-set form.
func (r *Range) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// canonical sorts the intervals and merges overlapping or adjacent ones.
func canonical(r Range) Range {
	if len(r) == 0 {
		return nil
	}
	sort.Slice(r, func(i, j int) bool {
		if r[i].Lo != r[j].Lo {
			return r[i].Lo < r[j].Lo
		}
		return r[i].Hi < r[j].Hi
	})
	out := r[:1]
	for _, iv := range r[1:] {
		last := &out[len(out)-1]
		if iv.Lo <= last.Hi || (last.Hi != ^uint32(0) && iv.Lo == last.Hi+1) {
			if iv.Hi > last.Hi {
				last.Hi = iv.Hi
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
