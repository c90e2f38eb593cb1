package rangeset_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailtide/mailtide/internal/rangeset"
)

func TestFromNumsCanonical(t *testing.T) {
	tests := []struct {
		name string
		nums []uint32
		want string
	}{
		{name: "empty", nums: nil, want: ""},
		{name: "singleton", nums: []uint32{7}, want: "7"},
		{name: "adjacent merge", nums: []uint32{3, 1, 2}, want: "1:3"},
		{name: "duplicates collapse", nums: []uint32{5, 5, 5}, want: "5"},
		{name: "mixed", nums: []uint32{10, 1, 2, 3, 12, 11, 20}, want: "1:3,10:12,20"},
		{name: "zero ignored", nums: []uint32{0, 4}, want: "4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rangeset.FromNums(tt.nums...).String())
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	r, err := rangeset.Parse("1:5,7,9:12")
	require.NoError(t, err)
	assert.Equal(t, "1:5,7,9:12", r.String())
	assert.Equal(t, []uint32{1, 2, 3, 4, 5, 7, 9, 10, 11, 12}, r.Nums())

	_, err = rangeset.Parse("0:3")
	assert.Error(t, err)
	_, err = rangeset.Parse("a")
	assert.Error(t, err)
}

// Compressing any finite set then expanding it must yield the original
// set, and compressing an already-canonical range is a fixed point.
func TestCompressExpandRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		seen := map[uint32]bool{}
		var nums []uint32
		for j := 0; j < rng.Intn(200); j++ {
			n := uint32(rng.Intn(500) + 1)
			if !seen[n] {
				seen[n] = true
				nums = append(nums, n)
			}
		}

		r := rangeset.FromNums(nums...)
		assert.Equal(t, len(seen), len(r.Nums()))
		for _, n := range r.Nums() {
			assert.True(t, seen[n])
		}

		again := rangeset.FromNums(r.Nums()...)
		assert.True(t, r.Equal(again), "canonical form must be a fixed point")
	}
}

func TestUnion(t *testing.T) {
	a := rangeset.FromNums(1, 2, 3, 10)
	b := rangeset.FromNums(4, 10, 11)
	assert.Equal(t, "1:4,10:11", a.Union(b).String())
	assert.Equal(t, "1:4,10:11", b.Union(a).String())

	// Union is a set operation, not concatenation.
	assert.True(t, a.Union(a).Equal(a))
}

func TestIntersect(t *testing.T) {
	a, _ := rangeset.Parse("1:10,20:30")
	b, _ := rangeset.Parse("5:25")
	assert.Equal(t, "5:10,20:25", a.Intersect(b).String())
	assert.Equal(t, "", a.Intersect(nil).String())
}

func TestSubtract(t *testing.T) {
	a, _ := rangeset.Parse("1:10")
	b, _ := rangeset.Parse("3:4,8")
	assert.Equal(t, "1:2,5:7,9:10", a.Subtract(b).String())
	assert.Equal(t, "1:10", a.Subtract(nil).String())
	assert.True(t, a.Subtract(a).Empty())
}

func TestComplementWithin(t *testing.T) {
	r, _ := rangeset.Parse("2:3,7")
	assert.Equal(t, "1,4:6,8:10", r.ComplementWithin(1, 10).String())
	assert.Equal(t, "1:10", rangeset.Range(nil).ComplementWithin(1, 10).String())
}

func TestContains(t *testing.T) {
	r, _ := rangeset.Parse("1:5,9")
	for _, n := range []uint32{1, 3, 5, 9} {
		assert.True(t, r.Contains(n))
	}
	for _, n := range []uint32{0, 6, 8, 10} {
		assert.False(t, r.Contains(n))
	}
}

func TestBounds(t *testing.T) {
	r, _ := rangeset.Parse("4:6,12")
	assert.Equal(t, uint32(4), r.Min())
	assert.Equal(t, uint32(12), r.Max())
	assert.Equal(t, uint32(4), r.Count())

	var empty rangeset.Range
	assert.Equal(t, uint32(0), empty.Min())
	assert.Equal(t, uint32(0), empty.Max())
	assert.True(t, empty.Empty())
}

func TestMarshalText(t *testing.T) {
	r, _ := rangeset.Parse("1:3,8")
	text, err := r.MarshalText()
	require.NoError(t, err)

	var back rangeset.Range
	require.NoError(t, back.UnmarshalText(text))
	assert.True(t, r.Equal(back))
}
