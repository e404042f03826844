package align

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rec struct {
	Key string
}

func key(r rec) string { return r.Key }

func TestMerge_Example(t *testing.T) {
	left := []rec{{"a"}, {"c"}}
	right := []rec{{"b"}, {"c"}}

	entries := Merge(left, right, key, key)
	require.Len(t, entries, 3)

	assert.Equal(t, "a", entries[0].Left.Key)
	assert.Nil(t, entries[0].Right)
	assert.False(t, entries[0].Matched())

	assert.Nil(t, entries[1].Left)
	assert.Equal(t, "b", entries[1].Right.Key)

	assert.True(t, entries[2].Matched())
	assert.Equal(t, "c", entries[2].Left.Key)
	assert.Equal(t, "c", entries[2].Right.Key)
}

func TestMerge_EmptySides(t *testing.T) {
	assert.Empty(t, Merge(nil, nil, key, key))

	entries := Merge([]rec{{"a"}}, nil, key, key)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Left.Key)
	assert.Nil(t, entries[0].Right)

	entries = Merge(nil, []rec{{"b"}}, key, key)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Right.Key)
}

func TestMerge_DifferentTypes(t *testing.T) {
	type a struct{ URL string }
	type b struct{ Link string }

	left := []a{{"u/1"}, {"u/2"}}
	right := []b{{"u/2"}, {"u/3"}}

	entries := Merge(left, right,
		func(v a) string { return v.URL },
		func(v b) string { return v.Link })

	require.Len(t, entries, 3)
	assert.False(t, entries[0].Matched())
	assert.True(t, entries[1].Matched())
	assert.False(t, entries[2].Matched())
}

func TestMerge_EveryRecordAppearsOnce(t *testing.T) {
	left := []rec{{"a"}, {"b"}, {"d"}, {"f"}}
	right := []rec{{"b"}, {"c"}, {"d"}, {"e"}}

	entries := Merge(left, right, key, key)

	keys := map[string]bool{}
	var nLeft, nRight int
	for _, e := range entries {
		var k string
		if e.Left != nil {
			nLeft++
			k = e.Left.Key
		}
		if e.Right != nil {
			nRight++
			k = e.Right.Key
		}
		assert.False(t, keys[k], "key %q appeared twice", k)
		keys[k] = true
	}
	assert.Equal(t, len(left), nLeft)
	assert.Equal(t, len(right), nRight)

	// Union of distinct keys.
	union := map[string]bool{}
	for _, r := range left {
		union[r.Key] = true
	}
	for _, r := range right {
		union[r.Key] = true
	}
	assert.Len(t, entries, len(union))

	var got []string
	for k := range keys {
		got = append(got, k)
	}
	sort.Strings(got)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, got)
}
