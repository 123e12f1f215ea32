package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func snapshotOf(diffs LineDiffs) *Snapshot {
	v := &version{diffs: diffs, generation: 1}
	v.refs.Store(2)
	return &Snapshot{v: v}
}

func TestHunksGroupRuns(t *testing.T) {
	s := snapshotOf(LineDiffs{
		0: Added, 1: Added,
		3: Deleted, 4: Deleted,
		6: Modified, 7: Modified, 8: Added,
	})
	assert.Equal(t, []Hunk{
		{Start: 0, End: 2, Kind: Added},
		{Start: 3, End: 4, Kind: Deleted},
		{Start: 4, End: 5, Kind: Deleted},
		{Start: 6, End: 8, Kind: Modified},
		{Start: 8, End: 9, Kind: Added},
	}, s.Hunks())
}

func TestNextAndPrevChange(t *testing.T) {
	s := snapshotOf(LineDiffs{2: Added, 3: Added, 10: Deleted, 20: Modified})

	line, ok := s.NextChange(0)
	assert.True(t, ok)
	assert.Equal(t, 2, line)

	line, ok = s.NextChange(2)
	assert.True(t, ok)
	assert.Equal(t, 10, line, "lines inside the current hunk are skipped")

	_, ok = s.NextChange(20)
	assert.False(t, ok)

	line, ok = s.PrevChange(20)
	assert.True(t, ok)
	assert.Equal(t, 10, line)

	line, ok = s.PrevChange(3)
	assert.True(t, ok)
	assert.Equal(t, 2, line)

	_, ok = s.PrevChange(2)
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	s := snapshotOf(LineDiffs{0: Added, 1: Added, 4: Modified, 9: Deleted})
	assert.Equal(t, Stats{Added: 2, Modified: 1, Deleted: 1}, s.Stats())
}

func TestLineDiffString(t *testing.T) {
	assert.Equal(t, "added", Added.String())
	assert.Equal(t, "deleted", Deleted.String())
	assert.Equal(t, "modified", Modified.String())
	assert.Equal(t, "LineDiff(0)", LineDiff(0).String())
}
