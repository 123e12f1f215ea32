package differ

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapID(m LineDiffs) uintptr {
	return reflect.ValueOf(m).Pointer()
}

func TestPublishReclaimsUnreferencedMap(t *testing.T) {
	p := newPublication()

	first := LineDiffs{1: Added}
	spare := p.publish(first)
	require.NotNil(t, spare, "nobody reads the placeholder")
	assert.Empty(t, spare)

	spare[4] = Modified
	again := p.publish(spare)
	require.NotNil(t, again)
	assert.Equal(t, mapID(first), mapID(again), "the first map is handed back for reuse")
	assert.Empty(t, again)

	snap := p.acquire()
	defer snap.Release()
	assert.Equal(t, uint64(2), snap.Generation())
	kind, ok := snap.Get(4)
	assert.True(t, ok)
	assert.Equal(t, Modified, kind)
}

func TestPublishKeepsMapHeldByReader(t *testing.T) {
	p := newPublication()
	p.publish(LineDiffs{0: Added, 1: Added})

	held := p.acquire()
	assert.Nil(t, p.publish(LineDiffs{5: Deleted}), "a held snapshot must not be reused")

	assert.Equal(t, 2, held.Len())
	assert.Equal(t, uint64(1), held.Generation())
	held.Release()

	// The held snapshot is no longer current, so releasing it does not bring
	// it back; the next publish reclaims the generation-2 map instead.
	spare := p.publish(LineDiffs{})
	require.NotNil(t, spare)
	assert.Empty(t, spare)
}

func TestAcquireSkipsRetiredSnapshot(t *testing.T) {
	p := newPublication()
	placeholder := p.current.Load()
	p.publish(LineDiffs{3: Modified})

	assert.Equal(t, int32(retired), placeholder.refs.Load())

	snap := p.acquire()
	defer snap.Release()
	assert.NotSame(t, placeholder, snap.v)
	assert.Equal(t, uint64(1), snap.Generation())
}

func TestSnapshotCloneIsIndependent(t *testing.T) {
	p := newPublication()
	p.publish(LineDiffs{2: Added})
	snap := p.acquire()
	clone := snap.Clone()
	snap.Release()

	p.publish(LineDiffs{})
	p.publish(LineDiffs{})
	assert.Equal(t, LineDiffs{2: Added}, clone)
}

func TestReleaseCountsOncePerSnapshot(t *testing.T) {
	p := newPublication()
	p.publish(LineDiffs{1: Added})

	held := p.acquire()
	twice := p.acquire()
	twice.Release()
	twice.Release()
	assert.Nil(t, p.publish(LineDiffs{2: Added}), "the map is still held by a reader")
	assert.Equal(t, LineDiffs{1: Added}, held.Clone())
	held.Release()
	held.Release()

	// Only the publication's own reference is left on the current map.
	spare := p.publish(LineDiffs{})
	require.NotNil(t, spare)
	assert.Empty(t, spare)
}
