package differ

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitgutter/internal/intern"
	"gitgutter/internal/linediff"
)

var algorithms = []linediff.Algorithm{linediff.Myers, linediff.Ratcliff}

// finish closes the differ, waits for the worker and returns the final diff.
func finish(t *testing.T, d *Differ) []LineChange {
	t.Helper()
	d.Close()
	select {
	case <-d.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("diff worker did not terminate")
	}
	snap := d.LineDiffs()
	defer snap.Release()
	return snap.Sorted()
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name string
		base string
		doc  string
		want []LineChange
	}{
		{"append line", "foo\n", "foo\nbar\n", []LineChange{{1, Added}}},
		{"prepend line", "foo\n", "bar\nfoo\n", []LineChange{{0, Added}}},
		{"modify", "foo\nbar\n", "foo bar\nbar\n", []LineChange{{0, Modified}}},
		{"delete line", "foo\nfoo bar\nbar\n", "foo\nbar\n", []LineChange{{1, Deleted}}},
		{
			"delete line and modify",
			"foo\nbar\ntest\nfoo",
			"foo\ntest\nfoo bar",
			[]LineChange{{1, Deleted}, {2, Modified}},
		},
		{
			"add import",
			"import \"fmt\"\nimport \"os\"\n",
			"import \"fmt\"\nimport \"io\"\nimport \"os\"\n",
			[]LineChange{{1, Added}},
		},
		{"delete at end of file", "a\nb\n", "a\n", []LineChange{{1, Deleted}}},
		{"unchanged", "a\nb\n", "a\nb\n", []LineChange{}},
	}

	for _, alg := range algorithms {
		for _, tt := range tests {
			t.Run(alg.String()+"/"+tt.name, func(t *testing.T) {
				d := New(tt.base, tt.doc, WithAlgorithm(alg))
				assert.Equal(t, tt.want, finish(t, d))
			})
		}
	}
}

func TestUpdateDocument(t *testing.T) {
	d := New("foo\nbar\ntest\nfoo", "foo\nbar\ntest\nfoo", WithDebounce(10*time.Millisecond))
	require.True(t, d.UpdateDocument("foo\ntest\nfoo bar"))
	assert.Equal(t, []LineChange{{1, Deleted}, {2, Modified}}, finish(t, d))
}

func TestUpdateDiffBase(t *testing.T) {
	d := New("foo\ntest\nfoo bar", "foo\ntest\nfoo bar", WithDebounce(10*time.Millisecond))
	require.True(t, d.UpdateDiffBase("foo\nbar\ntest\nfoo"))
	assert.Equal(t, []LineChange{{1, Deleted}, {2, Modified}}, finish(t, d))
}

func TestDiffBaseAndDocumentInOneBurst(t *testing.T) {
	d := New("a\n", "a\n", WithDebounce(50*time.Millisecond))
	require.True(t, d.UpdateDiffBase("b\n"))
	require.True(t, d.UpdateDocument("b\nc\n"))
	assert.Equal(t, []LineChange{{1, Added}}, finish(t, d))
}

func TestNewDocumentReplacesStaleEntries(t *testing.T) {
	d := New("a\nb\n", "x\nb\n", WithDebounce(time.Millisecond))

	require.Eventually(t, func() bool {
		snap := d.LineDiffs()
		defer snap.Release()
		return snap.Generation() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	snap := d.LineDiffs()
	assert.Equal(t, []LineChange{{0, Modified}}, snap.Sorted())
	snap.Release()

	require.True(t, d.UpdateDocument("a\nb\nc\n"))
	assert.Equal(t, []LineChange{{2, Added}}, finish(t, d))
}

func TestBurstIsDiffedOnce(t *testing.T) {
	const window = 50 * time.Millisecond
	d := New("base\n", "base\n", WithDebounce(window))
	defer d.Close()

	require.Eventually(t, func() bool {
		snap := d.LineDiffs()
		defer snap.Release()
		return snap.Generation() == 1
	}, 2*time.Second, time.Millisecond)

	doc := "base\n"
	for i := 0; i < 20; i++ {
		doc += fmt.Sprintf("line %d\n", i)
		require.True(t, d.UpdateDocument(doc))
	}

	require.Eventually(t, func() bool {
		snap := d.LineDiffs()
		defer snap.Release()
		return snap.Generation() >= 2
	}, 2*time.Second, time.Millisecond)

	time.Sleep(3 * window)
	snap := d.LineDiffs()
	defer snap.Release()
	assert.Equal(t, uint64(2), snap.Generation(), "intermediate documents must not be diffed")
	assert.Equal(t, 20, snap.Len())
	for line := 1; line <= 20; line++ {
		kind, ok := snap.Get(line)
		assert.True(t, ok)
		assert.Equal(t, Added, kind)
	}
}

func TestUpdatesFailAfterClose(t *testing.T) {
	d := New("a\n", "a\n")
	finish(t, d)
	assert.False(t, d.UpdateDocument("b\n"))
	assert.False(t, d.UpdateDiffBase("b\n"))

	// Closing twice is harmless and readers still see the final diff.
	d.Close()
	snap := d.LineDiffs()
	defer snap.Release()
	assert.Equal(t, uint64(1), snap.Generation())
}

func TestOversizedInputPublishesEmptyDiff(t *testing.T) {
	limits := intern.Limits{MaxLines: 3, MaxBytes: 1 << 10}
	d := New("a\nb\n", "c\nd\n", WithLimits(limits), WithDebounce(time.Millisecond))

	require.Eventually(t, func() bool {
		snap := d.LineDiffs()
		defer snap.Release()
		return snap.Generation() == 1
	}, 2*time.Second, time.Millisecond)
	snap := d.LineDiffs()
	assert.Equal(t, 0, snap.Len())
	snap.Release()

	require.True(t, d.UpdateDocument("c\n"))
	assert.Equal(t, []LineChange{{0, Modified}}, finish(t, d))
}

func TestInsertedBlockIsMarkedAdded(t *testing.T) {
	base := make([]string, 8)
	for i := range base {
		base[i] = fmt.Sprintf("base %d\n", i)
	}
	for _, alg := range algorithms {
		for at := 0; at <= len(base); at++ {
			for size := 1; size <= 3; size++ {
				doc := append([]string(nil), base[:at]...)
				for k := 0; k < size; k++ {
					doc = append(doc, fmt.Sprintf("new %d\n", k))
				}
				doc = append(doc, base[at:]...)

				d := New(strings.Join(base, ""), strings.Join(doc, ""), WithAlgorithm(alg))
				want := make([]LineChange, 0, size)
				for k := 0; k < size; k++ {
					want = append(want, LineChange{at + k, Added})
				}
				assert.Equal(t, want, finish(t, d), "%s at=%d size=%d", alg, at, size)
			}
		}
	}
}

func TestDeletedBlockLeavesOneMarker(t *testing.T) {
	base := make([]string, 8)
	for i := range base {
		base[i] = fmt.Sprintf("base %d\n", i)
	}
	for _, alg := range algorithms {
		for at := 0; at < len(base); at++ {
			for size := 1; at+size <= len(base) && size <= 3; size++ {
				doc := append([]string(nil), base[:at]...)
				doc = append(doc, base[at+size:]...)

				d := New(strings.Join(base, ""), strings.Join(doc, ""), WithAlgorithm(alg))
				assert.Equal(t, []LineChange{{at, Deleted}}, finish(t, d), "%s at=%d size=%d", alg, at, size)
			}
		}
	}
}

func TestConcurrentReadersSeeWholeGenerations(t *testing.T) {
	d := New("", "", WithDebounce(0))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 8)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				// Every published document consists of n added lines, so a
				// consistent snapshot holds exactly the keys 0..n-1.
				snap := d.LineDiffs()
				n := snap.Len()
				for line := 0; line < n; line++ {
					if kind, ok := snap.Get(line); !ok || kind != Added {
						select {
						case errs <- fmt.Sprintf("generation %d: line %d of %d is %v", snap.Generation(), line, n, kind):
						default:
						}
						break
					}
				}
				snap.Release()
			}
		}()
	}

	doc := ""
	for i := 0; i < 200; i++ {
		doc += fmt.Sprintf("%d\n", i)
		require.True(t, d.UpdateDocument(doc))
		if i%20 == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	got := finish(t, d)
	close(stop)
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
	assert.Len(t, got, 200)
}

func waitForGeneration(t *testing.T, d *Differ, gen uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		snap := d.LineDiffs()
		defer snap.Release()
		return snap.Generation() >= gen
	}, 2*time.Second, time.Millisecond)
}

func TestRepeatedReleaseKeepsReadersWorking(t *testing.T) {
	d := New("a\n", "b\n", WithDebounce(0))
	defer d.Close()
	waitForGeneration(t, d, 1)

	held := d.LineDiffs()
	extra := d.LineDiffs()
	extra.Release()
	extra.Release()

	got := make(chan uint64, 1)
	go func() {
		snap := d.LineDiffs()
		defer snap.Release()
		got <- snap.Generation()
	}()
	select {
	case gen := <-got:
		assert.Equal(t, uint64(1), gen)
	case <-time.After(time.Second):
		t.Fatal("LineDiffs blocked after a repeated Release")
	}

	// The held generation must survive the next publish untouched.
	require.True(t, d.UpdateDocument("c\n"))
	waitForGeneration(t, d, 2)
	assert.Equal(t, []LineChange{{0, Modified}}, held.Sorted())
	held.Release()
}

func TestWorkerPanicKeepsLastDiff(t *testing.T) {
	var calls atomic.Int32
	failing := func(alg linediff.Algorithm, in *intern.Input, fn func(before, after linediff.Range)) {
		if calls.Add(1) > 1 {
			panic("diff failed")
		}
		linediff.Diff(alg, in, fn)
	}
	d := New("a\n", "a\nb\n", WithDebounce(0), func(s *settings) { s.diff = failing })
	waitForGeneration(t, d, 1)

	require.True(t, d.UpdateDocument("c\n"))
	select {
	case <-d.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after a panic")
	}

	snap := d.LineDiffs()
	defer snap.Release()
	assert.Equal(t, uint64(1), snap.Generation())
	assert.Equal(t, []LineChange{{1, Added}}, snap.Sorted())
	assert.False(t, d.UpdateDocument("d\n"))
	assert.False(t, d.UpdateDiffBase("d\n"))
}

// startDetached returns only the Done channel so the Differ itself becomes
// unreachable.
func startDetached() <-chan struct{} {
	d := New("a\n", "b\n", WithDebounce(0))
	return d.Done()
}

func TestUnreachableDifferStopsWorker(t *testing.T) {
	done := startDetached()
	require.Eventually(t, func() bool {
		runtime.GC()
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestDeletedBlockCountsAsOneDeletionPoint(t *testing.T) {
	for _, alg := range algorithms {
		t.Run(alg.String(), func(t *testing.T) {
			d := New("a\nb\nc\nd\n", "a\nd\n", WithAlgorithm(alg))
			finish(t, d)
			snap := d.LineDiffs()
			defer snap.Release()
			assert.Equal(t, Stats{Deleted: 1}, snap.Stats())
		})
	}
}

func TestWithDebounceIgnoresNegative(t *testing.T) {
	s := settings{debounce: DefaultDebounce}
	WithDebounce(-time.Second)(&s)
	assert.Equal(t, DefaultDebounce, s.debounce)
	WithDebounce(0)(&s)
	assert.Equal(t, time.Duration(0), s.debounce)
}
