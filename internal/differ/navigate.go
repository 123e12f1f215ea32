package differ

// Hunk is a run of consecutive lines with the same classification.
type Hunk struct {
	Start int
	End   int
	Kind  LineDiff
}

// Hunks groups the snapshot into runs ordered by line. A Deleted marker is
// always its own hunk of length one.
func (s *Snapshot) Hunks() []Hunk {
	var hunks []Hunk
	for _, c := range s.Sorted() {
		if n := len(hunks); n > 0 {
			last := &hunks[n-1]
			if c.Kind != Deleted && last.Kind == c.Kind && last.End == c.Line {
				last.End++
				continue
			}
		}
		hunks = append(hunks, Hunk{Start: c.Line, End: c.Line + 1, Kind: c.Kind})
	}
	return hunks
}

// NextChange returns the first line of the first hunk that starts after line.
func (s *Snapshot) NextChange(line int) (int, bool) {
	for _, h := range s.Hunks() {
		if h.Start > line {
			return h.Start, true
		}
	}
	return 0, false
}

// PrevChange returns the first line of the last hunk that starts before line.
func (s *Snapshot) PrevChange(line int) (int, bool) {
	hunks := s.Hunks()
	for i := len(hunks) - 1; i >= 0; i-- {
		if hunks[i].Start < line {
			return hunks[i].Start, true
		}
	}
	return 0, false
}

// Stats counts the markers of each classification. Added and Modified are
// document lines. Deleted counts deletion points: a single marker stands for
// every base line removed at that position.
type Stats struct {
	Added    int
	Modified int
	Deleted  int
}

func (s *Snapshot) Stats() Stats {
	var st Stats
	for _, kind := range s.v.diffs {
		switch kind {
		case Added:
			st.Added++
		case Modified:
			st.Modified++
		case Deleted:
			st.Deleted++
		}
	}
	return st
}
