package app

import "testing"

func TestPaneWidthsWithFilesPane(t *testing.T) {
	left, right := paneWidths(120, 40, false)
	if left != 40 || right != 76 {
		t.Fatalf("paneWidths() = (%d,%d), want (40,76)", left, right)
	}
}

func TestPaneWidthsWithHiddenFiles(t *testing.T) {
	left, right := paneWidths(120, 40, true)
	if left != 0 || right != 118 {
		t.Fatalf("paneWidths(hidden) = (%d,%d), want (0,118)", left, right)
	}
}

func TestPaneWidthsClampsNarrowTerminal(t *testing.T) {
	left, right := paneWidths(30, 40, false)
	if left != 25 || right != 1 {
		t.Fatalf("paneWidths(narrow) = (%d,%d), want (25,1)", left, right)
	}
	left, right = paneWidths(3, 40, false)
	if left != 1 || right != 1 {
		t.Fatalf("paneWidths(tiny) = (%d,%d), want (1,1)", left, right)
	}
}

func TestPageWindow(t *testing.T) {
	cases := []struct {
		scroll, cursor, size, n, want int
	}{
		{0, 0, 10, 100, 0},
		{0, 12, 10, 100, 3},
		{20, 5, 10, 100, 5},
		{95, 99, 10, 100, 90},
		{0, 3, 10, 4, 0},
	}
	for _, tc := range cases {
		if got := pageWindow(tc.scroll, tc.cursor, tc.size, tc.n); got != tc.want {
			t.Fatalf("pageWindow(%d,%d,%d,%d)=%d want %d", tc.scroll, tc.cursor, tc.size, tc.n, got, tc.want)
		}
	}
}
