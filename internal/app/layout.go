package app

// paneWidths returns content widths (excluding borders) for the file list and
// the gutter pane.
func paneWidths(totalWidth int, desiredLeft int, hideLeft bool) (int, int) {
	if hideLeft {
		// Hidden file list: the gutter pane's left and right borders only.
		available := totalWidth - 2
		if available < 1 {
			return 0, 1
		}
		return 0, available
	}

	// Border overhead: files pane 2 plus gutter pane 2.
	available := totalWidth - 4
	if available < 2 {
		return 1, 1
	}

	left := desiredLeft
	if left < 1 {
		left = 1
	}
	if left > available-1 {
		left = available - 1
	}
	right := available - left
	if right < 1 {
		right = 1
		left = available - right
	}
	return left, right
}

// pageWindow returns the first visible index so that cursor stays inside a
// window of size rows over n entries.
func pageWindow(scroll, cursor, size, n int) int {
	if size < 1 {
		size = 1
	}
	if cursor < scroll {
		scroll = cursor
	}
	if cursor >= scroll+size {
		scroll = cursor - size + 1
	}
	maxScroll := n - size
	if maxScroll < 0 {
		maxScroll = 0
	}
	if scroll > maxScroll {
		scroll = maxScroll
	}
	if scroll < 0 {
		scroll = 0
	}
	return scroll
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
