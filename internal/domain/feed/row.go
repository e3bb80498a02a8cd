package feed

// FitRow aligns a raw row to the header width. A row exactly one column short
// is padded with a single empty string, tolerating the commonly-truncated
// trailing empty column. Any other mismatch is a structural error and the row
// is rejected.
func FitRow(row []string, width int) ([]string, bool) {
	switch {
	case len(row) == width:
		return row, true
	case len(row) == width-1:
		return append(row, ""), true
	default:
		return nil, false
	}
}
