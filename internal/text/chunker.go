package text

import (
	"errors"
	"fmt"
)

const (
	// DefaultWindowSize is the number of characters per chunk window.
	DefaultWindowSize = 1000
	// DefaultOverlap is the number of characters shared between adjacent windows.
	DefaultOverlap = 100
)

var (
	ErrInvalidWindow  = errors.New("window size must be positive")
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than window size")
)

// Window is one chunk of text with its character offsets in the input.
// Offsets are rune offsets, not byte offsets, so provenance ranges line up
// with the original text regardless of encoding width.
type Window struct {
	Index int
	Start int
	End   int
	Text  string
}

// SplitWindows walks the text in windows of windowSize characters, advancing
// the cursor by windowSize-overlap after each window. The walk stops once the
// remaining tail is no larger than the overlap, since that tail is already
// fully contained in the previous window.
//
// Text shorter than windowSize yields exactly one window. Empty text yields
// no windows.
func SplitWindows(text string, windowSize, overlap int) ([]Window, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, windowSize)
	}
	if overlap < 0 || overlap >= windowSize {
		return nil, fmt.Errorf("%w: window=%d overlap=%d", ErrInvalidOverlap, windowSize, overlap)
	}

	runes := []rune(text)
	var windows []Window

	step := windowSize - overlap
	for start := 0; start < len(runes); start += step {
		if start > 0 && len(runes)-start <= overlap {
			break
		}
		end := start + windowSize
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, Window{
			Index: len(windows),
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}

	return windows, nil
}
