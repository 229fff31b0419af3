package partdime

import "fmt"

// FormatRemaining renders whole seconds as minutes:seconds with zero-padded
// seconds for the verification countdown, e.g. 299 -> "4:59".
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := seconds / 60
	secs := seconds % 60
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
