package workout

import (
	"fmt"
	"time"
)

// FormatDuration renders d as MM:SS, truncating fractions of a second.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
