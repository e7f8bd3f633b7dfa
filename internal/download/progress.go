package download

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

const progressThrottle = 100 * time.Millisecond

// NewProgressBar renders progress as a terminal bar on w.
// The bar switches to a spinner when the total size is unknown.
func NewProgressBar(w io.Writer, description string) ProgressFunc {
	var (
		bar      *progressbar.ProgressBar
		finished bool
	)

	return func(downloaded, total int64) {
		if finished {
			return
		}

		if bar == nil {
			bar = progressbar.NewOptions64(
				total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetWidth(30),
				progressbar.OptionShowBytes(true),
				progressbar.OptionSetDescription(description),
				progressbar.OptionThrottle(progressThrottle),
				progressbar.OptionOnCompletion(func() {
					_, _ = fmt.Fprintln(w)
				}),
			)
		}

		_ = bar.Set64(downloaded)

		if total > 0 && downloaded >= total {
			_ = bar.Finish()
			finished = true
		}
	}
}
