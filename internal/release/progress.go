package release

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/jbweber/ephemvm/internal/logger"
)

// progressSteps is how many coarse progress lines a download emits (every 4%).
const progressSteps = 25

// progress tracks bytes written for one download. It logs a line at each 4%
// boundary of the declared length and optionally drives a progress bar.
type progress struct {
	total    int64
	done     int64
	nextStep int
	bar      *progressbar.ProgressBar
	report   func(percent int, total int64)
}

func newProgress(total int64, barOut io.Writer) *progress {
	p := &progress{
		total:  total,
		report: logProgress,
	}
	if barOut != nil && total > 0 {
		p.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(barOut),
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
	}
	return p
}

// Add records n more bytes.
func (p *progress) Add(n int) {
	p.done += int64(n)
	if p.bar != nil {
		_ = p.bar.Add(n)
	}
	if p.total <= 0 {
		return
	}
	for p.nextStep <= progressSteps && p.done*progressSteps >= int64(p.nextStep)*p.total {
		p.report(p.nextStep*100/progressSteps, p.total)
		p.nextStep++
	}
}

// Finish closes the bar and, for downloads of unknown length, logs the total.
func (p *progress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
	if p.total <= 0 {
		logger.Logger().Infof("Downloaded %.2f GB", gigabytes(p.done))
	}
}

// Abort clears the bar without filling it and logs how far the download got.
func (p *progress) Abort() {
	if p.bar != nil {
		_ = p.bar.Clear()
	}
	logger.Logger().Warnf("Download interrupted after %.2f GB", gigabytes(p.done))
}

func logProgress(percent int, total int64) {
	logger.Logger().Infof("%d%% of %.2f GB downloaded", percent, gigabytes(total))
}

func gigabytes(n int64) float64 {
	return float64(n) / 1024 / 1024 / 1024
}
