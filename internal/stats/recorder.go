package stats

import (
	"sort"
	"sync"
	"time"
)

// Report is one received timing beacon.
type Report struct {
	Origin   string             `json:"origin"`
	Format   string             `json:"format"`
	Timing   map[string]float64 `json:"timing"`
	Received time.Time          `json:"received"`
}

// Summary aggregates everything a Recorder has seen for one format.
type Summary struct {
	Format  string         `json:"format"`
	Reports map[string]int `json:"reports"`
	GaveUp  int            `json:"gave_up"`
	Recent  []Report       `json:"recent"`
}

// Recorder keeps counters and a bounded history of timing reports.
type Recorder struct {
	mu      sync.Mutex
	history int
	formats map[string]*formatStats
}

type formatStats struct {
	reports map[string]int
	gaveUp  int
	recent  []Report
}

func NewRecorder(history int) *Recorder {
	if history < 1 {
		history = 1
	}
	return &Recorder{history: history, formats: make(map[string]*formatStats)}
}

func (r *Recorder) RecordTiming(report Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fs := r.formatLocked(report.Format)
	fs.reports[report.Origin]++
	fs.recent = append(fs.recent, report)
	if over := len(fs.recent) - r.history; over > 0 {
		fs.recent = append(fs.recent[:0:0], fs.recent[over:]...)
	}
}

func (r *Recorder) RecordGiveUp(format string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatLocked(format).gaveUp++
}

// Summaries returns one summary per format, sorted by format.
func (r *Recorder) Summaries() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Summary, 0, len(r.formats))
	for format, fs := range r.formats {
		reports := make(map[string]int, len(fs.reports))
		for origin, n := range fs.reports {
			reports[origin] = n
		}
		out = append(out, Summary{
			Format:  format,
			Reports: reports,
			GaveUp:  fs.gaveUp,
			Recent:  append([]Report(nil), fs.recent...),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Format < out[j].Format
	})
	return out
}

func (r *Recorder) formatLocked(format string) *formatStats {
	fs, ok := r.formats[format]
	if !ok {
		fs = &formatStats{reports: make(map[string]int)}
		r.formats[format] = fs
	}
	return fs
}
