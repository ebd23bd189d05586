package correct

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/grailbio/base/tsv"
)

// ErrorCount tallies the bases seen under some key and how many of them were
// corrected.
type ErrorCount struct {
	Samples, Errors int64
}

// Rate returns Errors/Samples, or 0 when nothing was sampled.
func (c ErrorCount) Rate() float64 {
	if c.Samples == 0 {
		return 0
	}
	return float64(c.Errors) / float64(c.Samples)
}

// Metrics accumulates error statistics over corrected reads. It is owned by
// the Aggregator and is not thread safe.
type Metrics struct {
	contextLen int

	Position     map[int]ErrorCount
	Quality      map[byte]ErrorCount
	OriginalBase map[byte]ErrorCount
	// Context is keyed by the contextLen original bases preceding the base.
	Context map[string]ErrorCount

	TotalBases  int64
	TotalErrors int64
}

// NewMetrics creates an empty accumulator whose context key is contextLen
// bases long.
func NewMetrics(contextLen int) *Metrics {
	return &Metrics{
		contextLen:   contextLen,
		Position:     map[int]ErrorCount{},
		Quality:      map[byte]ErrorCount{},
		OriginalBase: map[byte]ErrorCount{},
		Context:      map[string]ErrorCount{},
	}
}

func tally(c ErrorCount, isError bool) ErrorCount {
	c.Samples++
	if isError {
		c.Errors++
	}
	return c
}

// Add records one read. Reads whose corrected length differs from the
// original are skipped. qual may be empty.
func (m *Metrics) Add(original, corrected, qual string) {
	if len(original) != len(corrected) {
		return
	}
	for i := 0; i < len(original); i++ {
		isError := original[i] != corrected[i]
		m.Position[i] = tally(m.Position[i], isError)
		m.OriginalBase[original[i]] = tally(m.OriginalBase[original[i]], isError)
		if i < len(qual) {
			m.Quality[qual[i]] = tally(m.Quality[qual[i]], isError)
		}
		if m.contextLen > 0 && i >= m.contextLen {
			ctx := original[i-m.contextLen : i]
			m.Context[ctx] = tally(m.Context[ctx], isError)
		}
		m.TotalBases++
		if isError {
			m.TotalErrors++
		}
	}
}

// WriteTSV writes one "metric key samples errors rate" row per tally, keys
// in ascending order, followed by the totals.
func (m *Metrics) WriteTSV(w io.Writer) error {
	out := tsv.NewWriter(w)
	row := func(metric, key string, c ErrorCount) error {
		out.WriteString(metric)
		out.WriteString(key)
		out.WriteString(strconv.FormatInt(c.Samples, 10))
		out.WriteString(strconv.FormatInt(c.Errors, 10))
		out.WriteString(fmt.Sprintf("%.6f", c.Rate()))
		return out.EndLine()
	}
	for _, col := range []string{"metric", "key", "samples", "errors", "rate"} {
		out.WriteString(col)
	}
	if err := out.EndLine(); err != nil {
		return err
	}

	positions := make([]int, 0, len(m.Position))
	for p := range m.Position {
		positions = append(positions, p)
	}
	sort.Ints(positions)
	for _, p := range positions {
		if err := row("position", strconv.Itoa(p), m.Position[p]); err != nil {
			return err
		}
	}
	for _, tab := range []struct {
		name   string
		counts map[byte]ErrorCount
	}{{"quality", m.Quality}, {"base", m.OriginalBase}} {
		keys := make([]int, 0, len(tab.counts))
		for k := range tab.counts {
			keys = append(keys, int(k))
		}
		sort.Ints(keys)
		for _, k := range keys {
			if err := row(tab.name, string(rune(k)), tab.counts[byte(k)]); err != nil {
				return err
			}
		}
	}
	contexts := make([]string, 0, len(m.Context))
	for c := range m.Context {
		contexts = append(contexts, c)
	}
	sort.Strings(contexts)
	for _, c := range contexts {
		if err := row("context", c, m.Context[c]); err != nil {
			return err
		}
	}
	if err := row("total", "all", ErrorCount{Samples: m.TotalBases, Errors: m.TotalErrors}); err != nil {
		return err
	}
	return out.Flush()
}
