// Package kmerdist learns the k-mer occurrence distribution of a read
// collection and derives the "solid" support threshold used by the
// correctors.
package kmerdist

import (
	"fmt"
	"io"
	"math/rand"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
)

// DefaultSamples is the number of random reads drawn by Learn.
const DefaultSamples = 10000

// DefaultRatio separates the error mode from the true-coverage mode.
const DefaultRatio = 2.0

// riskyProportion is the cumulative proportion at the chosen threshold above
// which calibration is considered unreliable.
const riskyProportion = 0.25

// Sampler is the part of the index contract Learn needs.
type Sampler interface {
	// SampleRandomString returns a random read from the collection.
	SampleRandomString(rng *rand.Rand) string
	// Count returns the number of occurrences of s in the collection.
	Count(s string) int
}

// Histogram maps an occurrence count to the number of sampled k-mers that
// had that count. The zero value is not usable; call New.
type Histogram struct {
	freq  map[int]int
	total int
	max   int
}

// New creates an empty histogram.
func New() *Histogram {
	return &Histogram{freq: map[int]int{}}
}

// Add records one k-mer with the given occurrence count.
func (h *Histogram) Add(count int) {
	if count < 0 {
		count = 0
	}
	h.freq[count]++
	h.total++
	if count > h.max {
		h.max = count
	}
}

// Freq returns the number of k-mers recorded with the given count.
func (h *Histogram) Freq(count int) int { return h.freq[count] }

// Total returns the number of k-mers recorded.
func (h *Histogram) Total() int { return h.total }

// Max returns the largest count recorded.
func (h *Histogram) Max() int { return h.max }

// CumulativeProportionLEQ returns the fraction of recorded k-mers whose count
// is <= t.
func (h *Histogram) CumulativeProportionLEQ(t int) float64 {
	if h.total == 0 {
		return 0
	}
	n := 0
	for count, f := range h.freq {
		if count <= t {
			n += f
		}
	}
	return float64(n) / float64(h.total)
}

func (h *Histogram) sortedCounts() []int {
	counts := make([]int, 0, len(h.freq))
	for c := range h.freq {
		counts = append(counts, c)
	}
	sort.Ints(counts)
	return counts
}

// Median returns the smallest count t such that at least half of the
// recorded k-mers have a count <= t. It returns 0 for an empty histogram.
func (h *Histogram) Median() int {
	n := 0
	for _, c := range h.sortedCounts() {
		n += h.freq[c]
		if 2*n >= h.total {
			return c
		}
	}
	return 0
}

// ThresholdByRatio scans counts upward from 1 and returns the first count t
// such that freq(t+1) > ratio*freq(t): the trough between the low-count error
// mode and the coverage mode. An empty count just below the coverage mode is
// such a trough. It returns false if no such boundary exists below Max.
func (h *Histogram) ThresholdByRatio(ratio float64) (int, bool) {
	for t := 1; t < h.max; t++ {
		if float64(h.freq[t+1]) > ratio*float64(h.freq[t]) {
			return t, true
		}
	}
	return -1, false
}

// WriteTSV writes "count<TAB>frequency<TAB>cumulative" rows for counts
// [1, maxCount].
func (h *Histogram) WriteTSV(w io.Writer, maxCount int) error {
	out := tsv.NewWriter(w)
	out.WriteString("count")
	out.WriteString("frequency")
	out.WriteString("cumulative")
	if err := out.EndLine(); err != nil {
		return err
	}
	for c := 1; c <= maxCount; c++ {
		out.WriteUint32(uint32(c))
		out.WriteUint32(uint32(h.freq[c]))
		out.WriteString(fmt.Sprintf("%.4f", h.CumulativeProportionLEQ(c)))
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}

// Learn samples nSamples random reads from s and records the count of every
// length-k window in each.
func Learn(s Sampler, k, nSamples int, rng *rand.Rand) *Histogram {
	h := New()
	for i := 0; i < nSamples; i++ {
		seq := s.SampleRandomString(rng)
		for j := 0; j+k <= len(seq); j++ {
			h.Add(s.Count(seq[j : j+k]))
		}
	}
	log.Debug.Printf("kmerdist: sampled %d %d-mers from %d reads", h.Total(), k, nSamples)
	return h
}

// Calibration is the outcome of threshold selection.
type Calibration struct {
	// Threshold is the solid-support threshold to use.
	Threshold int
	// Median is the median k-mer count of the histogram.
	Median int
	// CumulativeLEQ is the fraction of sampled k-mers at or below Threshold.
	CumulativeLEQ float64
	// Learned is set when Threshold came from the histogram.
	Learned bool
}

// Calibrate picks the solid threshold. byRatio requests the error/coverage
// boundary (DefaultRatio); otherwise a positive explicit threshold is used
// as-is, and explicit <= 0 falls back to the median.
//
// A boundary that cannot be found is an error of kind errors.Precondition:
// correction cannot proceed. A risky boundary only logs a warning.
func Calibrate(h *Histogram, explicit int, byRatio bool) (Calibration, error) {
	cal := Calibration{Median: h.Median()}
	switch {
	case byRatio:
		t, ok := h.ThresholdByRatio(DefaultRatio)
		if !ok {
			return cal, errors.E(errors.Precondition,
				"k-mer threshold learning failed: no error/coverage boundary in the k-mer histogram;",
				"the k-mer size may be too large or the coverage too low")
		}
		cal.Threshold, cal.Learned = t, true
	case explicit > 0:
		cal.Threshold = explicit
	default:
		if cal.Median <= 0 {
			return cal, errors.E(errors.Precondition, "k-mer threshold learning failed: empty k-mer histogram")
		}
		cal.Threshold, cal.Learned = cal.Median, true
	}
	cal.CumulativeLEQ = h.CumulativeProportionLEQ(cal.Threshold)
	if cal.Learned {
		log.Printf("kmerdist: chosen k-mer threshold %d (median %d), proportion of k-mers above threshold %.4f",
			cal.Threshold, cal.Median, 1-cal.CumulativeLEQ)
		if byRatio && cal.CumulativeLEQ > riskyProportion {
			log.Error.Printf("kmerdist: warning: proportion of k-mers above the chosen threshold is %.4f (< %.2f); "+
				"the k-mer size may be too large or the coverage too low to correct reliably",
				1-cal.CumulativeLEQ, 1-riskyProportion)
		}
	}
	return cal, nil
}
