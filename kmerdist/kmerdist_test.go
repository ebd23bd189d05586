package kmerdist

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/readcorrect/fmindex"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func histogramOf(freq map[int]int) *Histogram {
	h := New()
	for count, n := range freq {
		for i := 0; i < n; i++ {
			h.Add(count)
		}
	}
	return h
}

// bimodal has an error mode at 1-2 and a coverage mode around 10.
var bimodal = map[int]int{1: 50, 2: 10, 3: 4, 4: 9, 5: 20, 8: 40, 10: 80, 12: 30}

func TestHistogramStats(t *testing.T) {
	h := histogramOf(bimodal)
	expect.EQ(t, h.Total(), 243)
	expect.EQ(t, h.Max(), 12)
	expect.EQ(t, h.Freq(10), 80)
	expect.EQ(t, h.Median(), 8)
	expect.EQ(t, h.CumulativeProportionLEQ(0), 0.0)
	expect.EQ(t, h.CumulativeProportionLEQ(2), 60.0/243)
	expect.EQ(t, h.CumulativeProportionLEQ(12), 1.0)

	thr, ok := h.ThresholdByRatio(2)
	assert.True(t, ok)
	expect.EQ(t, thr, 3)

	expect.EQ(t, New().Median(), 0)

	// An empty count between the error mode and the coverage mode is the
	// boundary.
	gap := histogramOf(map[int]int{1: 10, 3: 50, 4: 60})
	thr, ok = gap.ThresholdByRatio(2)
	assert.True(t, ok)
	expect.EQ(t, thr, 2)

	// Counts start above 1: the first empty count below the mode is found.
	high := histogramOf(map[int]int{5: 10, 6: 30})
	thr, ok = high.ThresholdByRatio(2)
	assert.True(t, ok)
	expect.EQ(t, thr, 4)
}

func TestThresholdByRatioNotFound(t *testing.T) {
	// Frequencies never double between consecutive counts.
	h := histogramOf(map[int]int{1: 100, 2: 90, 3: 80, 4: 70, 5: 60, 6: 120})
	_, ok := h.ThresholdByRatio(2)
	assert.False(t, ok)

	_, err := Calibrate(h, 0, true)
	assert.True(t, err != nil)
	assert.True(t, errors.Is(errors.Precondition, err))
}

func TestCalibrate(t *testing.T) {
	h := histogramOf(bimodal)
	cal, err := Calibrate(h, 0, true)
	assert.NoError(t, err)
	expect.EQ(t, cal, Calibration{Threshold: 3, Median: 8, CumulativeLEQ: 64.0 / 243, Learned: true})

	cal, err = Calibrate(h, 5, false)
	assert.NoError(t, err)
	expect.EQ(t, cal.Threshold, 5)
	expect.False(t, cal.Learned)

	cal, err = Calibrate(h, 0, false)
	assert.NoError(t, err)
	expect.EQ(t, cal.Threshold, 8)

	gap := histogramOf(map[int]int{1: 10, 3: 50, 4: 60})
	cal, err = Calibrate(gap, 0, true)
	assert.NoError(t, err)
	expect.EQ(t, cal.Threshold, 2)
	expect.True(t, cal.Learned)

	_, err = Calibrate(New(), 0, false)
	assert.True(t, errors.Is(errors.Precondition, err))
}

func TestWriteTSV(t *testing.T) {
	h := histogramOf(map[int]int{1: 1, 2: 3})
	var buf bytes.Buffer
	assert.NoError(t, h.WriteTSV(&buf, 3))
	expect.EQ(t, buf.String(), "count\tfrequency\tcumulative\n1\t1\t0.2500\n2\t3\t1.0000\n3\t0\t1.0000\n")
}

type tableSampler struct {
	reads  []string
	counts map[string]int
}

func (s tableSampler) SampleRandomString(rng *rand.Rand) string {
	return s.reads[rng.Intn(len(s.reads))]
}

func (s tableSampler) Count(kmer string) int { return s.counts[kmer] }

func TestLearn(t *testing.T) {
	s := tableSampler{
		reads:  []string{"AACGT", "AAC"},
		counts: map[string]int{"AAC": 7, "ACG": 2, "CGT": 7},
	}
	h := Learn(s, 3, 100, rand.New(rand.NewSource(0)))
	// Every sample contributes AAC; only the 5-mer read contributes ACG, CGT.
	expect.EQ(t, h.Freq(7), 100+h.Freq(2))
	expect.EQ(t, h.Total(), 100+2*h.Freq(2))
	expect.EQ(t, h.Freq(0), 0)
}

func simulatedIndex(rng *rand.Rand) *fmindex.IndexSet {
	genome := make([]byte, 2000)
	for i := range genome {
		genome[i] = fmindex.Bases[rng.Intn(4)]
	}
	var reads []string
	for i := 0; i < 1500; i++ {
		start := rng.Intn(len(genome) - 50)
		read := append([]byte(nil), genome[start:start+50]...)
		if rng.Intn(4) == 0 {
			read[rng.Intn(len(read))] = 'A'
		}
		reads = append(reads, string(read))
	}
	return fmindex.NewIndexSet(reads, 0)
}

// Sampling more reads must not move the median beyond sampling noise.
func TestMedianStability(t *testing.T) {
	idx := simulatedIndex(rand.New(rand.NewSource(11)))
	small := Learn(idx, 15, 200, rand.New(rand.NewSource(5))).Median()
	large := Learn(idx, 15, 1000, rand.New(rand.NewSource(5))).Median()
	assert.True(t, small > 0)
	diff := small - large
	if diff < 0 {
		diff = -diff
	}
	// Roughly 27 reads cover each 15-mer, so 20% is well beyond sampling noise.
	assert.True(t, float64(diff) <= 0.2*float64(large), "median moved from %d to %d", small, large)
}
