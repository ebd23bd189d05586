package correct

import (
	"fmt"

	"github.com/grailbio/readcorrect/encoding/fastq"
)

// Report summarizes a run.
type Report struct {
	// Reads is the number of outcomes seen.
	Reads int
	// Kept counts reads written whole to the kept stream.
	Kept int
	// Fragmented counts QC failures whose solid k-mer fragments, or
	// conflict-free overlap fragments, were written to the kept stream
	// instead.
	Fragmented int
	// Discarded counts the other QC failures.
	Discarded int

	KmerQCPassed    int
	OverlapQCPassed int
	KmerSplit       int
	OverlapSplit    int
	Merged          int
	QCFail          int

	Corrected int
	Ambiguous int
	Duplicate int
	Faulted   int

	TotalBases  int64
	TotalErrors int64
}

func (r Report) String() string {
	return fmt.Sprintf("reads: %d, kept: %d, fragmented: %d, discarded: %d, "+
		"kmerQC: %d, overlapQC: %d, kmer-split: %d, overlap-split: %d, merged: %d, QC fail: %d, "+
		"corrected: %d, ambiguous: %d, duplicate: %d, faulted: %d, bases: %d, corrected bases: %d",
		r.Reads, r.Kept, r.Fragmented, r.Discarded,
		r.KmerQCPassed, r.OverlapQCPassed, r.KmerSplit, r.OverlapSplit, r.Merged, r.QCFail,
		r.Corrected, r.Ambiguous, r.Duplicate, r.Faulted, r.TotalBases, r.TotalErrors)
}

// Aggregator routes outcomes to the output streams and collects metrics.
// It implements Sink. It is not thread safe; RunSerial and RunParallel call
// it from one goroutine.
type Aggregator struct {
	kept    *fastq.Writer
	discard *fastq.Writer
	metrics *Metrics
	report  Report
}

// NewAggregator creates an aggregator. discard and metrics may be nil.
func NewAggregator(kept, discard *fastq.Writer, metrics *Metrics) *Aggregator {
	return &Aggregator{kept: kept, discard: discard, metrics: metrics}
}

// Add implements Sink.
func (a *Aggregator) Add(item WorkItem, out Outcome) error {
	r := &a.report
	r.Reads++
	if out.KmerQC {
		r.KmerQCPassed++
	}
	if out.OverlapQC {
		r.OverlapQCPassed++
	}
	if out.KmerSplit {
		r.KmerSplit++
	}
	if out.OverlapSplit {
		r.OverlapSplit++
	}
	if out.Merge {
		r.Merged++
	}
	if out.Faulted {
		r.Faulted++
	}
	switch out.Flag {
	case Corrected:
		r.Corrected++
	case Ambiguous:
		r.Ambiguous++
	case Duplicate:
		r.Duplicate++
	}

	id, qual := item.Read.ID, item.Read.Qual
	// Suffixed records are named by the first token of the ID.
	name := item.Read.Name()
	if out.QCPassed() {
		r.Kept++
		original, corrected := normalizeSeq(item.Read.Seq), out.Primary()
		if len(original) == len(corrected) {
			r.TotalBases += int64(len(original))
			for i := range original {
				if original[i] != corrected[i] {
					r.TotalErrors++
				}
			}
		}
		if a.metrics != nil {
			a.metrics.Add(original, corrected, qual)
		}
		switch s := out.Seqs.(type) {
		case Single:
			return a.write(a.kept, id, s.Seq, qual, 0)
		case Split:
			if err := a.write(a.kept, name+"/hap1", s.First, qual, 0); err != nil {
				return err
			}
			return a.write(a.kept, name+"/hap2", s.Second, qual, 0)
		}
		return fmt.Errorf("read %d: outcome has no sequence", item.Idx)
	}

	r.QCFail++
	frags := out.Fragments
	if len(frags) == 0 {
		frags = out.OverlapFragments
	}
	if out.Flag != Duplicate && len(frags) > 0 {
		r.Fragmented++
		for i, f := range frags {
			if err := a.write(a.kept, fmt.Sprintf("%s/frag%d", name, i), f.Seq, qual, f.Offset); err != nil {
				return err
			}
		}
		return nil
	}
	r.Discarded++
	if a.discard == nil {
		return nil
	}
	seq := out.Primary()
	if seq == "" {
		seq = item.Read.Seq
	}
	return a.write(a.discard, id, seq, qual, 0)
}

// write writes seq with the slice of qual starting at offset.
func (a *Aggregator) write(w *fastq.Writer, id, seq, qual string, offset int) error {
	if offset+len(seq) <= len(qual) {
		qual = qual[offset : offset+len(seq)]
	} else {
		qual = ""
	}
	return w.Write(&fastq.Read{ID: id, Seq: seq, Unk: "+", Qual: qual})
}

// Report returns the counts so far.
func (a *Aggregator) Report() Report { return a.report }

// Metrics returns the metrics accumulator, or nil if metrics are not
// collected.
func (a *Aggregator) Metrics() *Metrics { return a.metrics }
