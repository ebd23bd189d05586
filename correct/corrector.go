// Package correct implements read error correction against an index of the
// read collection. Five strategies (k-mer, hybrid, overlap, threading and
// index extension) sit behind the Corrector interface. RunSerial and
// RunParallel drive a corrector over a read stream and hand every Outcome to
// a single Sink, typically an Aggregator, which routes reads to the output
// streams and collects metrics.
package correct

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/readcorrect/biosimd"
	"github.com/grailbio/readcorrect/overlap"
)

// Corrector corrects one read at a time. A Corrector is owned by a single
// goroutine; use one instance per worker.
type Corrector interface {
	Correct(item WorkItem) Outcome
}

// New creates a corrector for p.Algorithm. finder is required by the
// overlap and hybrid algorithms and ignored by the others.
func New(p Params, idx Index, finder overlap.Finder) (Corrector, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if (p.Algorithm == Overlap || p.Algorithm == Hybrid) && finder == nil {
		return nil, errors.E(errors.Precondition, fmt.Sprintf("algorithm %v requires an overlap finder", p.Algorithm))
	}
	switch p.Algorithm {
	case Kmer:
		return newKmerCorrector(p, idx), nil
	case Hybrid:
		return &hybridCorrector{kmer: newKmerCorrector(p, idx), overlap: newOverlapCorrector(p, finder)}, nil
	case Overlap:
		return newOverlapCorrector(p, finder), nil
	case Thread:
		return newThreadCorrector(p, idx), nil
	case Extend:
		return newExtendCorrector(p, idx), nil
	}
	panic(p.Algorithm)
}

// normalizeSeq upper-cases s and replaces every non-ACGT byte with 'N'.
func normalizeSeq(s string) string {
	b := []byte(s)
	biosimd.CleanASCIISeqInplace(b)
	return string(b)
}

// correctSafe runs c on item. A panic inside the corrector degrades the read
// to NotCorrected with Faulted set.
func correctSafe(c Corrector, item WorkItem) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error.Printf("correct: read %d (%s): corrector failed: %v", item.Idx, item.Read.ID, r)
			out = unchanged(normalizeSeq(item.Read.Seq))
			out.Faulted = true
		}
	}()
	return c.Correct(item)
}
