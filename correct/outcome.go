package correct

import (
	"fmt"

	"github.com/grailbio/readcorrect/encoding/fastq"
)

// Flag summarizes what a corrector did to a read.
type Flag int

const (
	// NotCorrected: the read is unchanged.
	NotCorrected Flag = iota
	// Corrected: at least one base was substituted.
	Corrected
	// Ambiguous: a weak region had several equally supported fixes and was
	// left alone.
	Ambiguous
	// Duplicate: the read duplicates another read and is discarded.
	Duplicate
)

func (f Flag) String() string {
	switch f {
	case NotCorrected:
		return "not-corrected"
	case Corrected:
		return "corrected"
	case Ambiguous:
		return "ambiguous"
	case Duplicate:
		return "duplicate"
	}
	return fmt.Sprintf("Flag(%d)", int(f))
}

// WorkItem is one read together with its ordinal in the input stream.
type WorkItem struct {
	Idx  int
	Read fastq.Read
}

// Sequences is the corrected output of a read: Single or Split.
type Sequences interface {
	// Primary returns the sequence that stands for the read when only one
	// can be reported.
	Primary() string
	sequences()
}

// Single is the usual case: one corrected sequence.
type Single struct {
	Seq string
}

// Split holds the two alleles of a read that covers a heterozygous site.
type Split struct {
	First, Second string
}

// Primary implements Sequences.
func (s Single) Primary() string { return s.Seq }

// Primary implements Sequences.
func (s Split) Primary() string { return s.First }

func (Single) sequences() {}
func (Split) sequences()  {}

// Fragment is a maximal solid stretch of a read that could not be fully
// corrected.
type Fragment struct {
	// Offset is the start of the fragment in the corrected read.
	Offset int
	Seq    string
}

// Outcome is the result of correcting one read. Every read yields exactly
// one Outcome.
type Outcome struct {
	Flag Flag
	Seqs Sequences

	// KmerQC is set when no weak k-mer remains after k-mer correction.
	KmerQC bool
	// OverlapQC is set when the last overlap round had no conflicting column.
	OverlapQC bool
	// KmerSplit is set when the read was cut into solid Fragments.
	KmerSplit bool
	// OverlapSplit is set when conflicts cut the read into
	// OverlapFragments.
	OverlapSplit bool
	// Merge is set when the read was split into two alleles.
	Merge bool

	Fragments        []Fragment
	OverlapFragments []Fragment

	// Faulted is set when the corrector panicked on this read; the outcome
	// then carries the original sequence.
	Faulted bool
}

// Primary returns the primary corrected sequence, or "" if none is set.
func (o Outcome) Primary() string {
	if o.Seqs == nil {
		return ""
	}
	return o.Seqs.Primary()
}

// QCPassed reports whether the read is kept as a whole.
func (o Outcome) QCPassed() bool {
	return o.Flag != Duplicate && (o.KmerQC || o.OverlapQC)
}

func unchanged(seq string) Outcome {
	return Outcome{Flag: NotCorrected, Seqs: Single{Seq: seq}}
}
