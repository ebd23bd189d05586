package correct

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Algorithm selects the correction strategy.
type Algorithm int

const (
	// Kmer corrects bases inside weak k-mers by single substitutions.
	Kmer Algorithm = iota
	// Hybrid runs Kmer and falls back to Overlap when k-mer QC fails.
	Hybrid
	// Overlap corrects bases from the consensus of overlapping reads.
	Overlap
	// Thread re-threads the read through the local graph of solid k-mers.
	Thread
	// Extend grows a solid seed through the index in both directions.
	Extend
)

var algorithmNames = [...]string{
	Kmer:    "kmer",
	Hybrid:  "hybrid",
	Overlap: "overlap",
	Thread:  "thread",
	Extend:  "fmextend",
}

func (a Algorithm) String() string {
	if a < 0 || int(a) >= len(algorithmNames) {
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
	return algorithmNames[a]
}

// ParseAlgorithm converts a name as printed by Algorithm.String. "extend" is
// accepted as an alias of "fmextend".
func ParseAlgorithm(s string) (Algorithm, error) {
	for i, name := range algorithmNames {
		if s == name {
			return Algorithm(i), nil
		}
	}
	if s == "extend" {
		return Extend, nil
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("unrecognized algorithm %q; must be one of kmer, hybrid, overlap, thread, fmextend", s))
}

// Params holds the correction parameters. It is immutable during a run; each
// corrector holds its own copy.
type Params struct {
	Algorithm Algorithm

	// KmerLength is the length of the windows whose counts are checked.
	KmerLength int
	// CheckKmerLength bounds the neighbourhood, around the suspect base of a
	// weak window, in which substitutions are tried.
	CheckKmerLength int
	// SolidThreshold is the minimum count of a well-supported k-mer.
	SolidThreshold int
	// MedianCount is the median k-mer count learned from the index. When
	// positive, the diploid check rejects allele pairs in which either count
	// exceeds it: each allele of a heterozygous site carries about half the
	// coverage.
	MedianCount   int
	NumKmerRounds int

	NumOverlapRounds int
	MinOverlap       int
	// MinIdentity is 1 - maximum error rate of an overlap.
	MinIdentity float64
	// ConflictCutoff: a column whose runner-up base is seen more often than
	// this is left alone.
	ConflictCutoff int
	// DepthFilter: columns covered by fewer reads are left alone.
	DepthFilter int
	// SeedLength and SeedStride configure the exact seeds used to find
	// overlaps.
	SeedLength int
	SeedStride int

	// Diploid enables the heterozygous split in k-mer correction.
	Diploid bool
	// HeteroTolerance is the minimum ratio between the counts of the two
	// alleles of a heterozygous site.
	HeteroTolerance float64

	// MaxThreadBranches caps the k-mers kept per layer while threading.
	MaxThreadBranches int
	// MaxThreadEdits caps the substitutions a threaded path may make.
	MaxThreadEdits int

	// ContextLength is the number of preceding bases metrics are keyed by.
	ContextLength int
}

// DefaultParams sets the default values to Params.
var DefaultParams = Params{
	Algorithm:         Kmer,
	KmerLength:        31,   // -k
	CheckKmerLength:   7,    // -check-k
	SolidThreshold:    3,    // -x
	NumKmerRounds:     10,   // -i
	NumOverlapRounds:  1,    // -r
	MinOverlap:        45,   // -m
	MinIdentity:       0.96, // 1 - (-e)
	ConflictCutoff:    3,    // -c
	DepthFilter:       0,    // -d
	SeedLength:        19,   // no flag
	SeedStride:        10,   // no flag
	HeteroTolerance:   0.5,  // no flag
	MaxThreadBranches: 16,   // no flag
	MaxThreadEdits:    4,    // no flag
	ContextLength:     2,    // no flag
}

// Validate checks the parameters. Errors are of kind errors.Invalid.
func (p Params) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return errors.E(errors.Invalid, fmt.Sprintf(format, args...))
	}
	switch {
	case p.Algorithm < Kmer || p.Algorithm > Extend:
		return invalid("invalid algorithm %v", p.Algorithm)
	case p.KmerLength <= 0:
		return invalid("invalid kmer length: %d, must be greater than zero", p.KmerLength)
	case p.CheckKmerLength <= 0:
		return invalid("invalid check kmer length: %d, must be greater than zero", p.CheckKmerLength)
	case p.SolidThreshold <= 0:
		return invalid("invalid kmer threshold: %d, must be greater than zero", p.SolidThreshold)
	case p.NumKmerRounds <= 0:
		return invalid("invalid number of kmer rounds: %d, must be at least 1", p.NumKmerRounds)
	case p.NumOverlapRounds <= 0:
		return invalid("invalid number of overlap rounds: %d, must be at least 1", p.NumOverlapRounds)
	case p.MinIdentity < 0 || p.MinIdentity > 1:
		return invalid("invalid minimum identity: %v, must be in [0, 1]", p.MinIdentity)
	case p.HeteroTolerance < 0 || p.HeteroTolerance > 1:
		return invalid("invalid heterozygous tolerance: %v, must be in [0, 1]", p.HeteroTolerance)
	case p.MaxThreadBranches <= 0 || p.MaxThreadEdits < 0:
		return invalid("invalid threading bounds: branches %d, edits %d", p.MaxThreadBranches, p.MaxThreadEdits)
	case p.ContextLength < 0:
		return invalid("invalid context length: %d", p.ContextLength)
	}
	return nil
}
