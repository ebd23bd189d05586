package fmindex

import "math/rand"

// Direction selects which end of a pattern Extend grows.
type Direction int

const (
	// Forward appends a base: counts of s+b.
	Forward Direction = iota
	// Backward prepends a base: counts of b+s.
	Backward
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}

// IndexSet bundles the forward index and the index of the reversed reads.
// The reverse index turns forward extension into backward search. All
// counts are double-stranded: an occurrence of the reverse complement of a
// pattern counts as an occurrence of the pattern.
//
// An IndexSet is read-only and safe for concurrent use.
type IndexSet struct {
	Forward *Index
	Reverse *Index
}

// NewIndexSet builds both indexes over reads. sampleRate controls the
// sampled suffix array of the forward index; pass 0 to build without one.
func NewIndexSet(reads []string, sampleRate int) *IndexSet {
	reversed := make([]string, len(reads))
	for i, r := range reads {
		reversed[i] = Reverse(r)
	}
	return &IndexSet{
		Forward: Build(reads, sampleRate),
		Reverse: Build(reversed, 0),
	}
}

// Count returns the number of occurrences of s or its reverse complement.
func (x *IndexSet) Count(s string) int {
	return x.Forward.Count(s) + x.Forward.Count(ReverseComplement(s))
}

// Extend returns, for each base b in Bases, the double-stranded count of
// s+b (Forward) or b+s (Backward).
func (x *IndexSet) Extend(s string, dir Direction) [4]int {
	var counts [4]int
	if x.Reverse == nil {
		for i, b := range Bases {
			if dir == Forward {
				counts[i] = x.Count(s + string(b))
			} else {
				counts[i] = x.Count(string(b) + s)
			}
		}
		return counts
	}
	switch dir {
	case Forward:
		// s+b on the forward strand is b+reverse(s) in the reverse index;
		// its reverse complement is comp(b)+rc(s) in the forward index.
		ivR := x.Reverse.Interval(Reverse(s))
		ivF := x.Forward.Interval(ReverseComplement(s))
		for i, b := range Bases {
			counts[i] = x.Reverse.Step(ivR, b).Size() + x.Forward.Step(ivF, Complement(b)).Size()
		}
	case Backward:
		// rc(b+s) = rc(s)+comp(b), which reads comp(b)+comp(s) in the reverse
		// index.
		ivF := x.Forward.Interval(s)
		ivR := x.Reverse.Interval(complementString(s))
		for i, b := range Bases {
			counts[i] = x.Forward.Step(ivF, b).Size() + x.Reverse.Step(ivR, Complement(b)).Size()
		}
	}
	return counts
}

// CanLocate reports whether Locate is available.
func (x *IndexSet) CanLocate() bool { return x.Forward.CanLocate() }

// Locate returns the occurrences of s and of its reverse complement.
func (x *IndexSet) Locate(s string) []Hit {
	hits := x.Forward.Locate(s)
	rc := ReverseComplement(s)
	if rc == s {
		return hits
	}
	for _, h := range x.Forward.Locate(rc) {
		h.Reverse = true
		hits = append(hits, h)
	}
	return hits
}

// SampleRandomString returns a random read from the forward index.
func (x *IndexSet) SampleRandomString(rng *rand.Rand) string {
	return x.Forward.SampleRandomString(rng)
}
