package correct

import (
	"github.com/grailbio/readcorrect/fmindex"
)

// extendCorrector anchors the best supported k-mer of a read and walks
// outward one base at a time. At each step the k-1 bases already accepted
// form the context, and the index reports the support of each possible next
// base.
type extendCorrector struct {
	p       Params
	idx     Index
	counter *counter
}

func newExtendCorrector(p Params, idx Index) *extendCorrector {
	return &extendCorrector{p: p, idx: idx, counter: newCounter(idx)}
}

// Correct implements Corrector.
func (ec *extendCorrector) Correct(item WorkItem) Outcome {
	k, t := ec.p.KmerLength, ec.p.SolidThreshold
	seq := []byte(normalizeSeq(item.Read.Seq))
	if len(seq) < k || k < 2 {
		return unchanged(string(seq))
	}
	counts := ec.counter.windowCounts(seq, k)
	seed := 0
	for i, n := range counts {
		if n > counts[seed] {
			seed = i
		}
	}
	if counts[seed] < t {
		return unchanged(string(seq))
	}

	var changed, ambiguous bool
	step := func(i int, ext [4]int, kmer func(b byte) string) {
		orig := fmindex.BaseIndex(seq[i])
		if orig >= 0 && ext[orig] >= t {
			return
		}
		best, tie := -1, false
		for b, n := range ext {
			if b == orig || n < t {
				continue
			}
			switch {
			case best < 0 || n > ext[best]:
				best, tie = b, false
			case n == ext[best]:
				tie = true
			}
		}
		if best < 0 || tie || !ec.distinctReads(kmer(fmindex.Bases[best])) {
			ambiguous = true
			return
		}
		seq[i] = fmindex.Bases[best]
		changed = true
	}
	for i := seed + k; i < len(seq); i++ {
		ctx := string(seq[i-k+1 : i])
		step(i, ec.idx.Extend(ctx, fmindex.Forward), func(b byte) string { return ctx + string(b) })
	}
	for i := seed - 1; i >= 0; i-- {
		ctx := string(seq[i+1 : i+k])
		step(i, ec.idx.Extend(ctx, fmindex.Backward), func(b byte) string { return string(b) + ctx })
	}

	out := Outcome{Seqs: Single{Seq: string(seq)}, Flag: flagOf(changed, ambiguous)}
	out.KmerQC, out.Fragments = ec.counter.qc(seq, k, t)
	out.KmerSplit = len(out.Fragments) > 0
	return out
}

// distinctReads reports whether kmer occurs in at least two different reads.
// Support that resolves to a single read is a repeat artifact, not a real
// extension. Without a sampled suffix array every k-mer passes.
func (ec *extendCorrector) distinctReads(kmer string) bool {
	if !ec.idx.CanLocate() {
		return true
	}
	hits := ec.idx.Locate(kmer)
	for i := 1; i < len(hits); i++ {
		if hits[i].ReadID != hits[0].ReadID {
			return true
		}
	}
	return false
}
