package correct

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/readcorrect/fmindex"
)

// kmerCorrector fixes bases inside weak k-mers. A window is weak when its
// count is below Params.SolidThreshold. Each weak run is anchored on an
// adjacent solid window, and single substitutions around the base that
// entered the run are tried until one restores support.
type kmerCorrector struct {
	p       Params
	counter *counter
}

func newKmerCorrector(p Params, idx Index) *kmerCorrector {
	return &kmerCorrector{p: p, counter: newCounter(idx)}
}

type candidate struct {
	pos   int
	base  byte
	count int
}

// hetSite is a position where two alleles are both supported.
type hetSite struct {
	a, b candidate
}

type kmerRun struct {
	rounds    int
	changed   bool
	ambiguous bool
	het       *hetSite
}

// Correct implements Corrector.
func (kc *kmerCorrector) Correct(item WorkItem) Outcome {
	seq := []byte(normalizeSeq(item.Read.Seq))
	if len(seq) < kc.p.KmerLength {
		return unchanged(string(seq))
	}
	r := kc.run(seq, kc.p.NumKmerRounds, kc.p.Diploid)
	if r.het == nil {
		out := Outcome{Seqs: Single{Seq: string(seq)}}
		out.KmerQC, out.Fragments = kc.counter.qc(seq, kc.p.KmerLength, kc.p.SolidThreshold)
		out.KmerSplit = len(out.Fragments) > 0
		out.Flag = flagOf(r.changed, r.ambiguous)
		return out
	}

	log.Debug.Printf("correct: read %d: heterozygous site at %d (%c:%d, %c:%d)", item.Idx,
		r.het.a.pos, r.het.a.base, r.het.a.count, r.het.b.base, r.het.b.count)
	remaining := kc.p.NumKmerRounds - r.rounds
	if remaining < 1 {
		remaining = 1
	}
	first := append([]byte(nil), seq...)
	first[r.het.a.pos] = r.het.a.base
	second := append([]byte(nil), seq...)
	second[r.het.b.pos] = r.het.b.base
	kc.run(first, remaining, false)
	kc.run(second, remaining, false)

	out := Outcome{
		Flag:  Corrected,
		Seqs:  Split{First: string(first), Second: string(second)},
		Merge: true,
	}
	qc1, frags1 := kc.counter.qc(first, kc.p.KmerLength, kc.p.SolidThreshold)
	qc2, frags2 := kc.counter.qc(second, kc.p.KmerLength, kc.p.SolidThreshold)
	out.KmerQC = qc1 && qc2
	if !out.KmerQC {
		out.Fragments = append(frags1, frags2...)
		out.KmerSplit = len(out.Fragments) > 0
	}
	return out
}

func flagOf(changed, ambiguous bool) Flag {
	switch {
	case changed:
		return Corrected
	case ambiguous:
		return Ambiguous
	}
	return NotCorrected
}

// run corrects seq in place for up to rounds passes, stopping after a pass
// that makes no change.
func (kc *kmerCorrector) run(seq []byte, rounds int, allowSplit bool) kmerRun {
	var r kmerRun
	for round := 0; round < rounds; round++ {
		r.rounds++
		changed, het := kc.pass(seq, allowSplit, &r)
		if changed {
			r.changed = true
		}
		if het != nil {
			r.het = het
			return r
		}
		if !changed {
			break
		}
	}
	return r
}

// pass makes one left-to-right sweep over the weak runs of seq.
func (kc *kmerCorrector) pass(seq []byte, allowSplit bool, r *kmerRun) (changed bool, het *hetSite) {
	k, t := kc.p.KmerLength, kc.p.SolidThreshold
	counts := kc.counter.windowCounts(seq, kc.p.KmerLength)
	nw := len(counts)
	for w, fixes := 0, 0; w < nw && fixes <= len(seq); {
		if counts[w] >= t {
			w++
			continue
		}
		end := w + 1
		for end < nw && counts[end] < t {
			end++
		}
		var window, suspect int
		switch {
		case w > 0:
			// The base entering the run from the solid window on its left.
			window, suspect = w, w+k-1
		case end < nw:
			// The run starts the read: anchor on the first solid window.
			window, suspect = end-1, end-1
		default:
			// No solid window at all.
			return changed, nil
		}
		cands := kc.candidates(seq, window, suspect)
		if allowSplit && kc.p.Diploid {
			if h := kc.heterozygous(cands); h != nil {
				return changed, h
			}
		}
		best, tie := bestCandidate(cands)
		switch {
		case len(cands) == 0:
			w = end
		case tie:
			r.ambiguous = true
			w = end
		default:
			seq[best.pos] = best.base
			changed = true
			fixes++
			lo, hi := best.pos-k+1, best.pos
			if lo < 0 {
				lo = 0
			}
			if hi > nw-1 {
				hi = nw - 1
			}
			for i := lo; i <= hi; i++ {
				counts[i] = kc.counter.Count(string(seq[i : i+k]))
			}
		}
	}
	return changed, nil
}

// candidates tries every alternative base at the positions of the window
// [window, window+k) within CheckKmerLength/2 of suspect, and returns those
// that make the window solid, in position order.
func (kc *kmerCorrector) candidates(seq []byte, window, suspect int) []candidate {
	k, t := kc.p.KmerLength, kc.p.SolidThreshold
	half := kc.p.CheckKmerLength / 2
	lo, hi := suspect-half, suspect+half
	if lo < window {
		lo = window
	}
	if hi > window+k-1 {
		hi = window + k - 1
	}
	var cands []candidate
	for pos := lo; pos <= hi; pos++ {
		orig := seq[pos]
		for _, b := range fmindex.Bases {
			if b == orig {
				continue
			}
			seq[pos] = b
			n := kc.counter.Count(string(seq[window : window+k]))
			seq[pos] = orig
			if n >= t {
				cands = append(cands, candidate{pos: pos, base: b, count: n})
			}
		}
	}
	return cands
}

// bestCandidate returns the candidate with the highest count. tie is set
// when another candidate has the same count.
func bestCandidate(cands []candidate) (best candidate, tie bool) {
	for i, c := range cands {
		switch {
		case i == 0 || c.count > best.count:
			best, tie = c, false
		case c.count == best.count:
			tie = true
		}
	}
	return best, tie
}

// heterozygous looks for a position with exactly two supported alternative
// bases whose counts are within HeteroTolerance of each other. When several
// positions qualify, the best supported pair wins.
func (kc *kmerCorrector) heterozygous(cands []candidate) *hetSite {
	var site *hetSite
	for i := 0; i < len(cands); {
		j := i
		for j < len(cands) && cands[j].pos == cands[i].pos {
			j++
		}
		if j-i == 2 {
			a, b := cands[i], cands[i+1]
			lo, hi := a.count, b.count
			if lo > hi {
				lo, hi = hi, lo
			}
			if float64(lo) >= kc.p.HeteroTolerance*float64(hi) &&
				(kc.p.MedianCount <= 0 || hi <= kc.p.MedianCount) &&
				(site == nil || a.count+b.count > site.a.count+site.b.count) {
				site = &hetSite{a: a, b: b}
			}
		}
		i = j
	}
	return site
}
