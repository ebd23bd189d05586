package correct

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/readcorrect/overlap"
)

// overlapCorrector replaces bases by the consensus of the reads that overlap
// the query. Columns where the runner-up base is well supported are treated
// as real variation and never altered.
type overlapCorrector struct {
	p      Params
	finder overlap.Finder
}

func newOverlapCorrector(p Params, finder overlap.Finder) *overlapCorrector {
	return &overlapCorrector{p: p, finder: finder}
}

// Correct implements Corrector.
func (oc *overlapCorrector) Correct(item WorkItem) Outcome {
	seq := normalizeSeq(item.Read.Seq)
	var (
		conflicts []bool
		found     bool
		changed   bool
	)
	for round := 0; round < oc.p.NumOverlapRounds; round++ {
		blocks := oc.finder.FindOverlaps(overlap.Query{ID: item.Idx, Seq: seq}, oc.p.MinOverlap, oc.p.MinIdentity)
		if len(blocks) == 0 {
			break
		}
		found = true
		aln := overlap.NewAlignment(seq, blocks)
		buf := []byte(seq)
		conflicts = make([]bool, len(buf))
		roundChanged := false
		for col := range buf {
			c := aln.Consensus(col)
			if c.Depth == 0 || c.Depth < oc.p.DepthFilter {
				continue
			}
			if c.SecondCount > oc.p.ConflictCutoff {
				conflicts[col] = true
				continue
			}
			if c.Base != buf[col] {
				buf[col] = c.Base
				roundChanged = true
			}
		}
		seq = string(buf)
		if !roundChanged {
			break
		}
		changed = true
	}
	if !found {
		return unchanged(seq)
	}

	out := Outcome{Seqs: Single{Seq: seq}, Flag: flagOf(changed, false)}
	nConflict := 0
	for _, c := range conflicts {
		if c {
			nConflict++
		}
	}
	if nConflict == 0 {
		out.OverlapQC = true
		return out
	}
	log.Debug.Printf("correct: read %d: %d conflicting overlap columns", item.Idx, nConflict)
	out.Flag = Ambiguous
	out.OverlapFragments = conflictFree(seq, conflicts, oc.p.KmerLength)
	out.OverlapSplit = len(out.OverlapFragments) > 0
	return out
}

// conflictFree returns the stretches of seq between conflicting columns that
// are at least minLen long.
func conflictFree(seq string, conflicts []bool, minLen int) []Fragment {
	var frags []Fragment
	start := 0
	for i := 0; i <= len(seq); i++ {
		if i < len(seq) && !conflicts[i] {
			continue
		}
		if i-start >= minLen && i > start {
			frags = append(frags, Fragment{Offset: start, Seq: seq[start:i]})
		}
		start = i + 1
	}
	return frags
}

// hybridCorrector runs k-mer correction and falls back to overlap correction
// of the original read when k-mer QC fails.
type hybridCorrector struct {
	kmer    *kmerCorrector
	overlap *overlapCorrector
}

// Correct implements Corrector.
func (hc *hybridCorrector) Correct(item WorkItem) Outcome {
	if out := hc.kmer.Correct(item); out.KmerQC {
		return out
	}
	return hc.overlap.Correct(item)
}
