package correct

import (
	"sort"

	"github.com/grailbio/readcorrect/fmindex"
)

// threadCorrector re-threads a read through the local graph of solid
// k-mers. Layer i of the graph holds the solid k-mers that can stand at
// window i of the read; an edge joins two k-mers when the second extends
// the first by one base with solid support. The read is replaced by the
// path with the fewest mismatches, then the highest support.
type threadCorrector struct {
	p       Params
	idx     Index
	counter *counter
}

func newThreadCorrector(p Params, idx Index) *threadCorrector {
	return &threadCorrector{p: p, idx: idx, counter: newCounter(idx)}
}

// threadNode is one k-mer of a layer and the best path that reaches it.
type threadNode struct {
	kmer    string
	edits   int
	support int
	// prev is the index of the predecessor in the previous layer.
	prev int
}

func nodeLess(a, b threadNode) bool {
	if a.edits != b.edits {
		return a.edits < b.edits
	}
	if a.support != b.support {
		return a.support > b.support
	}
	return a.kmer < b.kmer
}

// Correct implements Corrector.
func (tc *threadCorrector) Correct(item WorkItem) Outcome {
	k, t := tc.p.KmerLength, tc.p.SolidThreshold
	seq := normalizeSeq(item.Read.Seq)
	if len(seq) < k || k < 2 {
		return unchanged(seq)
	}
	layers := [][]threadNode{tc.firstLayer(seq)}
	for i := 1; i+k <= len(seq); i++ {
		next := map[string]threadNode{}
		want := seq[i+k-1]
		for j, n := range layers[i-1] {
			ctx := n.kmer[1:]
			ext := tc.idx.Extend(ctx, fmindex.Forward)
			for b, count := range ext {
				if count < t {
					continue
				}
				base := fmindex.Bases[b]
				cand := threadNode{kmer: ctx + string(base), edits: n.edits, support: n.support + count, prev: j}
				if base != want {
					cand.edits++
				}
				if cand.edits > tc.p.MaxThreadEdits {
					continue
				}
				if old, ok := next[cand.kmer]; !ok || nodeLess(cand, old) {
					next[cand.kmer] = cand
				}
			}
		}
		layer := tc.prune(next)
		if len(layer) == 0 {
			return unchanged(seq)
		}
		layers = append(layers, layer)
	}
	last := layers[len(layers)-1]
	if len(last) == 0 {
		return unchanged(seq)
	}
	best := spell(layers, 0)
	if last[0].edits == 0 {
		return Outcome{Flag: NotCorrected, Seqs: Single{Seq: seq}, KmerQC: true}
	}
	if len(last) > 1 && last[1].edits == last[0].edits && last[1].support == last[0].support {
		if spell(layers, 1) != best {
			out := Outcome{Flag: Ambiguous, Seqs: Single{Seq: seq}}
			out.KmerQC, out.Fragments = tc.counter.qc([]byte(seq), k, t)
			out.KmerSplit = len(out.Fragments) > 0
			return out
		}
	}
	return Outcome{Flag: Corrected, Seqs: Single{Seq: best}, KmerQC: true}
}

// firstLayer seeds the graph with the read's first k-mer when it is solid,
// and with every solid single substitution of it.
func (tc *threadCorrector) firstLayer(seq string) []threadNode {
	k, t := tc.p.KmerLength, tc.p.SolidThreshold
	nodes := map[string]threadNode{}
	first := seq[:k]
	if n := tc.counter.Count(first); n >= t {
		nodes[first] = threadNode{kmer: first, support: n}
	}
	if tc.p.MaxThreadEdits > 0 {
		buf := []byte(first)
		for pos := range buf {
			orig := buf[pos]
			for _, b := range fmindex.Bases {
				if b == orig {
					continue
				}
				buf[pos] = b
				kmer := string(buf)
				if n := tc.counter.Count(kmer); n >= t {
					nodes[kmer] = threadNode{kmer: kmer, edits: 1, support: n}
				}
			}
			buf[pos] = orig
		}
	}
	return tc.prune(nodes)
}

// prune orders a layer best first and keeps at most MaxThreadBranches nodes.
func (tc *threadCorrector) prune(nodes map[string]threadNode) []threadNode {
	layer := make([]threadNode, 0, len(nodes))
	for _, n := range nodes {
		layer = append(layer, n)
	}
	sort.Slice(layer, func(i, j int) bool { return nodeLess(layer[i], layer[j]) })
	if len(layer) > tc.p.MaxThreadBranches {
		layer = layer[:tc.p.MaxThreadBranches]
	}
	return layer
}

// spell returns the sequence of the path ending at node j of the last layer.
func spell(layers [][]threadNode, j int) string {
	tail := make([]byte, len(layers)-1)
	for i := len(layers) - 1; i > 0; i-- {
		n := layers[i][j]
		tail[i-1] = n.kmer[len(n.kmer)-1]
		j = n.prev
	}
	return layers[0][j].kmer + string(tail)
}
