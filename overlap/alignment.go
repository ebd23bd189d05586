package overlap

import "github.com/grailbio/readcorrect/fmindex"

// Column is the base composition of one alignment column.
type Column struct {
	// Base is the most frequent base; ties go to the query's own base, then
	// to the earlier base in ACGT order. Zero when the column is empty.
	Base  byte
	Count int
	// Second is the runner-up base, zero if only one base is present.
	Second      byte
	SecondCount int
	// Depth is the number of reads with an A, C, G or T in the column.
	Depth int
}

// Alignment is an ungapped multiple alignment of overlapping reads, laid out
// in query coordinates. The query itself is one of the rows.
type Alignment struct {
	query  string
	counts [][4]int
}

// NewAlignment stacks blocks against query.
func NewAlignment(query string, blocks []Block) *Alignment {
	a := &Alignment{query: query, counts: make([][4]int, len(query))}
	for i := 0; i < len(query); i++ {
		if b := fmindex.BaseIndex(query[i]); b >= 0 {
			a.counts[i][b]++
		}
	}
	for _, bl := range blocks {
		for c := bl.QueryStart; c < bl.QueryEnd; c++ {
			if b := fmindex.BaseIndex(bl.Partner[bl.PartnerStart+c-bl.QueryStart]); b >= 0 {
				a.counts[c][b]++
			}
		}
	}
	return a
}

// Len returns the number of columns.
func (a *Alignment) Len() int { return len(a.counts) }

// Consensus returns the composition of column col.
func (a *Alignment) Consensus(col int) Column {
	var c Column
	if col < 0 || col >= len(a.counts) {
		return c
	}
	counts := a.counts[col]
	best, second := -1, -1
	own := fmindex.BaseIndex(a.query[col])
	better := func(i, j int) bool {
		if j < 0 {
			return true
		}
		if counts[i] != counts[j] {
			return counts[i] > counts[j]
		}
		if i == own || j == own {
			return i == own
		}
		return i < j
	}
	for i, n := range counts {
		c.Depth += n
		if n == 0 {
			continue
		}
		if better(i, best) {
			best, second = i, best
		} else if better(i, second) {
			second = i
		}
	}
	if best >= 0 {
		c.Base, c.Count = fmindex.Bases[best], counts[best]
	}
	if second >= 0 {
		c.Second, c.SecondCount = fmindex.Bases[second], counts[second]
	}
	return c
}
