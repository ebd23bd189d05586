// Package overlap finds reads that overlap a query read and stacks them into
// an ungapped column-wise alignment from which per-column consensus is read.
package overlap

import (
	"sort"

	"github.com/antzucaro/matchr"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/readcorrect/fmindex"
)

// maxSeedHits skips seeds that occur more often than this; they come from
// repeats and only produce spurious diagonals.
const maxSeedHits = 1000

// Query is a read whose overlaps are requested.
type Query struct {
	// ID is the read's index in the collection the finder searches, or -1
	// when the query is not part of the collection.
	ID  int
	Seq string
}

// Block is one overlap between a query and a partner read. Coordinates are
// half-open. Partner is the partner sequence oriented to the query strand,
// so that Partner[PartnerStart:PartnerEnd] aligns base-for-base with
// Query.Seq[QueryStart:QueryEnd].
type Block struct {
	PartnerID                int
	Partner                  string
	QueryStart, QueryEnd     int
	PartnerStart, PartnerEnd int
	// ReverseComplement is set when the partner aligns on the opposite
	// strand.
	ReverseComplement bool
	// Identity is the fraction of matching bases in the overlap.
	Identity float64
}

// Len returns the overlap length.
func (b Block) Len() int { return b.QueryEnd - b.QueryStart }

// Finder finds overlap blocks for a query read.
type Finder interface {
	// FindOverlaps returns the blocks whose overlap is at least minOverlap
	// bases long with at least minIdentity identity, longest first.
	FindOverlaps(q Query, minOverlap int, minIdentity float64) []Block
}

// Locator is the part of the index contract the finder needs.
type Locator interface {
	Locate(s string) []fmindex.Hit
	CanLocate() bool
}

// IndexFinder finds overlaps by locating exact seeds of the query in the
// index and verifying each candidate diagonal without gaps.
type IndexFinder struct {
	idx        Locator
	reads      []string
	seedLen    int
	seedStride int
}

// NewIndexFinder creates a finder over the given index. reads must be the
// collection the index was built from, in the same order. The index must
// carry a sampled suffix array.
func NewIndexFinder(idx Locator, reads []string, seedLen, seedStride int) (*IndexFinder, error) {
	if !idx.CanLocate() {
		return nil, errors.E(errors.Precondition, "overlap: index was built without a sampled suffix array")
	}
	if seedLen <= 0 || seedStride <= 0 {
		return nil, errors.E(errors.Invalid, "overlap: seed length and stride must be positive")
	}
	return &IndexFinder{idx: idx, reads: reads, seedLen: seedLen, seedStride: seedStride}, nil
}

type diagonal struct {
	id   int
	rc   bool
	diag int
}

// FindOverlaps implements Finder.
func (f *IndexFinder) FindOverlaps(q Query, minOverlap int, minIdentity float64) []Block {
	n := len(q.Seq)
	if n < f.seedLen {
		return nil
	}
	seen := map[diagonal]bool{}
	var blocks []Block
	for i := 0; i+f.seedLen <= n; i += f.seedStride {
		blocks = f.seed(q, i, minOverlap, minIdentity, seen, blocks)
		if last := n - f.seedLen; i < last && i+f.seedStride > last {
			// Always seed the read's last window.
			blocks = f.seed(q, last, minOverlap, minIdentity, seen, blocks)
		}
	}
	sort.Slice(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		if a.Identity != b.Identity {
			return a.Identity > b.Identity
		}
		if a.PartnerID != b.PartnerID {
			return a.PartnerID < b.PartnerID
		}
		return !a.ReverseComplement && b.ReverseComplement
	})
	log.Debug.Printf("overlap: read %d: %d blocks", q.ID, len(blocks))
	return blocks
}

func (f *IndexFinder) seed(q Query, pos, minOverlap int, minIdentity float64, seen map[diagonal]bool, blocks []Block) []Block {
	hits := f.idx.Locate(q.Seq[pos : pos+f.seedLen])
	if len(hits) > maxSeedHits {
		return blocks
	}
	for _, h := range hits {
		if h.ReadID < 0 || h.ReadID >= len(f.reads) {
			continue
		}
		partner := f.reads[h.ReadID]
		offset := h.Offset
		if h.Reverse {
			partner = fmindex.ReverseComplement(partner)
			offset = len(partner) - h.Offset - f.seedLen
		}
		d := diagonal{id: h.ReadID, rc: h.Reverse, diag: pos - offset}
		if seen[d] {
			continue
		}
		seen[d] = true
		if d.id == q.ID && !d.rc && d.diag == 0 {
			continue
		}
		if b, ok := verify(q, partner, d, minOverlap, minIdentity); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// verify computes the ungapped overlap of the query and partner along a
// diagonal (query position = partner position + diag).
func verify(q Query, partner string, d diagonal, minOverlap int, minIdentity float64) (Block, bool) {
	qs, qe := d.diag, d.diag+len(partner)
	if qs < 0 {
		qs = 0
	}
	if qe > len(q.Seq) {
		qe = len(q.Seq)
	}
	if qe-qs < minOverlap || qe <= qs {
		return Block{}, false
	}
	ps, pe := qs-d.diag, qe-d.diag
	dist, err := matchr.Hamming(q.Seq[qs:qe], partner[ps:pe])
	if err != nil {
		return Block{}, false
	}
	identity := 1 - float64(dist)/float64(qe-qs)
	if identity < minIdentity {
		return Block{}, false
	}
	return Block{
		PartnerID:         d.id,
		Partner:           partner,
		QueryStart:        qs,
		QueryEnd:          qe,
		PartnerStart:      ps,
		PartnerEnd:        pe,
		ReverseComplement: d.rc,
		Identity:          identity,
	}, true
}
