package correct

import (
	"encoding/binary"

	farm "github.com/dgryski/go-farm"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/readcorrect/biosimd"
	"github.com/grailbio/readcorrect/fmindex"
)

// Index is the part of the index contract the correctors use.
// *fmindex.IndexSet implements it.
type Index interface {
	// Count returns the double-stranded occurrence count of s.
	Count(s string) int
	// Extend returns the counts of s extended by each of A, C, G, T.
	Extend(s string, dir fmindex.Direction) [4]int
	// Locate returns the occurrences of s and its reverse complement.
	Locate(s string) []fmindex.Hit
	// CanLocate reports whether Locate is available.
	CanLocate() bool
}

const (
	// maxPackedKmer is the longest k-mer that fits in a uint64.
	maxPackedKmer = 32
	// cacheBits sets the size of a counter's cache to 2^cacheBits entries.
	cacheBits = 14
)

// packKmer encodes a sequence of up to 32 ACGT bases in 2 bits per base. It
// returns false if seq is too long or has another character.
func packKmer(seq string) (uint64, bool) {
	b := gunsafe.StringToBytes(seq)
	if len(b) > maxPackedKmer || biosimd.IsNonACGTPresent(b) {
		return 0, false
	}
	var buf [8]byte
	biosimd.ASCIITo2bit(buf[:(len(b)+3)>>2], b)
	return binary.LittleEndian.Uint64(buf[:]), true
}

type cacheEntry struct {
	packed uint64
	n      int32
	count  int32
	str    string
	valid  bool
}

// counter answers Count queries through a small direct-mapped cache. The
// correctors look up the same k-mers repeatedly across rounds. A counter is
// owned by one corrector and is not thread safe.
type counter struct {
	idx     Index
	entries []cacheEntry
	mask    uint64

	hits, misses int
}

func newCounter(idx Index) *counter {
	return &counter{
		idx:     idx,
		entries: make([]cacheEntry, 1<<cacheBits),
		mask:    1<<cacheBits - 1,
	}
}

// Count returns idx.Count(s).
func (c *counter) Count(s string) int {
	packed, ok := packKmer(s)
	var h uint64
	if ok {
		h = farm.Hash64WithSeed(nil, packed^uint64(len(s))<<58)
	} else {
		h = farm.Hash64(gunsafe.StringToBytes(s))
	}
	e := &c.entries[h&c.mask]
	if e.valid && int(e.n) == len(s) {
		if ok && e.str == "" && e.packed == packed {
			c.hits++
			return int(e.count)
		}
		if !ok && e.str == s {
			c.hits++
			return int(e.count)
		}
	}
	c.misses++
	n := c.idx.Count(s)
	*e = cacheEntry{packed: packed, n: int32(len(s)), count: int32(n), valid: true}
	if !ok {
		e.str = s
	}
	return n
}

// windowCounts returns the count of every length-k window of seq.
func (c *counter) windowCounts(seq []byte, k int) []int {
	if len(seq) < k {
		return nil
	}
	counts := make([]int, len(seq)-k+1)
	for i := range counts {
		counts[i] = c.Count(string(seq[i : i+k]))
	}
	return counts
}

// qc reports whether seq has no window with a count below t. Otherwise it
// also returns the maximal stretches of seq covered by consecutive solid
// windows.
func (c *counter) qc(seq []byte, k, t int) (bool, []Fragment) {
	counts := c.windowCounts(seq, k)
	if len(counts) == 0 {
		return false, nil
	}
	weak := 0
	for _, n := range counts {
		if n < t {
			weak++
		}
	}
	if weak == 0 {
		return true, nil
	}
	var frags []Fragment
	for i := 0; i < len(counts); {
		if counts[i] < t {
			i++
			continue
		}
		j := i
		for j < len(counts) && counts[j] >= t {
			j++
		}
		frags = append(frags, Fragment{Offset: i, Seq: string(seq[i : j-1+k])})
		i = j
	}
	return false, frags
}
