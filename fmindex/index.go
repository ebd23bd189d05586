// Package fmindex implements an in-memory FM-index over a collection of
// reads. It answers substring occurrence counts by backward search, extends
// a pattern by one base in either direction, samples random reads from the
// BWT, and, when a sampled suffix array is present, locates occurrences as
// (read, offset) pairs.
//
// An Index is immutable once built and safe for concurrent queries.
package fmindex

import (
	"bytes"
	"math/rand"
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/readcorrect/biosimd"
)

// occInterval is the distance, in BWT rows, between occurrence checkpoints.
const occInterval = 64

// Interval is a half-open range [Lower, Upper) of BWT rows.
type Interval struct {
	Lower, Upper int
}

// Size returns the number of rows in the interval.
func (iv Interval) Size() int {
	if iv.Upper > iv.Lower {
		return iv.Upper - iv.Lower
	}
	return 0
}

// Valid reports whether the interval is non-empty.
func (iv Interval) Valid() bool { return iv.Upper > iv.Lower }

// Hit is one located occurrence of a pattern.
type Hit struct {
	// ReadID is the 0-based index of the read in the collection the index was
	// built from.
	ReadID int
	// Offset is the 0-based position of the occurrence within the read.
	Offset int
	// Reverse is set when the hit is an occurrence of the reverse complement
	// of the queried pattern. Offset is then in forward read coordinates.
	Reverse bool
}

// Index is an FM-index over the text r0$r1$...rn-1$.
type Index struct {
	// bwt holds symbol ranks (see symbols), not ASCII.
	bwt []uint8
	// c[s] is the number of text symbols smaller than s.
	c [nSym + 1]int
	// occ[j][s] is the number of s in bwt[0:j*occInterval].
	occ [][nSym]int32

	// samples maps a BWT row to the text offset of its suffix. Every read
	// start is sampled, so locate never has to step over a '$'. nil when the
	// index was built without a sampled suffix array.
	samples    map[int32]int32
	readStarts []int32
	nReads     int
}

// Build constructs an index over reads. Bases other than ACGT are stored as
// 'N'. When sampleRate > 0, every sampleRate-th text position (and every read
// start) is recorded so that Locate can be used; otherwise Locate returns
// nil.
func Build(reads []string, sampleRate int) *Index {
	total := 0
	for _, r := range reads {
		total += len(r) + 1
	}
	text := make([]byte, 0, total)
	starts := make([]int32, len(reads))
	for i, r := range reads {
		start := len(text)
		starts[i] = int32(start)
		text = append(text, r...)
		biosimd.CleanASCIISeqInplace(text[start:])
		text = append(text, '$')
	}
	sa := make([]int32, len(text))
	for i := range sa {
		sa[i] = int32(i)
	}
	sort.Slice(sa, func(i, j int) bool {
		return suffixLess(text, sa[i], sa[j])
	})

	idx := &Index{
		bwt:        make([]uint8, len(text)),
		readStarts: starts,
		nReads:     len(reads),
	}
	var isStart []bool
	if sampleRate > 0 {
		idx.samples = make(map[int32]int32, len(text)/sampleRate+len(reads))
		isStart = make([]bool, len(text)+1)
		for _, s := range starts {
			isStart[s] = true
		}
	}
	var counts [nSym]int
	for row, pos := range sa {
		var b byte
		if pos == 0 {
			b = text[len(text)-1]
		} else {
			b = text[pos-1]
		}
		s := symbolRank[b]
		idx.bwt[row] = s
		counts[s]++
		if idx.samples != nil && (int(pos)%sampleRate == 0 || isStart[pos]) {
			idx.samples[int32(row)] = pos
		}
	}
	for s := 0; s < nSym; s++ {
		idx.c[s+1] = idx.c[s] + counts[s]
	}

	idx.occ = make([][nSym]int32, len(idx.bwt)/occInterval+1)
	var running [nSym]int32
	for i, s := range idx.bwt {
		if i%occInterval == 0 {
			idx.occ[i/occInterval] = running
		}
		running[s]++
	}
	if len(idx.bwt)%occInterval == 0 {
		idx.occ[len(idx.bwt)/occInterval] = running
	}
	log.Debug.Printf("fmindex: built index over %d reads, %d symbols, %d samples",
		len(reads), len(text), len(idx.samples))
	return idx
}

// suffixLess orders the suffixes of text at a and b. Comparison stops at the
// first '$' so that it costs at most one read length; suffixes equal up to
// their terminator are ordered by text position, which ranks each read's
// terminator by read number.
func suffixLess(text []byte, a, b int32) bool {
	sa, sb := text[a:], text[b:]
	sa = sa[:bytes.IndexByte(sa, '$')+1]
	sb = sb[:bytes.IndexByte(sb, '$')+1]
	if c := bytes.Compare(sa, sb); c != 0 {
		return c < 0
	}
	return a < b
}

// NumReads returns the number of reads in the indexed collection.
func (idx *Index) NumReads() int { return idx.nReads }

// Len returns the length of the indexed text, terminators included.
func (idx *Index) Len() int { return len(idx.bwt) }

// CanLocate reports whether the index carries a sampled suffix array.
func (idx *Index) CanLocate() bool { return idx.samples != nil }

// occAt returns the number of symbol s in bwt[0:i].
func (idx *Index) occAt(s uint8, i int) int {
	cp := i / occInterval
	n := int(idx.occ[cp][s])
	for j := cp * occInterval; j < i; j++ {
		if idx.bwt[j] == s {
			n++
		}
	}
	return n
}

func (idx *Index) lf(row int) int {
	s := idx.bwt[row]
	return idx.c[s] + idx.occAt(s, row)
}

// Step extends the suffixes in iv by prepending base b. An invalid base, or
// '$', yields an empty interval.
func (idx *Index) Step(iv Interval, b byte) Interval {
	s := symbolRank[b]
	if s == invalidRank || s == 0 || !iv.Valid() {
		return Interval{}
	}
	return Interval{
		Lower: idx.c[s] + idx.occAt(s, iv.Lower),
		Upper: idx.c[s] + idx.occAt(s, iv.Upper),
	}
}

// Interval finds the BWT rows whose suffixes start with p.
func (idx *Index) Interval(p string) Interval {
	iv := Interval{0, len(idx.bwt)}
	for i := len(p) - 1; i >= 0 && iv.Valid(); i-- {
		iv = idx.Step(iv, p[i])
	}
	return iv
}

// Count returns the number of occurrences of p in the indexed reads, on the
// indexed strand only.
func (idx *Index) Count(p string) int {
	return idx.Interval(p).Size()
}

func (idx *Index) textOffset(row int) int32 {
	var steps int32
	for {
		if pos, ok := idx.samples[int32(row)]; ok {
			return pos + steps
		}
		row = idx.lf(row)
		steps++
	}
}

// Locate returns every occurrence of p, sorted by (ReadID, Offset). It
// returns nil if the index has no sampled suffix array.
func (idx *Index) Locate(p string) []Hit {
	if idx.samples == nil {
		return nil
	}
	iv := idx.Interval(p)
	if !iv.Valid() {
		return nil
	}
	hits := make([]Hit, 0, iv.Size())
	for row := iv.Lower; row < iv.Upper; row++ {
		pos := idx.textOffset(row)
		id := sort.Search(len(idx.readStarts), func(i int) bool {
			return idx.readStarts[i] > pos
		}) - 1
		hits = append(hits, Hit{ReadID: id, Offset: int(pos - idx.readStarts[id])})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].ReadID != hits[j].ReadID {
			return hits[i].ReadID < hits[j].ReadID
		}
		return hits[i].Offset < hits[j].Offset
	})
	return hits
}

// SampleRandomString extracts one read chosen uniformly at random by walking
// the BWT backwards from a terminator row.
func (idx *Index) SampleRandomString(rng *rand.Rand) string {
	if idx.nReads == 0 {
		return ""
	}
	// Rows [0, nReads) are the suffixes that start with '$'.
	row := rng.Intn(idx.nReads)
	var out []byte
	for {
		s := idx.bwt[row]
		if s == 0 {
			break
		}
		out = append(out, baseOf[s])
		row = idx.lf(row)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}
