package fmindex

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomSeq(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = Bases[rng.Intn(4)]
	}
	return string(b)
}

func naiveCount(reads []string, p string) int {
	n := 0
	for _, r := range reads {
		for i := 0; i+len(p) <= len(r); i++ {
			if r[i:i+len(p)] == p {
				n++
			}
		}
	}
	return n
}

func testReads(rng *rand.Rand) []string {
	genome := randomSeq(rng, 300)
	var reads []string
	for i := 0; i < 80; i++ {
		start := rng.Intn(len(genome) - 40)
		reads = append(reads, genome[start:start+40])
	}
	reads = append(reads, "ACGTNNACGT", "")
	return reads
}

func TestReverseComplement(t *testing.T) {
	expect.EQ(t, ReverseComplement("AACGTN"), "NACGTT")
	expect.EQ(t, ReverseComplement("acgt"), "ACGT")
	expect.EQ(t, Reverse("AACG"), "GCAA")
	expect.EQ(t, complementString("ACGT"), "TGCA")
	expect.EQ(t, BaseIndex('g'), 2)
	expect.EQ(t, BaseIndex('N'), -1)
}

func TestCount(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	reads := testReads(rng)
	idx := Build(reads, 4)
	require.Equal(t, len(reads), idx.NumReads())
	for i := 0; i < 200; i++ {
		r := reads[rng.Intn(80)]
		n := 1 + rng.Intn(12)
		start := rng.Intn(len(r) - n)
		p := r[start : start+n]
		assert.Equal(t, naiveCount(reads, p), idx.Count(p), "pattern %s", p)
	}
	assert.Equal(t, 0, idx.Count("ACGT$"))
	assert.Equal(t, 0, idx.Count("AXG"))
	assert.Equal(t, naiveCount(reads, "NNA"), idx.Count("nna"))
}

func TestIndexSetCountAndExtend(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	reads := testReads(rng)
	x := NewIndexSet(reads, 8)
	double := func(p string) int {
		return naiveCount(reads, p) + naiveCount(reads, ReverseComplement(p))
	}
	for i := 0; i < 100; i++ {
		r := reads[rng.Intn(80)]
		start := rng.Intn(len(r) - 8)
		p := r[start : start+7]
		assert.Equal(t, double(p), x.Count(p))
		fwd := x.Extend(p, Forward)
		bwd := x.Extend(p, Backward)
		for j, b := range Bases {
			assert.Equal(t, double(p+string(b)), fwd[j], "%s+%c", p, b)
			assert.Equal(t, double(string(b)+p), bwd[j], "%c+%s", b, p)
		}
	}
}

func TestExtendWithoutReverseIndex(t *testing.T) {
	reads := []string{"AACCGGTT", "ACCGGA"}
	x := &IndexSet{Forward: Build(reads, 1)}
	full := NewIndexSet(reads, 1)
	expect.EQ(t, x.Extend("CCG", Forward), full.Extend("CCG", Forward))
	expect.EQ(t, x.Extend("CCG", Backward), full.Extend("CCG", Backward))
}

func TestIdenticalReads(t *testing.T) {
	reads := []string{"ACGTA", "ACGTA", "acgta"}
	idx := Build(reads, 2)
	expect.True(t, suffixLess([]byte("ACG$ACG$"), 0, 4))
	expect.False(t, suffixLess([]byte("ACG$ACG$"), 4, 0))
	expect.True(t, suffixLess([]byte("AC$ACG$"), 0, 3))
	expect.EQ(t, idx.Locate("CGTA"), []Hit{{ReadID: 0, Offset: 1}, {ReadID: 1, Offset: 1}, {ReadID: 2, Offset: 1}})
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 10; i++ {
		expect.EQ(t, idx.SampleRandomString(rng), "ACGTA")
	}
}

func TestLocate(t *testing.T) {
	reads := []string{"ACGTTGCA", "TTTACGT", "GGGG"}
	x := NewIndexSet(reads, 3)
	require.True(t, x.CanLocate())
	expect.EQ(t, x.Forward.Locate("ACG"), []Hit{{ReadID: 0, Offset: 0}, {ReadID: 1, Offset: 3}})
	expect.EQ(t, x.Forward.Locate("GG"), []Hit{{2, 0, false}, {2, 1, false}, {2, 2, false}})
	expect.EQ(t, len(x.Forward.Locate("CAT")), 0)

	// "TGC" occurs forward in read 0, and its reverse complement "GCA" also
	// occurs in read 0.
	hits := x.Locate("TGC")
	expect.EQ(t, hits, []Hit{{ReadID: 0, Offset: 4}, {ReadID: 0, Offset: 5, Reverse: true}})

	noSSA := NewIndexSet(reads, 0)
	assert.False(t, noSSA.CanLocate())
	assert.Nil(t, noSSA.Locate("ACG"))
}

func TestSampleRandomString(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	reads := testReads(rng)
	idx := Build(reads, 0)
	seen := map[string]bool{}
	for _, r := range reads {
		seen[strings.ToUpper(r)] = true
	}
	for i := 0; i < 500; i++ {
		s := idx.SampleRandomString(rng)
		assert.True(t, seen[s], "sampled %q is not one of the reads", s)
	}
	expect.EQ(t, Build(nil, 0).SampleRandomString(rng), "")
}
