package fmindex

import "github.com/grailbio/readcorrect/biosimd"

// Symbols of the indexed text in lexicographic order. '$' terminates each
// read; any base other than ACGT is stored as 'N'.
const symbols = "$ACGNT"

const nSym = len(symbols)

const invalidRank = uint8(255)

var (
	// symbolRank maps an ASCII byte to its index in symbols, or invalidRank.
	symbolRank [256]uint8
	// baseOf maps a rank back to its upper-case symbol.
	baseOf [nSym]byte
)

// Bases lists the four nucleotides in the order used by Extend results.
var Bases = [4]byte{'A', 'C', 'G', 'T'}

func init() {
	for i := range symbolRank {
		symbolRank[i] = invalidRank
	}
	for i := 0; i < nSym; i++ {
		c := symbols[i]
		symbolRank[c] = uint8(i)
		if c >= 'A' && c <= 'Z' {
			symbolRank[c+'a'-'A'] = uint8(i)
		}
		baseOf[i] = c
	}
}

// BaseIndex returns the position of b in Bases, or -1 if b is not one of
// ACGT (case-insensitive).
func BaseIndex(b byte) int {
	switch b {
	case 'A', 'a':
		return 0
	case 'C', 'c':
		return 1
	case 'G', 'g':
		return 2
	case 'T', 't':
		return 3
	}
	return -1
}

// Complement returns the complementary base of b. Non-ACGT bytes map to 'N'.
func Complement(b byte) byte {
	if i := BaseIndex(b); i >= 0 {
		return Bases[3-i]
	}
	return 'N'
}

// ReverseComplement returns the reverse complement of seq. The output is
// restricted to 'A'/'C'/'G'/'T'/'N'.
func ReverseComplement(seq string) string {
	out := []byte(seq)
	biosimd.ReverseComp8Inplace(out)
	return string(out)
}

// Reverse returns seq reversed, without complementing.
func Reverse(seq string) string {
	n := len(seq)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = seq[i]
	}
	return string(out)
}

func complementString(seq string) string {
	return Reverse(ReverseComplement(seq))
}
