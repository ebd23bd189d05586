// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package biosimd_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/grailbio/base/simd"
	"github.com/grailbio/readcorrect/biosimd"
	"github.com/grailbio/testutil/expect"
)

func cleanBaseSlow(b byte) byte {
	switch b {
	case 'A', 'a':
		return 'A'
	case 'C', 'c':
		return 'C'
	case 'G', 'g':
		return 'G'
	case 'T', 't':
		return 'T'
	}
	return 'N'
}

func complementSlow(b byte) byte {
	switch cleanBaseSlow(b) {
	case 'A':
		return 'T'
	case 'C':
		return 'G'
	case 'G':
		return 'C'
	case 'T':
		return 'A'
	}
	return 'N'
}

func reverseComp8Slow(dst, src []byte) {
	for i, b := range src {
		dst[len(src)-1-i] = complementSlow(b)
	}
}

var randSeqTable = [...]byte{
	'A', 'C', 'G', 'T', 'N', 'a', 'c', 'g', 't', 'n', '0', 0}

func TestCleanASCIISeq(t *testing.T) {
	maxSize := 500
	nIter := 200
	main1Arr := simd.MakeUnsafe(maxSize)
	main2Arr := simd.MakeUnsafe(maxSize)
	for iter := 0; iter < nIter; iter++ {
		sliceStart := rand.Intn(maxSize)
		sliceEnd := sliceStart + rand.Intn(maxSize-sliceStart)
		main1Slice := main1Arr[sliceStart:sliceEnd]
		main2Slice := main2Arr[sliceStart:sliceEnd]
		for ii := range main1Slice {
			main1Slice[ii] = byte(rand.Intn(256))
		}
		copy(main2Slice, main1Slice)
		sentinel := byte(rand.Intn(256))
		main2Arr[sliceEnd] = sentinel
		biosimd.CleanASCIISeqInplace(main2Slice)
		for ii := range main1Slice {
			main1Slice[ii] = cleanBaseSlow(main1Slice[ii])
		}
		if !bytes.Equal(main1Slice, main2Slice) {
			t.Fatal("Mismatched CleanASCIISeqInplace result.")
		}
		if main2Arr[sliceEnd] != sentinel {
			t.Fatal("CleanASCIISeqInplace clobbered an extra byte.")
		}
	}
}

func TestIsNonACGTPresent(t *testing.T) {
	expect.False(t, biosimd.IsNonACGTPresent([]byte("ACGTTGCA")))
	expect.False(t, biosimd.IsNonACGTPresent(nil))
	expect.True(t, biosimd.IsNonACGTPresent([]byte("ACGN")))
	expect.True(t, biosimd.IsNonACGTPresent([]byte("acgt")))

	maxSize := 500
	nIter := 200
	for iter := 0; iter < nIter; iter++ {
		src := make([]byte, rand.Intn(maxSize))
		want := false
		for ii := range src {
			src[ii] = randSeqTable[rand.Intn(len(randSeqTable))]
			switch src[ii] {
			case 'A', 'C', 'G', 'T':
			default:
				want = true
			}
		}
		if got := biosimd.IsNonACGTPresent(src); got != want {
			t.Fatalf("IsNonACGTPresent(%q) = %v, want %v", src, got, want)
		}
	}
}

func TestASCIITo2bit(t *testing.T) {
	dst := make([]byte, 2)
	biosimd.ASCIITo2bit(dst, []byte("ACGTg"))
	expect.EQ(t, dst, []byte{0xe4, 0x02})

	maxSrcSize := 500
	nIter := 200
	for iter := 0; iter < nIter; iter++ {
		src := make([]byte, rand.Intn(maxSrcSize))
		for ii := range src {
			src[ii] = "ACGTacgt"[rand.Intn(8)]
		}
		nDst := (len(src) + 3) >> 2
		dstArr := make([]byte, nDst+1)
		sentinel := byte(rand.Intn(256))
		dstArr[nDst] = sentinel
		biosimd.ASCIITo2bit(dstArr[:nDst], src)
		for ii, b := range src {
			code := (dstArr[ii>>2] >> (2 * uint(ii&3))) & 3
			if "ACGT"[code] != cleanBaseSlow(b) {
				t.Fatalf("ASCIITo2bit: position %d of %q decodes to %c", ii, src, "ACGT"[code])
			}
		}
		if dstArr[nDst] != sentinel {
			t.Fatal("ASCIITo2bit clobbered an extra byte.")
		}
	}
}

func TestReverseComp8(t *testing.T) {
	maxSize := 500
	nIter := 200
	main1Arr := simd.MakeUnsafe(maxSize)
	main2Arr := simd.MakeUnsafe(maxSize)
	main3Arr := simd.MakeUnsafe(maxSize)
	for iter := 0; iter < nIter; iter++ {
		sliceStart := rand.Intn(maxSize)
		sliceEnd := sliceStart + rand.Intn(maxSize-sliceStart)
		main1Slice := main1Arr[sliceStart:sliceEnd]
		main2Slice := main2Arr[sliceStart:sliceEnd]
		main3Slice := main3Arr[sliceStart:sliceEnd]
		for ii := range main1Slice {
			main1Slice[ii] = randSeqTable[rand.Intn(len(randSeqTable))]
		}
		copy(main2Slice, main1Slice)
		sentinel := byte(rand.Intn(256))
		main2Arr[sliceEnd] = sentinel
		main3Arr[sliceEnd] = sentinel
		biosimd.ReverseComp8NoValidate(main3Slice, main1Slice)
		biosimd.ReverseComp8Inplace(main2Slice)
		want := make([]byte, len(main1Slice))
		reverseComp8Slow(want, main1Slice)
		if !bytes.Equal(want, main3Slice) {
			t.Fatal("Mismatched ReverseComp8NoValidate result.")
		}
		if !bytes.Equal(want, main2Slice) {
			t.Fatal("Mismatched ReverseComp8Inplace result.")
		}
		if main2Arr[sliceEnd] != sentinel || main3Arr[sliceEnd] != sentinel {
			t.Fatal("ReverseComp8 clobbered an extra byte.")
		}

		// ReverseComp8Inplace maps every non-ACGT byte to 'N'.
		for ii := range main2Slice {
			main2Slice[ii] = byte(rand.Intn(256))
		}
		copy(main1Slice, main2Slice)
		biosimd.ReverseComp8Inplace(main2Slice)
		reverseComp8Slow(want, main1Slice)
		if !bytes.Equal(want, main2Slice) {
			t.Fatal("Mismatched ReverseComp8Inplace result on arbitrary bytes.")
		}
	}
}
