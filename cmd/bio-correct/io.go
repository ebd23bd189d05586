package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/readcorrect/encoding/fastq"
	"github.com/klauspost/compress/gzip"
)

// input is an open read file, decompressed if its path says so.
type input struct {
	f file.File
	r io.Reader
}

func openInput(ctx context.Context, path string) (*input, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	in := &input{f: f, r: f.Reader(ctx)}
	if u := compress.NewReaderPath(in.r, f.Name()); u != nil {
		in.r = u
	}
	return in, nil
}

func logProgress(path string, n int) {
	if n%(1024*1024) == 0 {
		log.Printf("%s: %dMi reads", path, n/(1024*1024))
	}
}

// readAll loads every read of the FASTQ or FASTA file at path. isFASTA
// reports the detected format.
func readAll(ctx context.Context, path string) (reads []fastq.Read, isFASTA bool, err error) {
	in, err := openInput(ctx, path)
	if err != nil {
		return nil, false, err
	}
	sc := fastq.NewScanner(in.r, fastq.All)
	var read fastq.Read
	for sc.Scan(&read) {
		reads = append(reads, read)
		logProgress(path, len(reads))
	}
	once := errors.Once{}
	once.Set(sc.Err())
	once.Set(in.f.Close(ctx))
	return reads, sc.IsFASTA(), once.Err()
}

// readPairs loads the paired-end reads of the R1 file path1 and the R2 file
// path2. The mates of a pair are adjacent in the result.
func readPairs(ctx context.Context, path1, path2 string) (reads []fastq.Read, isFASTA bool, err error) {
	in1, err := openInput(ctx, path1)
	if err != nil {
		return nil, false, err
	}
	in2, err := openInput(ctx, path2)
	if err != nil {
		in1.f.Close(ctx) // nolint: errcheck
		return nil, false, err
	}
	sc := fastq.NewPairScanner(in1.r, in2.r, fastq.All)
	var r1, r2 fastq.Read
	for sc.Scan(&r1, &r2) {
		reads = append(reads, r1, r2)
		logProgress(path1, len(reads)/2)
	}
	once := errors.Once{}
	if err := sc.Err(); err != nil {
		once.Set(errors.E(err, "read pairs", path1, path2))
	}
	once.Set(in1.f.Close(ctx))
	once.Set(in2.f.Close(ctx))
	return reads, sc.IsFASTA(), once.Err()
}

// sliceSource feeds reads held in memory to the dispatcher.
type sliceSource struct {
	reads []fastq.Read
	next  int
}

func (s *sliceSource) Scan(read *fastq.Read) bool {
	if s.next >= len(s.reads) {
		return false
	}
	*read = s.reads[s.next]
	s.next++
	return true
}

func (s *sliceSource) Err() error { return nil }

// output is a buffered read stream. Paths ending in ".gz" are gzipped.
type output struct {
	f   file.File
	gz  *gzip.Writer
	buf *bufio.Writer
	w   *fastq.Writer
}

func createOutput(ctx context.Context, path string, format fastq.Format) (*output, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	o := &output{f: f}
	var w io.Writer = f.Writer(ctx)
	if strings.HasSuffix(path, ".gz") {
		o.gz = gzip.NewWriter(w)
		w = o.gz
	}
	o.buf = bufio.NewWriterSize(w, 1<<20)
	o.w = fastq.NewFormatWriter(o.buf, format)
	return o, nil
}

// Close flushes and closes the stream.
func (o *output) Close(ctx context.Context) error {
	once := errors.Once{}
	once.Set(o.buf.Flush())
	if o.gz != nil {
		once.Set(o.gz.Close())
	}
	once.Set(o.f.Close(ctx))
	return once.Err()
}

// writeFile creates path and fills it with fn.
func writeFile(ctx context.Context, path string, fn func(w io.Writer) error) error {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out.Writer(ctx))
	once := errors.Once{}
	once.Set(fn(w))
	once.Set(w.Flush())
	once.Set(out.Close(ctx))
	return once.Err()
}
