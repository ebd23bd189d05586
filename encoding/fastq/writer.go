package fastq

import (
	"errors"
	"io"
)

// ErrNoQuality is returned when a read without a quality string is written
// in FASTQ format.
var ErrNoQuality = errors.New("read has no quality string")

var newline = []byte{'\n'}

// Format selects the record layout produced by a Writer.
type Format int

const (
	// FASTQ writes four-line records.
	FASTQ Format = iota
	// FASTA writes a '>' header line followed by the sequence on one line.
	FASTA
)

// Writer is a FASTQ or FASTA file writer.
type Writer struct {
	w      io.Writer
	format Format
	err    error
}

// NewWriter constructs a new FASTQ writer
// that writes reads to the underlying writer w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, format: FASTQ}
}

// NewFormatWriter constructs a writer that writes records in the given
// format.
func NewFormatWriter(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

// Write writes the read r. An error is returned if the write failed, or if
// a FASTQ record is requested for a read with no quality string.
func (w *Writer) Write(r *Read) error {
	if w.format == FASTA {
		w.writeln(">", r.ID)
		w.writeln("", r.Seq)
		return w.err
	}
	if len(r.Qual) == 0 && len(r.Seq) > 0 {
		return ErrNoQuality
	}
	unk := r.Unk
	if unk == "" {
		unk = "+"
	}
	w.writeln("@", r.ID)
	w.writeln("", r.Seq)
	w.writeln("", unk)
	w.writeln("", r.Qual)
	return w.err
}

func (w *Writer) writeln(prefix, line string) {
	if w.err != nil {
		return
	}
	if prefix != "" {
		_, w.err = io.WriteString(w.w, prefix)
	}
	if w.err == nil {
		_, w.err = io.WriteString(w.w, line)
	}
	if w.err == nil {
		_, w.err = w.w.Write(newline)
	}
}
