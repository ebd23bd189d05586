package fastq

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

var (
	// ErrShort is returned when a truncated FASTQ file is encountered.
	ErrShort = errors.New("short FASTQ file")
	// ErrInvalid is returned when an invalid FASTQ or FASTA file is
	// encountered.
	ErrInvalid = errors.New("invalid FASTQ file")
	// ErrDiscordant is returned when two paired streams hold different
	// numbers of reads.
	ErrDiscordant = errors.New("discordant FASTQ pairs")
)

// maxLineLength bounds a single input line. Long-read FASTA records can
// exceed bufio's default token size.
const maxLineLength = 1 << 28

// A Read is a sequencing read, comprising an ID (without the leading '@' or
// '>'), sequence, line 3 ("unknown"), and a quality string. Unk and Qual are
// empty for reads scanned from FASTA.
type Read struct {
	ID, Seq, Unk, Qual string
}

// Trim cuts the read and quality lengths to at most n.
func (r *Read) Trim(n int) {
	if len(r.Seq) > n {
		r.Seq = r.Seq[:n]
	}
	if len(r.Qual) > n {
		r.Qual = r.Qual[:n]
	}
}

// Name returns the first whitespace-delimited token of the ID.
func (r *Read) Name() string {
	if i := strings.IndexAny(r.ID, " \t"); i >= 0 {
		return r.ID[:i]
	}
	return r.ID
}

var errEOF = errors.New("eof")

// Scanner provides a convenient interface for reading FASTQ or FASTA read
// data. The format is chosen by the first byte of the stream: '@' selects
// FASTQ, '>' selects FASTA. The Scan method returns the next read,
// returning a boolean indicating whether the read succeeded. Scanners are
// not threadsafe.
//
// For FASTQ, Scanner requires ID lines to begin with "@" and that line 3
// begins with "+", but does not perform further validation (e.g., seq/qual
// being of equal length, containing only data in range, etc.) FASTA
// sequences may span multiple lines; they are concatenated.
type Scanner struct {
	b      *bufio.Scanner
	err    error
	fields Field

	fasta bool
	// header is a FASTA header line already consumed by the previous Scan.
	header    string
	hasHeader bool
	started   bool
}

// Field enumerates FASTQ fields. It is used to specify fields to read in
// NewScanner.
type Field uint

const (
	// ID causes the Read.ID field to be filled
	ID Field = 1 << iota
	// Seq causes the Read.Seq field to be filled
	Seq
	// Unk causes the Read.Unk field to be filled
	Unk
	// Qual causes the Read.Qual field to be filled
	Qual
	// All equals ID|Seq|Unk|Qual.
	All = ID | Seq | Unk | Qual
)

// NewScanner constructs a new Scanner that reads raw FASTQ or FASTA data
// from the provided reader. Fields is a bitset of the fields to read. A
// typical value would be All or ID|Seq|Qual.
func NewScanner(r io.Reader, fields Field) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(make([]byte, 64*1024), maxLineLength)
	return &Scanner{b: b, fields: fields}
}

// IsFASTA reports whether the stream was recognized as FASTA. It is only
// meaningful after the first call to Scan.
func (f *Scanner) IsFASTA() bool { return f.fasta }

// Scan the next read into the provided read. Scan returns a boolean
// indicating whether the scan succeeded. Once Scan returns false, it
// never returns true again. Upon completion, the user should check
// the Err method to determine whether scanning stopped because of an
// error or because the end of the stream was reached.
func (f *Scanner) Scan(read *Read) bool {
	if f.err != nil {
		return false
	}
	if !f.started {
		f.started = true
		if !f.nextNonEmpty() {
			return false
		}
		line := f.b.Bytes()
		switch line[0] {
		case '>':
			f.fasta = true
			f.header, f.hasHeader = string(line), true
		case '@':
		default:
			f.err = ErrInvalid
			return false
		}
		if f.fasta {
			return f.scanFASTA(read)
		}
		return f.scanFASTQ(read, line)
	}
	if f.fasta {
		return f.scanFASTA(read)
	}
	if !f.b.Scan() {
		if f.err = f.b.Err(); f.err == nil {
			f.err = errEOF
		}
		return false
	}
	return f.scanFASTQ(read, f.b.Bytes())
}

// nextNonEmpty advances to the first non-empty line.
func (f *Scanner) nextNonEmpty() bool {
	for f.b.Scan() {
		if len(f.b.Bytes()) > 0 {
			return true
		}
	}
	if f.err = f.b.Err(); f.err == nil {
		f.err = errEOF
	}
	return false
}

func (f *Scanner) scanFASTQ(read *Read, id []byte) bool {
	if len(id) == 0 || id[0] != '@' {
		f.err = ErrInvalid
		return false
	}
	if f.fields&ID != 0 {
		read.ID = string(id[1:])
	}
	if !f.scan() {
		return false
	}
	if f.fields&Seq != 0 {
		read.Seq = f.b.Text()
	}
	if !f.scan() {
		return false
	}
	unk := f.b.Bytes()
	if len(unk) == 0 || unk[0] != '+' {
		f.err = ErrInvalid
		return false
	}
	if f.fields&Unk != 0 {
		read.Unk = string(unk)
	}
	if !f.scan() {
		return false
	}
	if f.fields&Qual != 0 {
		read.Qual = f.b.Text()
	}
	return true
}

func (f *Scanner) scanFASTA(read *Read) bool {
	if !f.hasHeader {
		if f.err = f.b.Err(); f.err == nil {
			f.err = errEOF
		}
		return false
	}
	header := f.header
	f.hasHeader = false
	var seq strings.Builder
	for f.b.Scan() {
		line := f.b.Bytes()
		if len(line) > 0 && line[0] == '>' {
			f.header, f.hasHeader = string(line), true
			break
		}
		if f.fields&Seq != 0 {
			seq.Write(line)
		}
	}
	if err := f.b.Err(); err != nil {
		f.err = err
		return false
	}
	if f.fields&ID != 0 {
		read.ID = header[1:]
	}
	read.Seq = seq.String()
	read.Unk, read.Qual = "", ""
	return true
}

func (f *Scanner) scan() bool {
	ok := f.b.Scan()
	if !ok {
		if f.err = f.b.Err(); f.err == nil {
			f.err = ErrShort
		}
	}
	return ok
}

// Err returns the scanning error, if any.
func (f *Scanner) Err() error {
	if f.err == errEOF {
		return nil
	}
	return f.err
}

// PairScanner composes a pair of scanners to scan the R1 and R2 streams of
// paired-end reads.
type PairScanner struct {
	r1, r2 *Scanner
	err    error
}

// NewPairScanner creates a new pair scanner from the provided R1 and R2
// readers.
func NewPairScanner(r1, r2 io.Reader, fields Field) *PairScanner {
	return &PairScanner{
		r1: NewScanner(r1, fields),
		r2: NewScanner(r2, fields),
	}
}

// Scan scans the next read pair into r1, r2. Once Scan returns false, it
// never returns true again. Upon completion, the user should check the Err
// method to determine whether scanning stopped because of an error or
// because the end of the streams was reached.
func (p *PairScanner) Scan(r1, r2 *Read) bool {
	if p.err != nil {
		return false
	}
	ok1 := p.r1.Scan(r1)
	ok2 := p.r2.Scan(r2)
	if ok1 != ok2 {
		p.err = ErrDiscordant
	}
	return ok1 && ok2
}

// IsFASTA reports whether either stream is FASTA.
func (p *PairScanner) IsFASTA() bool { return p.r1.IsFASTA() || p.r2.IsFASTA() }

// Err returns the scanning error, if any. It should be checked after Scan
// returns false.
func (p *PairScanner) Err() error {
	if err := p.r1.Err(); err != nil {
		return err
	}
	if err := p.r2.Err(); err != nil {
		return err
	}
	return p.err
}
