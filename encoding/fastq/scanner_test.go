package fastq

import (
	"bytes"
	"reflect"
	"testing"
)

const fq = `@NB500956:89:HW2FHBGX2:1:11101:25648:1069 1:N:0:ATCACG
ATACAGGCCTGANCCACTGTGCCCAGNCTANNTNATTANTGAANANAGAATNGTTNTAAATANANNNNNTNTNNNC
+
AAAAAEEEEEEE#EEAEEEEEEEEEE#EEE##E#EEEE#EEEE#E#EEEEE#EEE#EEEAEE#A#####E#E###E
@NB500956:89:HW2FHBGX2:1:11101:13871:1070 1:N:0:ATCACG
CTCAACTCTGAGNCAGACAGAAATACNTTTNNTNTGAGTTACANCNTTCTTTTTCNACATATNCNNNNNTNGNNNT
+
AAAAAEEEEEEE#EEEEEEEEEEEEE#EEE##E#EEEEEEEEE#E#EEEEEEEEE#EAEEEE#A#####E#A###E
@NB500956:89:HW2FHBGX2:1:11101:9975:1070 1:N:0:ATCACG
GAGTAACCACGTNCCCATGGCCACAGNTGANNGNGTCACACCTNANCCGGGAGAGNCAATCCNGNNNNNGNANNNC
+
AAAAAEEEEEEE#EEEEEEEEEAEEE#EEA##E#EEEEEEEE<#E#<EEEEEEEE#<EEEA/#/#####A#E###A
@NB500956:89:HW2FHBGX2:1:11101:20247:1070 1:N:0:ATCACG
GATCGGAAGAGCNCACGTCTGAACTCNAGTNNCNTCCCGATCTNGNATGCCGTCTNCTGCTTNANNNNNANANNNG
+
AAAAAEEEEEEE#EEEEEEEEEEEEE#AEE##E#A////6AE<#E#EEEEEEEEA#A/EE/E#E#####/#E###E
@NB500956:89:HW2FHBGX2:1:11101:17754:1070 1:N:0:ATCACG
CAAGCAACTTACNTTACTTTAGGCTGNAAANNGNCTGCCTGAANTNCCTGCTCACNAATCCCNCNNNNNCNTNNNT
+
AAAAAEEEEEEE#EEAEEEEEEEEEE#EEE##E#EEEEEEEEE#E#EEEEEEEEE#EAEAEA#/#####E#A###E
@NB500956:89:HW2FHBGX2:1:11101:26223:1070 1:N:0:ATCACG
TCAATTTCAGAACTTTTTATTGGTCTNTTCNNGNATTCATCTTNTNCCTGGTTTANTCTTGGNANNNNNTNTNNNT
+
AAAAAEEEEEEEEEEEEEEEEEEEEE#EEA##E#EEEEEEEEE#E#<EAEEEEEE#EEEEEE#E#####E#E###E
`

func stringScanner(s string) *Scanner {
	return NewScanner(bytes.NewReader([]byte(s)), All)
}

func scanErr(s string) error {
	scan := stringScanner(s)
	var r Read
	for scan.Scan(&r) {
	}
	return scan.Err()
}

func TestFASTQ(t *testing.T) {
	s := stringScanner(fq)
	var r Read
	if !s.Scan(&r) {
		t.Fatal(s.Err())
	}
	expect := Read{
		ID:   "NB500956:89:HW2FHBGX2:1:11101:25648:1069 1:N:0:ATCACG",
		Seq:  "ATACAGGCCTGANCCACTGTGCCCAGNCTANNTNATTANTGAANANAGAATNGTTNTAAATANANNNNNTNTNNNC",
		Unk:  "+",
		Qual: "AAAAAEEEEEEE#EEAEEEEEEEEEE#EEE##E#EEEE#EEEE#E#EEEEE#EEE#EEEAEE#A#####E#E###E",
	}
	if got, want := r, expect; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	var n int
	for s.Scan(&r) {
		n++
	}
	if got, want := n, 5; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if err := s.Err(); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestBadFASTQ(t *testing.T) {
	if got, want := scanErr("12312#"), ErrInvalid; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := scanErr("@1234\n123"), ErrShort; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := scanErr("@1234\nACGT\n-\nIIII\n"), ErrInvalid; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if err := scanErr(""); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

const fa = `>r1 first read
ACGTAC
GTAA
>r2

>r3
TTTT
`

func TestFASTA(t *testing.T) {
	s := stringScanner("\n" + fa)
	var reads []Read
	var r Read
	for s.Scan(&r) {
		reads = append(reads, r)
	}
	if err := s.Err(); err != nil {
		t.Fatal(err)
	}
	if !s.IsFASTA() {
		t.Error("stream not recognized as FASTA")
	}
	want := []Read{
		{ID: "r1 first read", Seq: "ACGTACGTAA"},
		{ID: "r2"},
		{ID: "r3", Seq: "TTTT"},
	}
	if got := reads; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := reads[0].Name(), "r1"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPairScanner(t *testing.T) {
	const (
		r1 = "@a/1\nACGT\n+\nIIII\n@b/1\nTTTT\n+\nIIII\n"
		r2 = "@a/2\nGGGG\n+\nIIII\n@b/2\nCCCC\n+\nIIII\n"
	)
	s := NewPairScanner(bytes.NewReader([]byte(r1)), bytes.NewReader([]byte(r2)), All)
	var m1, m2 Read
	var got []string
	for s.Scan(&m1, &m2) {
		got = append(got, m1.Seq, m2.Seq)
	}
	if err := s.Err(); err != nil {
		t.Fatal(err)
	}
	if want := []string{"ACGT", "GGGG", "TTTT", "CCCC"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if s.IsFASTA() {
		t.Error("FASTQ pair recognized as FASTA")
	}

	s = NewPairScanner(bytes.NewReader([]byte(r1)), bytes.NewReader([]byte(r2[:17])), All)
	n := 0
	for s.Scan(&m1, &m2) {
		n++
	}
	if got, want := n, 1; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := s.Err(), ErrDiscordant; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if s.Scan(&m1, &m2) {
		t.Error("scan succeeded after a discordant pair")
	}
}

func TestTrim(t *testing.T) {
	r := Read{Seq: "ACGTA", Qual: "IIIII"}
	r.Trim(3)
	if got, want := r, (Read{Seq: "ACG", Qual: "III"}); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	r.Trim(10)
	if got, want := r.Seq, "ACG"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWriter(t *testing.T) {
	var (
		s = stringScanner(fq)
		b = new(bytes.Buffer)
		w = NewWriter(b)
		r Read
	)
	for s.Scan(&r) {
		if err := w.Write(&r); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Err(); err != nil {
		t.Fatal(err)
	}
	if got, want := b.String(), fq; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFASTAWriter(t *testing.T) {
	var (
		s = stringScanner(fa)
		b = new(bytes.Buffer)
		w = NewFormatWriter(b, FASTA)
		r Read
	)
	for s.Scan(&r) {
		if err := w.Write(&r); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := b.String(), ">r1 first read\nACGTACGTAA\n>r2\n\n>r3\nTTTT\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriterNoQuality(t *testing.T) {
	w := NewWriter(new(bytes.Buffer))
	if got, want := w.Write(&Read{ID: "x", Seq: "ACGT"}), ErrNoQuality; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	b := new(bytes.Buffer)
	w = NewWriter(b)
	if err := w.Write(&Read{ID: "x", Seq: "AC", Qual: "II"}); err != nil {
		t.Fatal(err)
	}
	if got, want := b.String(), "@x\nAC\n+\nII\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
