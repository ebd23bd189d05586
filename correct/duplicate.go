package correct

import (
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/readcorrect/biosimd"
)

// DuplicateFilter is a Sink that flags a read as Duplicate when its corrected
// sequence, on either strand, equals that of an earlier kept read. Every
// outcome is then passed on to the next Sink.
type DuplicateFilter struct {
	next Sink
	seen map[string]struct{}
	n    int
}

// NewDuplicateFilter creates a filter in front of next.
func NewDuplicateFilter(next Sink) *DuplicateFilter {
	return &DuplicateFilter{next: next, seen: map[string]struct{}{}}
}

// canonical returns the smaller of seq and its reverse complement.
// seq must be normalized.
func canonical(seq string) string {
	rc := make([]byte, len(seq))
	biosimd.ReverseComp8NoValidate(rc, gunsafe.StringToBytes(seq))
	if s := string(rc); s < seq {
		return s
	}
	return seq
}

// Add implements Sink.
func (d *DuplicateFilter) Add(item WorkItem, out Outcome) error {
	if out.Flag != Duplicate && out.QCPassed() {
		key := canonical(out.Primary())
		if _, ok := d.seen[key]; ok {
			out.Flag = Duplicate
			d.n++
		} else {
			d.seen[key] = struct{}{}
		}
	}
	return d.next.Add(item, out)
}

// Duplicates returns the number of reads flagged so far.
func (d *DuplicateFilter) Duplicates() int { return d.n }
