package correct

import (
	"runtime"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/syncqueue"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/readcorrect/encoding/fastq"
)

// ReadSource is a stream of reads. *fastq.Scanner implements it.
type ReadSource interface {
	Scan(read *fastq.Read) bool
	Err() error
}

// Sink consumes outcomes. RunSerial and RunParallel call Add from a single
// goroutine.
type Sink interface {
	Add(item WorkItem, out Outcome) error
}

// RunSerial corrects the reads of src in order with c and passes every
// outcome to sink.
func RunSerial(src ReadSource, c Corrector, sink Sink) error {
	var read fastq.Read
	for idx := 0; src.Scan(&read); idx++ {
		item := WorkItem{Idx: idx, Read: read}
		if err := sink.Add(item, correctSafe(c, item)); err != nil {
			return err
		}
	}
	return src.Err()
}

// ParallelOpts configures RunParallel.
type ParallelOpts struct {
	// Parallelism is the number of workers.
	Parallelism int
	// ChunkSize is the number of reads a worker claims at a time.
	ChunkSize int
}

// DefaultParallelOpts sets the default values to ParallelOpts.
var DefaultParallelOpts = ParallelOpts{
	Parallelism: runtime.NumCPU(),
	ChunkSize:   1000,
}

type chunk struct {
	seq   int
	items []WorkItem
}

type batch struct {
	items    []WorkItem
	outcomes []Outcome
}

// RunParallel splits src into chunks of opts.ChunkSize reads, corrects them
// on opts.Parallelism workers, each with its own corrector from
// newCorrector, and passes the outcomes to sink from a single goroutine.
// Outcomes reach sink in input order.
func RunParallel(src ReadSource, newCorrector func() (Corrector, error), opts ParallelOpts, sink Sink) error {
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelOpts.Parallelism
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultParallelOpts.ChunkSize
	}
	correctors := make([]Corrector, opts.Parallelism)
	for i := range correctors {
		c, err := newCorrector()
		if err != nil {
			return err
		}
		correctors[i] = c
	}

	var (
		e         errors.Once
		closeOnce sync.Once
		chunkCh   = make(chan chunk, opts.Parallelism)
		queue     = syncqueue.NewOrderedQueue(2 * opts.Parallelism)
	)
	// abort is closed when the sink fails.
	abort := make(chan struct{})
	closeQueue := func(err error) {
		closeOnce.Do(func() { e.Set(queue.Close(err)) })
	}

	// The reader thread.
	go func() {
		defer close(chunkCh)
		var (
			read  fastq.Read
			items []WorkItem
			seq   int
			idx   int
		)
		for src.Scan(&read) {
			items = append(items, WorkItem{Idx: idx, Read: read})
			idx++
			if len(items) == opts.ChunkSize {
				chunkCh <- chunk{seq: seq, items: items}
				seq++
				items = nil
			}
		}
		if len(items) > 0 {
			chunkCh <- chunk{seq: seq, items: items}
		}
		e.Set(src.Err())
		log.Debug.Printf("correct: read %d reads in %d chunks", idx, seq+1)
	}()

	// The aggregation thread.
	aggDone := make(chan struct{})
	go func() {
		defer close(aggDone)
		for {
			val, ok, err := queue.Next()
			if err != nil {
				e.Set(err)
				return
			}
			if !ok {
				return
			}
			b := val.(batch)
			for i := range b.items {
				if err := sink.Add(b.items[i], b.outcomes[i]); err != nil {
					e.Set(err)
					close(abort)
					closeQueue(err)
					return
				}
			}
		}
	}()

	err := traverse.Each(opts.Parallelism, func(worker int) error {
		c := correctors[worker]
		for ch := range chunkCh {
			select {
			case <-abort:
				// Keep draining so that the reader can finish.
				continue
			default:
			}
			outcomes := make([]Outcome, len(ch.items))
			for i, item := range ch.items {
				outcomes[i] = correctSafe(c, item)
			}
			if err := queue.Insert(ch.seq, batch{items: ch.items, outcomes: outcomes}); err != nil {
				e.Set(err)
			}
		}
		return nil
	})
	e.Set(err)
	closeQueue(nil)
	<-aggDone
	return e.Err()
}
