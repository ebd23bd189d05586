package main

// bio-correct corrects sequencing errors in a read collection.
//
// All reads of the input are indexed in a bidirectional FM index. Each read
// is then corrected against the support the index reports for its k-mers,
// or against the consensus of the reads that overlap it, and written to the
// output stream. Reads that fail quality checks are written as solid
// fragments when possible, and to the -discard stream otherwise.
//
// Example:
//
//    bio-correct -a hybrid -k 27 -o corrected.fa.gz -metrics metrics.tsv reads.fastq.gz
//
// Paired-end reads may be given as two files, R1 then R2. Both mates of every
// pair are indexed and corrected.

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/readcorrect/biosimd"
	"github.com/grailbio/readcorrect/correct"
	"github.com/grailbio/readcorrect/encoding/fastq"
	"github.com/grailbio/readcorrect/fmindex"
	"github.com/grailbio/readcorrect/kmerdist"
	"github.com/grailbio/readcorrect/overlap"
)

// options is the collection of settings given by flags and the config file.
type options struct {
	input       string
	input2      string
	output      string
	discard     string
	metrics     string
	histogram   string
	config      string
	fastqOutput bool
	rmdup       bool

	threads    int
	chunkSize  int
	sampleRate int

	algorithm string
	learn     bool
	samples   int
	seed      int64
	errorRate float64

	params correct.Params
}

func defaultOptions() options {
	return options{
		output:     "corrected.fa",
		threads:    runtime.NumCPU(),
		chunkSize:  correct.DefaultParallelOpts.ChunkSize,
		sampleRate: 32,
		algorithm:  correct.DefaultParams.Algorithm.String(),
		samples:    kmerdist.DefaultSamples,
		seed:       1,
		errorRate:  1 - correct.DefaultParams.MinIdentity,
		params:     correct.DefaultParams,
	}
}

func registerFlags(fs *flag.FlagSet, o *options) {
	p := &o.params
	fs.StringVar(&o.output, "o", o.output, "Output file for corrected reads. A .gz suffix compresses the output.")
	fs.StringVar(&o.discard, "discard", o.discard, "If set, reads that fail QC and have no solid fragment are written here.")
	fs.StringVar(&o.metrics, "metrics", o.metrics, "If set, per-position, quality, base and context error rates are written here as TSV.")
	fs.StringVar(&o.histogram, "histogram", o.histogram, "If set, the learned k-mer count histogram is written here as TSV.")
	fs.StringVar(&o.config, "config", o.config, "TOML file with default settings. Flags given on the command line take precedence.")
	fs.BoolVar(&o.fastqOutput, "fastq-output", o.fastqOutput, "Write FASTQ instead of FASTA. The input must be FASTQ.")
	fs.BoolVar(&o.rmdup, "rmdup", o.rmdup, "Discard kept reads whose corrected sequence, on either strand, duplicates an earlier read.")
	fs.IntVar(&o.threads, "t", o.threads, "Number of correction threads. 1 corrects serially.")
	fs.IntVar(&o.chunkSize, "chunk-size", o.chunkSize, "Number of reads a thread claims at a time.")
	fs.IntVar(&o.sampleRate, "sample-rate", o.sampleRate,
		`Suffix array sampling rate of the index. Overlap and hybrid correction need a positive value;
0 disables locating, which saves memory.`)

	fs.StringVar(&o.algorithm, "a", o.algorithm, "Correction algorithm: kmer, hybrid, overlap, thread or fmextend.")
	fs.IntVar(&p.KmerLength, "k", p.KmerLength, "Length of the k-mers whose support is checked.")
	fs.IntVar(&p.CheckKmerLength, "check-k", p.CheckKmerLength, "Width of the neighbourhood in which substitutions are tried.")
	fs.IntVar(&p.SolidThreshold, "x", p.SolidThreshold, "Minimum count of a solid k-mer. 0 uses the median learned from the index.")
	fs.BoolVar(&o.learn, "learn", o.learn, "Learn the solid threshold from the k-mer count histogram, overriding -x.")
	fs.IntVar(&o.samples, "samples", o.samples, "Number of reads sampled to learn the k-mer count histogram.")
	fs.Int64Var(&o.seed, "seed", o.seed, "Random seed for histogram sampling.")
	fs.IntVar(&p.NumKmerRounds, "i", p.NumKmerRounds, "Maximum rounds of k-mer correction.")
	fs.IntVar(&p.NumOverlapRounds, "r", p.NumOverlapRounds, "Maximum rounds of overlap correction.")
	fs.IntVar(&p.MinOverlap, "m", p.MinOverlap, "Minimum overlap length.")
	fs.Float64Var(&o.errorRate, "e", o.errorRate, "Maximum error rate of an overlap.")
	fs.IntVar(&p.ConflictCutoff, "c", p.ConflictCutoff, "Overlap columns whose second base is seen more often than this are not corrected.")
	fs.IntVar(&p.DepthFilter, "d", p.DepthFilter, "Overlap columns covered by fewer reads are not corrected.")
	fs.BoolVar(&p.Diploid, "diploid", p.Diploid, "Split reads covering a heterozygous site into both alleles.")
}

// finalize resolves the string-valued options into o.params and validates
// them.
func (o *options) finalize() error {
	algo, err := correct.ParseAlgorithm(o.algorithm)
	if err != nil {
		return err
	}
	o.params.Algorithm = algo
	if o.errorRate < 0 || o.errorRate > 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("invalid error rate: %v, must be in [0, 1]", o.errorRate))
	}
	o.params.MinIdentity = 1 - o.errorRate
	if o.samples <= 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("invalid number of samples: %d", o.samples))
	}
	if (algo == correct.Overlap || algo == correct.Hybrid) && o.sampleRate <= 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("algorithm %v requires -sample-rate > 0", algo))
	}
	p := o.params
	if p.SolidThreshold <= 0 {
		// Learned later.
		p.SolidThreshold = 1
	}
	return p.Validate()
}

// run corrects the reads of o.input, and of o.input2 when set, and writes all
// outputs.
func run(ctx context.Context, o options) (correct.Report, error) {
	p := o.params
	var (
		reads   []fastq.Read
		isFASTA bool
		err     error
	)
	if o.input2 == "" {
		reads, isFASTA, err = readAll(ctx, o.input)
	} else {
		reads, isFASTA, err = readPairs(ctx, o.input, o.input2)
	}
	if err != nil {
		return correct.Report{}, errors.E(err, "read", o.input)
	}
	if o.fastqOutput && isFASTA {
		return correct.Report{}, errors.E(errors.Invalid, "-fastq-output requires FASTQ input")
	}
	seqs := make([]string, len(reads))
	for i := range reads {
		seq := []byte(reads[i].Seq)
		biosimd.CleanASCIISeqInplace(seq)
		seqs[i] = string(seq)
	}
	start := time.Now()
	idx := fmindex.NewIndexSet(seqs, o.sampleRate)
	log.Printf("indexed %d reads from %s in %v", len(seqs), o.input, time.Since(start))

	if o.learn || p.SolidThreshold <= 0 || p.Diploid || o.histogram != "" {
		h := kmerdist.Learn(idx, p.KmerLength, o.samples, rand.New(rand.NewSource(o.seed)))
		cal, err := kmerdist.Calibrate(h, p.SolidThreshold, o.learn)
		if err != nil {
			return correct.Report{}, err
		}
		p.SolidThreshold = cal.Threshold
		if p.Diploid {
			p.MedianCount = cal.Median
		}
		if o.histogram != "" {
			if err := writeFile(ctx, o.histogram, func(w io.Writer) error { return h.WriteTSV(w, h.Max()) }); err != nil {
				return correct.Report{}, err
			}
		}
	}

	var finder overlap.Finder
	if p.Algorithm == correct.Overlap || p.Algorithm == correct.Hybrid {
		f, err := overlap.NewIndexFinder(idx, seqs, p.SeedLength, p.SeedStride)
		if err != nil {
			return correct.Report{}, err
		}
		finder = f
	}
	newCorrector := func() (correct.Corrector, error) { return correct.New(p, idx, finder) }

	format := fastq.FASTA
	if o.fastqOutput {
		format = fastq.FASTQ
	}
	kept, err := createOutput(ctx, o.output, format)
	if err != nil {
		return correct.Report{}, err
	}
	var (
		discard       *output
		discardWriter *fastq.Writer
		metrics       *correct.Metrics
	)
	if o.discard != "" {
		if discard, err = createOutput(ctx, o.discard, format); err != nil {
			kept.Close(ctx) // nolint: errcheck
			return correct.Report{}, err
		}
		discardWriter = discard.w
	}
	if o.metrics != "" {
		metrics = correct.NewMetrics(p.ContextLength)
	}
	agg := correct.NewAggregator(kept.w, discardWriter, metrics)
	var sink correct.Sink = agg
	var dups *correct.DuplicateFilter
	if o.rmdup {
		dups = correct.NewDuplicateFilter(agg)
		sink = dups
	}

	start = time.Now()
	src := &sliceSource{reads: reads}
	once := errors.Once{}
	if o.threads <= 1 {
		c, err := newCorrector()
		if err == nil {
			err = correct.RunSerial(src, c, sink)
		}
		once.Set(err)
	} else {
		opts := correct.ParallelOpts{Parallelism: o.threads, ChunkSize: o.chunkSize}
		once.Set(correct.RunParallel(src, newCorrector, opts, sink))
	}
	once.Set(kept.Close(ctx))
	if discard != nil {
		once.Set(discard.Close(ctx))
	}
	if err := once.Err(); err != nil {
		return correct.Report{}, err
	}
	log.Printf("corrected %d reads with %v in %v", len(reads), p.Algorithm, time.Since(start))
	if dups != nil {
		log.Printf("removed %d duplicate reads", dups.Duplicates())
	}

	if metrics != nil {
		if err := writeFile(ctx, o.metrics, metrics.WriteTSV); err != nil {
			return correct.Report{}, err
		}
	}
	return agg.Report(), nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `
bio-correct corrects sequencing errors in a FASTQ or FASTA file.

Usage:
  bio-correct [flags] reads.fastq[.gz]
  bio-correct [flags] r1.fastq[.gz] r2.fastq[.gz]

Flags:`)
	flag.PrintDefaults()
}

func main() {
	o := defaultOptions()
	registerFlags(flag.CommandLine, &o)
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()
	ctx := vcontext.Background()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		log.Fatalf("one input file, or an R1 and an R2 file, is required, got %d arguments", flag.NArg())
	}
	o.input = flag.Arg(0)
	if flag.NArg() == 2 {
		o.input2 = flag.Arg(1)
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if o.config != "" {
		cfg, err := loadConfig(ctx, o.config)
		if err != nil {
			log.Fatal(err)
		}
		applyConfig(cfg, &o, set)
	}
	if err := o.finalize(); err != nil {
		log.Fatal(err)
	}
	report, err := run(ctx, o)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Stats: %v", report)
	log.Printf("All done")
}
