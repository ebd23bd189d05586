package main

import (
	"context"

	"github.com/BurntSushi/toml"
	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// fileConfig is the layout of the -config file. Keys left out of the file
// keep their flag defaults, and flags given on the command line win over the
// file.
//
//   output = "corrected.fa.gz"
//   threads = 8
//
//   [correction]
//   algorithm = "hybrid"
//   k = 27
//   error-rate = 0.05
type fileConfig struct {
	Output      *string `toml:"output"`
	Discard     *string `toml:"discard"`
	Metrics     *string `toml:"metrics"`
	Histogram   *string `toml:"histogram"`
	FASTQOutput *bool   `toml:"fastq-output"`
	RemoveDups  *bool   `toml:"rmdup"`
	Threads     *int    `toml:"threads"`
	ChunkSize   *int    `toml:"chunk-size"`
	SampleRate  *int    `toml:"sample-rate"`

	Correction correctionConfig `toml:"correction"`
}

type correctionConfig struct {
	Algorithm       *string  `toml:"algorithm"`
	KmerLength      *int     `toml:"k"`
	CheckKmerLength *int     `toml:"check-k"`
	Threshold       *int     `toml:"threshold"`
	Learn           *bool    `toml:"learn"`
	Samples         *int     `toml:"samples"`
	Seed            *int64   `toml:"seed"`
	KmerRounds      *int     `toml:"kmer-rounds"`
	OverlapRounds   *int     `toml:"overlap-rounds"`
	MinOverlap      *int     `toml:"min-overlap"`
	ErrorRate       *float64 `toml:"error-rate"`
	ConflictCutoff  *int     `toml:"conflict-cutoff"`
	DepthFilter     *int     `toml:"depth-filter"`
	Diploid         *bool    `toml:"diploid"`
}

func loadConfig(ctx context.Context, path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := file.ReadFile(ctx, path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, errors.Wrapf(err, "decode config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, errors.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// applyConfig copies the values of cfg into o, except those whose flag is in
// set.
func applyConfig(cfg fileConfig, o *options, set map[string]bool) {
	str := func(flag string, v *string, dst *string) {
		if v != nil && !set[flag] {
			*dst = *v
		}
	}
	integer := func(flag string, v *int, dst *int) {
		if v != nil && !set[flag] {
			*dst = *v
		}
	}
	boolean := func(flag string, v *bool, dst *bool) {
		if v != nil && !set[flag] {
			*dst = *v
		}
	}
	p := &o.params
	c := cfg.Correction

	str("o", cfg.Output, &o.output)
	str("discard", cfg.Discard, &o.discard)
	str("metrics", cfg.Metrics, &o.metrics)
	str("histogram", cfg.Histogram, &o.histogram)
	boolean("fastq-output", cfg.FASTQOutput, &o.fastqOutput)
	boolean("rmdup", cfg.RemoveDups, &o.rmdup)
	integer("t", cfg.Threads, &o.threads)
	integer("chunk-size", cfg.ChunkSize, &o.chunkSize)
	integer("sample-rate", cfg.SampleRate, &o.sampleRate)

	str("a", c.Algorithm, &o.algorithm)
	integer("k", c.KmerLength, &p.KmerLength)
	integer("check-k", c.CheckKmerLength, &p.CheckKmerLength)
	integer("x", c.Threshold, &p.SolidThreshold)
	boolean("learn", c.Learn, &o.learn)
	integer("samples", c.Samples, &o.samples)
	if c.Seed != nil && !set["seed"] {
		o.seed = *c.Seed
	}
	integer("i", c.KmerRounds, &p.NumKmerRounds)
	integer("r", c.OverlapRounds, &p.NumOverlapRounds)
	integer("m", c.MinOverlap, &p.MinOverlap)
	if c.ErrorRate != nil && !set["e"] {
		o.errorRate = *c.ErrorRate
	}
	integer("c", c.ConflictCutoff, &p.ConflictCutoff)
	integer("d", c.DepthFilter, &p.DepthFilter)
	boolean("diploid", c.Diploid, &p.Diploid)
}
