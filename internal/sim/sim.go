// Package sim invokes the external image-simulation binary once per
// expanded job and reports each invocation's outcome.
package sim

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"github.com/roman-dr/drsim/internal/model"
	"github.com/roman-dr/drsim/internal/plan"
)

// Simulator builds and runs the image-simulation command line. The zero
// value is not usable, construct with New.
type Simulator struct {
	binary        string
	level         int
	date          string
	rngSeed       int
	maTableNumber int // used when a job carries none
	stpsf         bool
	useCRDS       bool
	dropExtraDQ   bool
}

type Option func(*Simulator)

func WithLevel(level int) Option {
	return func(s *Simulator) { s.level = level }
}

func WithDate(date string) Option {
	return func(s *Simulator) { s.date = date }
}

func WithRNGSeed(seed int) Option {
	return func(s *Simulator) { s.rngSeed = seed }
}

func WithMATableNumber(n int) Option {
	return func(s *Simulator) { s.maTableNumber = n }
}

func WithoutSTPSF() Option {
	return func(s *Simulator) { s.stpsf = false }
}

func WithoutCRDS() Option {
	return func(s *Simulator) { s.useCRDS = false }
}

func WithoutDropExtraDQ() Option {
	return func(s *Simulator) { s.dropExtraDQ = false }
}

func New(binary string, opts ...Option) Simulator {
	s := Simulator{
		binary:        binary,
		level:         model.DefaultLevel,
		date:          model.DefaultDate,
		rngSeed:       model.DefaultRNGSeed,
		maTableNumber: model.DefaultMATableNumber,
		stpsf:         true,
		useCRDS:       true,
		dropExtraDQ:   true,
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// Result is one simulation invocation's outcome. A non-zero exit code is
// data, not an error: the caller decides how to treat failed jobs.
type Result struct {
	Output   string
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
}

func (r Result) Failed() bool {
	return r.ExitCode != 0
}

// Args renders the command-line arguments for one job.
func (s Simulator) Args(job plan.ImageJob) []string {
	args := []string{
		"--radec",
		strconv.FormatFloat(job.RA, 'g', -1, 64),
		strconv.FormatFloat(job.Dec, 'g', -1, 64),
		"--level", strconv.Itoa(s.level),
		"--sca", strconv.Itoa(job.SCA),
		"--bandpass", job.Bandpass,
		"--roll", strconv.FormatFloat(job.Roll, 'g', -1, 64),
		"--catalog", job.Catalog,
	}
	if s.stpsf {
		args = append(args, "--stpsf")
	}
	maTable := job.MATableNumber
	if maTable == 0 {
		maTable = s.maTableNumber
	}
	args = append(args,
		"--ma_table_number", strconv.Itoa(maTable),
		"--date", s.date,
		"--rng_seed", strconv.Itoa(s.rngSeed),
	)
	if s.useCRDS {
		args = append(args, "--usecrds")
	}
	if s.dropExtraDQ {
		args = append(args, "--drop-extra-dq")
	}
	return append(args, job.Output)
}

// Run executes the simulation for one job, capturing stdout and stderr.
// An error is returned only when the binary cannot be started; exit codes
// travel in the Result.
func (s Simulator) Run(ctx context.Context, job plan.ImageJob) (Result, error) {
	args := s.Args(job)

	cmd := exec.CommandContext(ctx, s.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	slog.InfoContext(ctx, "simulation started",
		"output", job.Output, "sca", job.SCA, "bandpass", job.Bandpass)

	err := cmd.Run()
	res := Result{
		Output:  job.Output,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: time.Since(started),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, err
		}
		res.ExitCode = exitErr.ExitCode()
	}

	if res.Failed() {
		slog.ErrorContext(ctx, "simulation failed",
			"output", job.Output, "exit", res.ExitCode, "stderr", res.Stderr)
	} else {
		slog.InfoContext(ctx, "simulation finished",
			"output", job.Output, "elapsed", res.Elapsed.String())
	}
	return res, nil
}
