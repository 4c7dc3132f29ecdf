// Package batch discovers .msg files and converts them concurrently.
// Failures are isolated per file: one corrupt message never stops the
// rest of the run, and results keep discovery order regardless of
// worker count.
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/adam2504/conversion-msg-to-pdf/convert"
)

// DefaultWorkers is the conversion concurrency when none is given.
const DefaultWorkers = 4

// Discover lists the .msg files under root in lexical order. The
// extension match is case-insensitive. A root that is itself a .msg
// file yields a single-element list; recursion into subdirectories is
// opt-in.
func Discover(root string, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if !isMsgFile(root) {
			return nil, fmt.Errorf("%s is not a .msg file", root)
		}
		return []string{root}, nil
	}

	var paths []string
	if recursive {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isMsgFile(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return paths, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() && isMsgFile(e.Name()) {
			paths = append(paths, filepath.Join(root, e.Name()))
		}
	}
	return paths, nil
}

func isMsgFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".msg")
}

// Report is the outcome of one batch run. Results holds one entry per
// discovered file, in discovery order.
type Report struct {
	Results   []*convert.Result `json:"results"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Cancelled int               `json:"cancelled"`
	Duration  time.Duration     `json:"-"`
}

// AnyFailed reports whether any file failed or was cancelled.
func (r *Report) AnyFailed() bool { return r.Failed > 0 || r.Cancelled > 0 }

// Processor fans conversions out over a bounded worker pool.
type Processor struct {
	conv    *convert.Converter
	workers int
	log     zerolog.Logger
}

// NewProcessor builds a Processor; workers below one falls back to
// DefaultWorkers.
func NewProcessor(conv *convert.Converter, workers int, log zerolog.Logger) *Processor {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Processor{conv: conv, workers: workers, log: log}
}

// Run converts every path and returns the aggregated report. A
// cancelled context marks the remaining files as cancelled; files
// already converted keep their results.
func (p *Processor) Run(ctx context.Context, paths []string) *Report {
	start := time.Now()
	results := make([]*convert.Result, len(paths))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			results[i] = p.conv.Convert(ctx, path)
			return nil
		})
	}
	g.Wait()

	report := &Report{Results: results, Duration: time.Since(start)}
	for _, res := range results {
		switch convert.KindOf(res.Err) {
		case convert.FailureNone:
			report.Succeeded++
		case convert.Cancelled:
			report.Cancelled++
		default:
			report.Failed++
			p.log.Error().Str("source", res.Source).Err(res.Err).Msg("conversion failed")
		}
	}
	p.log.Info().Int("total", len(paths)).Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).Int("cancelled", report.Cancelled).
		Dur("took", report.Duration).Msg("batch finished")
	return report
}
