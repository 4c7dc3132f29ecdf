// convert.go implements the "convert" and "batch" commands.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/adam2504/conversion-msg-to-pdf/batch"
	"github.com/adam2504/conversion-msg-to-pdf/convert"
)

const defaultWorkers = batch.DefaultWorkers

// convertFlags holds the options shared by convert and batch.
type convertFlags struct {
	outputDir    string
	noMerge      bool
	noBanner     bool
	inlineImages bool
	workers      int
	recursive    bool
	verbose      bool
}

// parseConvertFlags parses options after the path argument.
func parseConvertFlags(name string, args []string) (string, *convertFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	cf := &convertFlags{}
	fs.StringVar(&cf.outputDir, "o", "", "output directory")
	fs.BoolVar(&cf.noMerge, "no-merge", false, "list attachments instead of merging")
	fs.BoolVar(&cf.noBanner, "no-banner", false, "skip the source banner page")
	fs.BoolVar(&cf.inlineImages, "inline-images", false, "fetch remote images")
	fs.IntVar(&cf.workers, "workers", defaultWorkers, "batch concurrency")
	fs.BoolVar(&cf.recursive, "r", false, "recurse into subdirectories")
	fs.BoolVar(&cf.verbose, "v", false, "verbose logging")

	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: %s requires a path\n", name)
		usage()
		os.Exit(1)
	}
	fs.Parse(args[1:])
	return args[0], cf
}

// cliLogger writes human-readable log lines to stderr.
func cliLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()
}

// newConverter builds the converter from parsed flags.
func newConverter(cf *convertFlags, log zerolog.Logger) *convert.Converter {
	opts := convert.DefaultOptions()
	opts.OutputDir = cf.outputDir
	opts.MergeAttachments = !cf.noMerge
	opts.ShowSourceBanner = !cf.noBanner
	opts.InlineRemoteImages = cf.inlineImages
	opts.Logger = log
	return convert.New(opts)
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// cmdConvert converts a single file and prints the result.
func cmdConvert(args []string) {
	path, cf := parseConvertFlags("convert", args)
	log := cliLogger(cf.verbose)

	ctx, stop := signalContext()
	defer stop()

	res := newConverter(cf, log).Convert(ctx, path)
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	if res.Failed() {
		fmt.Fprintf(os.Stderr, "Error: %v\n", res.Err)
		os.Exit(1)
	}
	fmt.Printf("%s -> %s (%d pages, %s)\n",
		res.Source, res.Output, res.Pages, humanSize(int(res.Size)))
}

// cmdBatch discovers and converts every .msg under the path.
func cmdBatch(args []string) {
	root, cf := parseConvertFlags("batch", args)
	log := cliLogger(cf.verbose)

	paths, err := batch.Discover(root, cf.recursive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "No .msg files found under %s\n", root)
		os.Exit(1)
	}

	ctx, stop := signalContext()
	defer stop()

	proc := batch.NewProcessor(newConverter(cf, log), cf.workers, log)
	report := proc.Run(ctx, paths)

	for _, res := range report.Results {
		switch {
		case res.Failed():
			fmt.Printf("FAIL  %s: %v\n", res.Source, res.Err)
		default:
			fmt.Printf("ok    %s -> %s (%d pages)\n", res.Source, res.Output, res.Pages)
		}
		for _, w := range res.Warnings {
			fmt.Printf("      warning: %s\n", w)
		}
	}
	fmt.Printf("\n%d converted, %d failed, %d cancelled in %s\n",
		report.Succeeded, report.Failed, report.Cancelled,
		report.Duration.Round(timeRounding))
	if report.AnyFailed() {
		os.Exit(1)
	}
}
