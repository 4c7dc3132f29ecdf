// Msg2pdf converts Outlook .msg files to standalone PDF documents,
// as a CLI tool and as an HTTP service.
package main

import (
	"fmt"
	"os"
	"strings"
)

// version is the application version, reported by the version command
// and the health endpoint.
const version = "1.0.0"

// usage prints command-line help to stderr.
func usage() {
	fmt.Fprintf(os.Stderr, `msg2pdf v%s
Outlook .msg to PDF converter

Usage:
  msg2pdf convert <file.msg> [options]   Convert one message
  msg2pdf batch   <dir|file> [options]   Convert every .msg under a path
  msg2pdf info    <file.msg>             Show message summary without converting
  msg2pdf serve                          Start the HTTP API (config from env)
  msg2pdf healthcheck [url]              Probe a running server
  msg2pdf help                           Show this help message

Options (convert and batch):
  -o <dir>         Output directory (default: next to the source)
  -no-merge        List attachments instead of appending them as pages
  -no-banner       Skip the leading source banner page
  -inline-images   Fetch remote images referenced by message bodies
  -workers <n>     Batch concurrency (default %d)
  -r               Recurse into subdirectories (batch)
  -v               Verbose logging

Examples:
  msg2pdf convert invoice.msg
  msg2pdf convert invoice.msg -o ./out -no-banner
  msg2pdf batch ./mail -r -workers 8 -o ./out
  msg2pdf info invoice.msg
`, version, defaultWorkers)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := strings.ToLower(os.Args[1])
	args := os.Args[2:]

	switch cmd {
	case "help", "-h", "--help":
		usage()
	case "version", "-v", "--version":
		fmt.Println(version)
	case "convert":
		cmdConvert(args)
	case "batch":
		cmdBatch(args)
	case "info", "view":
		requireFile(args)
		cmdInfo(args[0])
	case "serve", "server", "web":
		cmdServe()
	case "healthcheck":
		cmdHealthcheck(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

// requireFile exits with an error if no file argument was provided.
func requireFile(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: file path required")
		usage()
		os.Exit(1)
	}
}
