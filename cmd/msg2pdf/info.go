// info.go implements the CLI "info" command that displays a message
// summary and the attachment plan without producing a PDF.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adam2504/conversion-msg-to-pdf/convert"
)

// cmdInfo decodes a .msg file and prints its structure to stdout.
func cmdInfo(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	insp, err := convert.Inspect(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding: %v\n", err)
		os.Exit(1)
	}

	if fi, statErr := os.Stat(path); statErr == nil {
		fmt.Printf("File:        %s (%s)\n", filepath.Base(path), humanSize(int(fi.Size())))
	} else {
		fmt.Printf("File:        %s\n", filepath.Base(path))
	}
	fmt.Println(strings.Repeat("─", 60))

	fields := []struct {
		label string
		value string
	}{
		{"Class", insp.Class},
		{"Subject", insp.Subject},
		{"From", insp.Sender},
		{"To", insp.To},
		{"CC", insp.Cc},
		{"Date", insp.Date},
	}
	for _, f := range fields {
		if f.value != "" {
			fmt.Printf("%-13s%s\n", f.label+":", f.value)
		}
	}
	if insp.HasHTMLBody {
		fmt.Printf("%-13sHTML (%s)\n", "Body:", humanSize(insp.BodyChars))
	} else if insp.BodyChars > 0 {
		fmt.Printf("%-13sPlain text (%s)\n", "Body:", humanSize(insp.BodyChars))
	}

	if len(insp.Attachments) > 0 {
		fmt.Println(strings.Repeat("─", 60))
		fmt.Printf("Attachments: %d\n", len(insp.Attachments))
		for _, a := range insp.Attachments {
			kind := a.Type
			if a.Embedded {
				kind = "embedded message"
			}
			fmt.Printf("  %s (%s, %s) -> %s\n",
				a.Name, kind, humanSize(a.Size), dispositionLabel(a.Disposition))
		}
	}
}

// dispositionLabel maps a plan disposition to a human-readable label.
func dispositionLabel(d string) string {
	switch d {
	case "merge_as_pdf":
		return "merged as PDF pages"
	case "convert_to_pdf":
		return "converted to a PDF page"
	default:
		return "listed in the body"
	}
}
