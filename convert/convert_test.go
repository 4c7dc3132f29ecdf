package convert

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"

	"github.com/adam2504/conversion-msg-to-pdf/parsers/msg/msgtest"
)

// testConverter builds a Converter wired to the offline text engine.
func testConverter(t *testing.T, mutate func(*Options)) *Converter {
	t.Helper()
	opts := DefaultOptions()
	opts.Engine = TextEngine{}
	opts.OutputDir = t.TempDir()
	opts.Logger = zerolog.Nop()
	if mutate != nil {
		mutate(&opts)
	}
	return New(opts)
}

// samplePDF renders a one-page PDF to use as attachment payload.
func samplePDF(t *testing.T) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	doc.CellFormat(0, 10, "attached document", "", 1, "L", false, 0, "")
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("build sample pdf: %v", err)
	}
	return buf.Bytes()
}

func writeMsg(t *testing.T, m msgtest.Message) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.msg")
	if err := os.WriteFile(path, msgtest.Build(m), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestConvertBasicMessage(t *testing.T) {
	c := testConverter(t, nil)
	path := writeMsg(t, msgtest.Message{
		Subject:     "Status update",
		SenderName:  "Ana Ruiz",
		SenderEmail: "ana@example.com",
		Body:        "All systems nominal.",
		SentAt:      time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
	})

	res := c.Convert(context.Background(), path)
	if res.Failed() {
		t.Fatalf("convert failed: %v", res.Err)
	}
	if filepath.Base(res.Output) != "sample.pdf" {
		t.Errorf("output name = %s, want sample.pdf", filepath.Base(res.Output))
	}
	out, err := os.ReadFile(res.Output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a pdf")
	}
	// Banner page plus at least one body page.
	if res.Pages < 2 {
		t.Errorf("pages = %d, want >= 2", res.Pages)
	}
	if res.Size != int64(len(out)) {
		t.Errorf("size = %d, want %d", res.Size, len(out))
	}
}

func TestConvertMergesPdfAttachment(t *testing.T) {
	c := testConverter(t, nil)
	path := writeMsg(t, msgtest.Message{
		Subject: "With attachment",
		Body:    "See attached.",
		Attachments: []msgtest.Attachment{
			{LongName: "report.pdf", MimeType: "application/pdf", Data: samplePDF(t)},
		},
	})

	res := c.Convert(context.Background(), path)
	if res.Failed() {
		t.Fatalf("convert failed: %v", res.Err)
	}
	// Banner, body, and the merged attachment page.
	if res.Pages < 3 {
		t.Errorf("pages = %d, want >= 3", res.Pages)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestConvertImageAttachment(t *testing.T) {
	c := testConverter(t, nil)
	path := writeMsg(t, msgtest.Message{
		Subject: "Photo",
		Body:    "Picture attached.",
		Attachments: []msgtest.Attachment{
			{LongName: "pic.png", MimeType: "image/png", Data: tinyPNG(t)},
		},
	})

	res := c.Convert(context.Background(), path)
	if res.Failed() {
		t.Fatalf("convert failed: %v", res.Err)
	}
	if res.Pages < 3 {
		t.Errorf("pages = %d, want >= 3 (banner, body, image page)", res.Pages)
	}
}

func TestConvertAssemblyPageCount(t *testing.T) {
	// Banner, one body page, the PDF attachment's page, then one page
	// for the image: four pages in a fixed order.
	fixture := msgtest.Message{
		Subject: "Ordered",
		Body:    "short body",
		Attachments: []msgtest.Attachment{
			{LongName: "a.pdf", MimeType: "application/pdf", Data: samplePDF(t)},
			{LongName: "b.png", MimeType: "image/png", Data: tinyPNG(t)},
		},
	}
	c := testConverter(t, nil)
	path := writeMsg(t, fixture)

	first := c.Convert(context.Background(), path)
	if first.Failed() {
		t.Fatalf("convert failed: %v", first.Err)
	}
	if first.Pages != 4 {
		t.Fatalf("pages = %d, want 4", first.Pages)
	}

	// Converting the same input again yields the same page structure.
	second := c.Convert(context.Background(), path)
	if second.Failed() || second.Pages != first.Pages {
		t.Fatalf("repeat conversion: pages = %d err = %v, want %d pages",
			second.Pages, second.Err, first.Pages)
	}
}

func TestConvertEmptyMessage(t *testing.T) {
	// Zero attachments and an empty body still produce a valid
	// document, never zero pages.
	res := testConverter(t, nil).Convert(context.Background(), writeMsg(t, msgtest.Message{}))
	if res.Failed() {
		t.Fatalf("convert failed: %v", res.Err)
	}
	if res.Pages < 2 {
		t.Errorf("pages = %d, want banner plus at least one body page", res.Pages)
	}
}

func TestConvertWithoutMergingAttachments(t *testing.T) {
	msgFixture := msgtest.Message{
		Subject: "No merge",
		Body:    "Attachment listed only.",
		Attachments: []msgtest.Attachment{
			{LongName: "report.pdf", MimeType: "application/pdf", Data: samplePDF(t)},
		},
	}

	merged := testConverter(t, nil).Convert(context.Background(), writeMsg(t, msgFixture))
	if merged.Failed() {
		t.Fatalf("merged convert failed: %v", merged.Err)
	}
	listed := testConverter(t, func(o *Options) { o.MergeAttachments = false }).
		Convert(context.Background(), writeMsg(t, msgFixture))
	if listed.Failed() {
		t.Fatalf("list-only convert failed: %v", listed.Err)
	}
	if listed.Pages >= merged.Pages {
		t.Errorf("list-only pages = %d, merged pages = %d, want fewer", listed.Pages, merged.Pages)
	}
}

func TestConvertWithoutBanner(t *testing.T) {
	fixture := msgtest.Message{Subject: "Plain", Body: "Body text."}

	withBanner := testConverter(t, nil).Convert(context.Background(), writeMsg(t, fixture))
	without := testConverter(t, func(o *Options) { o.ShowSourceBanner = false }).
		Convert(context.Background(), writeMsg(t, fixture))
	if withBanner.Failed() || without.Failed() {
		t.Fatalf("convert failed: %v / %v", withBanner.Err, without.Err)
	}
	if without.Pages != withBanner.Pages-1 {
		t.Errorf("pages without banner = %d, with = %d", without.Pages, withBanner.Pages)
	}
}

func TestConvertInlineImageNotAppended(t *testing.T) {
	png := tinyPNG(t)
	c := testConverter(t, nil)
	path := writeMsg(t, msgtest.Message{
		Subject:  "Inline",
		BodyHTML: []byte(`<html><body><img src="cid:pic@local"></body></html>`),
		Attachments: []msgtest.Attachment{
			{LongName: "pic.png", MimeType: "image/png", ContentID: "pic@local", Data: png},
		},
	})

	res := c.Convert(context.Background(), path)
	if res.Failed() {
		t.Fatalf("convert failed: %v", res.Err)
	}
	// The image is consumed inline, so no extra attachment page.
	if res.Pages != 2 {
		t.Errorf("pages = %d, want 2 (banner and body only)", res.Pages)
	}
}

func TestConvertRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "junk.msg")
	if err := os.WriteFile(path, []byte("this is not a compound file"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := testConverter(t, nil).Convert(context.Background(), path)
	if !res.Failed() {
		t.Fatalf("expected failure for garbage input")
	}
	if kind := KindOf(res.Err); kind != MalformedContainer {
		t.Errorf("failure kind = %v, want MalformedContainer", kind)
	}
	if res.Output != "" {
		t.Errorf("failed conversion reported an output path")
	}
}

func TestConvertCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := testConverter(t, nil).Convert(ctx, writeMsg(t, msgtest.Message{Body: "x"}))
	if kind := KindOf(res.Err); kind != Cancelled {
		t.Fatalf("failure kind = %v, want Cancelled", kind)
	}
}

func TestConvertDataDoesNotTouchDisk(t *testing.T) {
	c := testConverter(t, nil)
	pdf, res := c.ConvertData(context.Background(),
		msgtest.Build(msgtest.Message{Subject: "mem", Body: "in memory"}), "mem.msg")
	if res.Failed() {
		t.Fatalf("convert failed: %v", res.Err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("no pdf bytes returned")
	}
	if res.Output != "" {
		t.Errorf("in-memory conversion reported an output path")
	}
}

func TestInspectReportsPlan(t *testing.T) {
	data := msgtest.Build(msgtest.Message{
		Subject:     "Inspect me",
		SenderName:  "Ana",
		SenderEmail: "ana@example.com",
		Body:        "text",
		Attachments: []msgtest.Attachment{
			{LongName: "report.pdf", MimeType: "application/pdf", Data: samplePDF(t)},
			{LongName: "notes.txt", MimeType: "text/plain", Data: []byte("hi")},
		},
	})

	insp, err := Inspect(data)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if insp.Subject != "Inspect me" {
		t.Errorf("subject = %q", insp.Subject)
	}
	if len(insp.Attachments) != 2 {
		t.Fatalf("attachments = %d, want 2", len(insp.Attachments))
	}
	if insp.Attachments[0].Disposition != "merge_as_pdf" {
		t.Errorf("report.pdf disposition = %s", insp.Attachments[0].Disposition)
	}
	if insp.Attachments[1].Disposition != "list_only" {
		t.Errorf("notes.txt disposition = %s", insp.Attachments[1].Disposition)
	}
}

func TestOutputPathSwapsExtension(t *testing.T) {
	c := New(Options{OutputDir: "/tmp/out"})
	got := c.outputPath("/in/Message From: Boss?.msg")
	if got != filepath.Join("/tmp/out", "Message From_ Boss_.pdf") {
		t.Errorf("outputPath = %q", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"plain":            "plain",
		"../../etc/passwd": "_.._etc_passwd",
		"a<b>c|d":          "a_b_c_d",
		"  ..  ":           "unnamed",
		"trailing.":        "trailing",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
