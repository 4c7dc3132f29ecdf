package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/adam2504/conversion-msg-to-pdf/convert"
	"github.com/adam2504/conversion-msg-to-pdf/parsers/msg/msgtest"
)

func writeFixture(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func goodMsg(subject string) []byte {
	return msgtest.Build(msgtest.Message{Subject: subject, Body: "body of " + subject})
}

func testConverter(t *testing.T) *convert.Converter {
	t.Helper()
	opts := convert.DefaultOptions()
	opts.Engine = convert.TextEngine{}
	opts.OutputDir = t.TempDir()
	return convert.New(opts)
}

func TestDiscoverDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "b.msg", goodMsg("b"))
	writeFixture(t, dir, "A.MSG", goodMsg("a"))
	writeFixture(t, dir, "notes.txt", []byte("skip me"))
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFixture(t, sub, "c.msg", goodMsg("c"))

	flat, err := Discover(dir, false)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(flat) != 2 {
		t.Fatalf("flat discovery found %d files, want 2: %v", len(flat), flat)
	}
	if filepath.Base(flat[0]) != "A.MSG" || filepath.Base(flat[1]) != "b.msg" {
		t.Errorf("flat order = %v, want lexical", flat)
	}

	deep, err := Discover(dir, true)
	if err != nil {
		t.Fatalf("recursive discover: %v", err)
	}
	if len(deep) != 3 {
		t.Fatalf("recursive discovery found %d files, want 3: %v", len(deep), deep)
	}
}

func TestDiscoverSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "one.msg", goodMsg("one"))

	got, err := Discover(path, false)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(got) != 1 || got[0] != path {
		t.Fatalf("got %v, want [%s]", got, path)
	}

	other := writeFixture(t, dir, "readme.txt", []byte("x"))
	if _, err := Discover(other, false); err == nil {
		t.Fatal("expected error for non-msg file")
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFixture(t, dir, "a.msg", goodMsg("a")),
		writeFixture(t, dir, "b.msg", goodMsg("b")),
		writeFixture(t, dir, "bad.msg", []byte("garbage")),
		writeFixture(t, dir, "c.msg", goodMsg("c")),
		writeFixture(t, dir, "d.msg", goodMsg("d")),
	}

	for _, workers := range []int{1, 4, len(paths)} {
		p := NewProcessor(testConverter(t), workers, zerolog.Nop())
		report := p.Run(context.Background(), paths)

		if report.Succeeded != 4 || report.Failed != 1 {
			t.Errorf("workers=%d: succeeded=%d failed=%d, want 4/1",
				workers, report.Succeeded, report.Failed)
		}
		if len(report.Results) != len(paths) {
			t.Fatalf("workers=%d: %d results, want %d", workers, len(report.Results), len(paths))
		}
		// Results stay aligned with the input order.
		for i, res := range report.Results {
			if res.Source != paths[i] {
				t.Errorf("workers=%d: result %d is %s, want %s", workers, i, res.Source, paths[i])
			}
		}
		if kind := convert.KindOf(report.Results[2].Err); kind != convert.MalformedContainer {
			t.Errorf("workers=%d: corrupt file kind = %v", workers, kind)
		}
		if !report.AnyFailed() {
			t.Errorf("workers=%d: AnyFailed() = false", workers)
		}
	}
}

func TestRunCancelledContext(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.msg", "b.msg", "c.msg"} {
		paths = append(paths, writeFixture(t, dir, name, goodMsg(name)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := NewProcessor(testConverter(t), 2, zerolog.Nop()).Run(ctx, paths)
	if report.Cancelled != len(paths) {
		t.Fatalf("cancelled = %d, want %d", report.Cancelled, len(paths))
	}
}

func TestNewProcessorDefaultsWorkers(t *testing.T) {
	p := NewProcessor(testConverter(t), 0, zerolog.Nop())
	if p.workers != DefaultWorkers {
		t.Fatalf("workers = %d, want %d", p.workers, DefaultWorkers)
	}
}
