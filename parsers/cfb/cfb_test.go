package cfb_test

import (
	"bytes"
	"testing"

	"github.com/adam2504/conversion-msg-to-pdf/parsers/cfb"
	"github.com/adam2504/conversion-msg-to-pdf/parsers/cfb/cfbtest"
)

func TestOpenRejectsNonCompoundData(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0x00, 0x01, 0x02},
		bytes.Repeat([]byte{0xAB}, 1024),
	}
	for _, in := range inputs {
		if _, err := cfb.Open(in); err == nil {
			t.Fatalf("expected error for %d-byte non-CFB input", len(in))
		}
	}
}

func TestOpenRejectsTruncatedHeader(t *testing.T) {
	data := cfbtest.Build(cfbtest.Stream("s", []byte("x")))
	// Valid signature but the body is cut off mid-directory.
	if _, err := cfb.Open(data[:600]); err == nil {
		t.Fatal("expected error for truncated file")
	}
}

func TestStreamRoundTrip(t *testing.T) {
	small := []byte("hello compound world")
	big := bytes.Repeat([]byte{0x5A}, 5000) // above mini cutoff

	data := cfbtest.Build(
		cfbtest.Stream("small", small),
		cfbtest.Stream("big", big),
	)
	f, err := cfb.Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for _, tc := range []struct {
		name string
		want []byte
	}{
		{"small", small},
		{"big", big},
	} {
		h, ok := f.ChildByName(f.Root(), tc.name)
		if !ok {
			t.Fatalf("stream %q not found", tc.name)
		}
		got, err := f.StreamData(h)
		if err != nil {
			t.Fatalf("StreamData(%q): %v", tc.name, err)
		}
		if !bytes.Equal(got, tc.want) {
			t.Fatalf("stream %q: got %d bytes, want %d", tc.name, len(got), len(tc.want))
		}
	}
}

func TestNestedStorageNavigation(t *testing.T) {
	data := cfbtest.Build(
		cfbtest.Storage("outer",
			cfbtest.Stream("a", []byte("A")),
			cfbtest.Storage("inner",
				cfbtest.Stream("b", []byte("B")),
			),
		),
		cfbtest.Stream("top", []byte("T")),
	)
	f, err := cfb.Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	outer, ok := f.ChildByName(f.Root(), "outer")
	if !ok {
		t.Fatal("outer storage not found")
	}
	if !f.Entry(outer).IsStorage() {
		t.Fatal("outer is not a storage")
	}

	kids := f.Children(outer)
	if len(kids) != 2 {
		t.Fatalf("outer children = %d, want 2", len(kids))
	}

	inner, ok := f.ChildByName(outer, "inner")
	if !ok {
		t.Fatal("inner storage not found")
	}
	b, ok := f.ChildByName(inner, "b")
	if !ok {
		t.Fatal("stream b not found")
	}
	got, err := f.StreamData(b)
	if err != nil {
		t.Fatalf("StreamData(b): %v", err)
	}
	if string(got) != "B" {
		t.Fatalf("stream b = %q, want %q", got, "B")
	}
}

func TestChildrenOrderIsStable(t *testing.T) {
	data := cfbtest.Build(
		cfbtest.Stream("first", []byte("1")),
		cfbtest.Stream("second", []byte("2")),
		cfbtest.Stream("third", []byte("3")),
	)
	f, err := cfb.Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var names []string
	for _, h := range f.Children(f.Root()) {
		names = append(names, f.Entry(h).Name)
	}
	want := []string{"first", "second", "third"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("children order = %v, want %v", names, want)
		}
	}
}

func TestEmptyStream(t *testing.T) {
	data := cfbtest.Build(cfbtest.Stream("empty", []byte{}))
	f, err := cfb.Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	h, ok := f.ChildByName(f.Root(), "empty")
	if !ok {
		t.Fatal("empty stream not found")
	}
	got, err := f.StreamData(h)
	if err != nil {
		t.Fatalf("StreamData: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("empty stream returned %d bytes", len(got))
	}
}

func TestStreamDataOnStorageFails(t *testing.T) {
	data := cfbtest.Build(cfbtest.Storage("dir"))
	f, err := cfb.Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	h, _ := f.ChildByName(f.Root(), "dir")
	if _, err := f.StreamData(h); err == nil {
		t.Fatal("expected error reading a storage as a stream")
	}
}
