package rtf

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

// lzfuSample is the worked LZFu example from MS-OXRTFCP section 3.1.
var lzfuSample = []byte{
	0x2d, 0x00, 0x00, 0x00, 0x2b, 0x00, 0x00, 0x00,
	0x4c, 0x5a, 0x46, 0x75, 0xf1, 0xc5, 0xc7, 0xa7,
	0x03, 0x00, 0x0a, 0x00, 0x72, 0x63, 0x70, 0x67,
	0x31, 0x32, 0x35, 0x42, 0x32, 0x0a, 0xf3, 0x20,
	0x68, 0x65, 0x6c, 0x09, 0x00, 0x20, 0x62, 0x77,
	0x05, 0xb0, 0x6c, 0x64, 0x7d, 0x0a, 0x80, 0x0f,
	0xa0,
}

func TestDecompressLZFuSample(t *testing.T) {
	got, err := Decompress(lzfuSample)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	want := "{\\rtf1\\ansi\\ansicpg1252\\pard hello world}\r\n"
	if string(got) != want {
		t.Fatalf("Decompress = %q, want %q", got, want)
	}
}

func TestDecompressUncompressed(t *testing.T) {
	raw := []byte(`{\rtf1 plain}`)
	data := make([]byte, 16, 16+len(raw))
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(raw)+12))
	binary.LittleEndian.PutUint32(data[4:8], uint32(len(raw)))
	binary.LittleEndian.PutUint32(data[8:12], magicUncompressed)
	data = append(data, raw...)

	got, err := Decompress(data)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("Decompress = %q, want %q", got, raw)
	}
}

func TestDecompressRejectsBadInput(t *testing.T) {
	for _, in := range [][]byte{nil, {}, {1, 2, 3}, bytes.Repeat([]byte{0xFF}, 20)} {
		if _, err := Decompress(in); err == nil {
			t.Fatalf("expected error for %d-byte input", len(in))
		}
	}
}

func TestExtractHTML(t *testing.T) {
	rtf := []byte(`{\rtf1\ansi\fromhtml1\deff0` +
		`{\*\htmltag2 <html>}{\*\htmltag50 <body>}` +
		`\htmlrtf \pard\plain \htmlrtf0 ` +
		`{\*\htmltag64 <p>}Hello \'e9 world{\*\htmltag72 </p>}` +
		`{\*\htmltag58 </body>}{\*\htmltag4 </html>}}`)

	got := string(ExtractHTML(rtf))
	for _, want := range []string{"<html>", "<body>", "<p>", "Hello \xe9 world", "</html>"} {
		if !strings.Contains(got, want) {
			t.Fatalf("ExtractHTML = %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, "pard") {
		t.Fatalf("ExtractHTML leaked RTF formatting: %q", got)
	}
}

func TestExtractHTMLNotEncapsulated(t *testing.T) {
	if got := ExtractHTML([]byte(`{\rtf1\ansi plain rtf body}`)); got != nil {
		t.Fatalf("expected nil for plain RTF, got %q", got)
	}
	if got := ExtractHTML(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %q", got)
	}
}
