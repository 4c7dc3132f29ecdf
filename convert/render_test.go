package convert

import (
	"strings"
	"testing"
	"time"

	"github.com/adam2504/conversion-msg-to-pdf/parsers/msg"
)

func TestResolveInlineImagesCaseInsensitive(t *testing.T) {
	logo := &msg.Attachment{LongName: "logo.png", MimeType: "image/png",
		ContentID: "Logo@host", Data: []byte{1, 2, 3}}
	other := &msg.Attachment{LongName: "doc.pdf", MimeType: "application/pdf",
		Data: []byte("%PDF")}
	body := []byte(`<p><img src="cid:LOGO@HOST"> and <img src="cid:missing@host"></p>`)

	out, consumed := resolveInlineImages(body, []*msg.Attachment{logo, other})

	s := string(out)
	if !strings.Contains(s, "data:image/png;base64,AQID") {
		t.Fatalf("resolved body missing data URI: %s", s)
	}
	if !strings.Contains(s, "cid:missing@host") {
		t.Fatalf("unmatched reference was rewritten: %s", s)
	}
	if !consumed[logo] {
		t.Errorf("logo not marked consumed")
	}
	if consumed[other] {
		t.Errorf("unrelated attachment marked consumed")
	}
}

func TestResolveInlineImagesEmptyBody(t *testing.T) {
	out, consumed := resolveInlineImages(nil, []*msg.Attachment{
		{ContentID: "x", Data: []byte{1}},
	})
	if len(out) != 0 || len(consumed) != 0 {
		t.Fatalf("empty body should resolve to nothing")
	}
}

func TestComposeDocumentHeaderAndListing(t *testing.T) {
	email := &msg.Email{
		Subject:     "Quarterly <Review>",
		Sender:      "Ana Ruiz",
		SenderEmail: "ana@example.com",
		SentAt:      time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
		Recipients: []msg.Recipient{
			{Name: "Bob", Email: "bob@example.com", Kind: msg.RecipientTo},
		},
		BodyText: "line one\nline two",
	}
	plan := []PlannedAttachment{
		{Attachment: &msg.Attachment{LongName: "report.pdf",
			MimeType: "application/pdf", Data: make([]byte, 2048)}, Disposition: MergeAsPDF},
	}

	doc := string(composeDocument(email, nil, plan))

	for _, want := range []string{
		"Quarterly &lt;Review&gt;",
		"From:",
		"Bob",
		"March 5, 2024",
		"report.pdf",
		"2.0 KB",
		"<pre class=\"plain\">line one\nline two</pre>",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}
}

func TestComposeDocumentPrefersHTMLBody(t *testing.T) {
	email := &msg.Email{BodyText: "plain fallback"}
	doc := string(composeDocument(email, []byte("<p>rich body</p>"), nil))
	if !strings.Contains(doc, "<p>rich body</p>") {
		t.Fatalf("html body not used: %s", doc)
	}
	if strings.Contains(doc, "plain fallback") {
		t.Fatalf("plain body leaked alongside html body")
	}
}

func TestHumanSize(t *testing.T) {
	cases := map[int]string{
		0:       "0 B",
		512:     "512 B",
		2048:    "2.0 KB",
		5 << 20: "5.0 MB",
	}
	for n, want := range cases {
		if got := humanSize(n); got != want {
			t.Errorf("humanSize(%d) = %q, want %q", n, got, want)
		}
	}
}
