package msg_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/adam2504/conversion-msg-to-pdf/parsers/cfb"
	"github.com/adam2504/conversion-msg-to-pdf/parsers/msg"
	"github.com/adam2504/conversion-msg-to-pdf/parsers/msg/msgtest"
)

func TestDecodeBasicMessage(t *testing.T) {
	sent := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	data := msgtest.Build(msgtest.Message{
		Subject:     "Quarterly report",
		SenderName:  "Ada Lovelace",
		SenderEmail: "ada@example.com",
		Body:        "Please find the report attached.",
		SentAt:      sent,
		Recipients: []msgtest.Recipient{
			{Name: "Bob", Email: "bob@example.com", Kind: msg.RecipientTo},
			{Name: "Carol", Email: "carol@example.com", Kind: msg.RecipientCc},
		},
		Attachments: []msgtest.Attachment{
			{LongName: "report.pdf", MimeType: "application/pdf", Data: []byte("%PDF-fake")},
		},
	})

	email, err := msg.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if email.Subject != "Quarterly report" {
		t.Errorf("Subject = %q", email.Subject)
	}
	if email.Sender != "Ada Lovelace" || email.SenderEmail != "ada@example.com" {
		t.Errorf("sender = %q <%q>", email.Sender, email.SenderEmail)
	}
	if !email.SentAt.Equal(sent) {
		t.Errorf("SentAt = %v, want %v", email.SentAt, sent)
	}
	if email.BodyText != "Please find the report attached." {
		t.Errorf("BodyText = %q", email.BodyText)
	}
	if len(email.Recipients) != 2 {
		t.Fatalf("recipients = %d, want 2", len(email.Recipients))
	}
	if email.Recipients[0].Kind != msg.RecipientTo || email.Recipients[1].Kind != msg.RecipientCc {
		t.Errorf("recipient kinds = %d, %d", email.Recipients[0].Kind, email.Recipients[1].Kind)
	}
	if len(email.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(email.Attachments))
	}
	att := email.Attachments[0]
	if att.Filename() != "report.pdf" || att.MimeType != "application/pdf" {
		t.Errorf("attachment = %q (%q)", att.Filename(), att.MimeType)
	}
	if !bytes.Equal(att.Data, []byte("%PDF-fake")) {
		t.Errorf("attachment data = %q", att.Data)
	}
}

func TestDecodeClassAndExtension(t *testing.T) {
	data := msgtest.Build(msgtest.Message{
		Class:   "IPM.Note",
		Subject: "typed",
		Attachments: []msgtest.Attachment{
			{Extension: ".pdf", Data: []byte("%PDF-fake")},
		},
	})

	email, err := msg.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if email.Class != "IPM.Note" {
		t.Errorf("Class = %q, want IPM.Note", email.Class)
	}
	if len(email.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(email.Attachments))
	}
	att := email.Attachments[0]
	if att.Extension != ".pdf" {
		t.Errorf("Extension = %q, want .pdf", att.Extension)
	}
	if att.Method != msg.AttachByValue {
		t.Errorf("Method = %d, want AttachByValue", att.Method)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := msg.Decode([]byte("definitely not a compound file")); err == nil {
		t.Fatal("expected error for non-CFB input")
	}
	if !errors.Is(mustErr(msg.Decode(nil)), cfb.ErrNotCompoundFile) {
		t.Fatal("expected ErrNotCompoundFile for empty input")
	}
}

func TestDecodeEmptyEmailIsValid(t *testing.T) {
	data := msgtest.Build(msgtest.Message{})
	email, err := msg.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if email.BodyText != "" || len(email.Attachments) != 0 {
		t.Fatalf("expected empty email, got %+v", email)
	}
	if email.DisplaySubject() != "(No Subject)" {
		t.Errorf("DisplaySubject = %q", email.DisplaySubject())
	}
	if email.DisplaySender() != "Unknown" {
		t.Errorf("DisplaySender = %q", email.DisplaySender())
	}
}

func TestDecodeContentIDStripped(t *testing.T) {
	data := msgtest.Build(msgtest.Message{
		Attachments: []msgtest.Attachment{
			{LongName: "logo.png", MimeType: "image/png", ContentID: "<logo123>", Data: []byte{1}},
		},
	})
	email, err := msg.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if email.Attachments[0].ContentID != "logo123" {
		t.Errorf("ContentID = %q, want logo123", email.Attachments[0].ContentID)
	}
}

func TestDecodeEmbeddedMessage(t *testing.T) {
	inner := msgtest.Message{Subject: "Inner mail", Body: "nested"}
	data := msgtest.Build(msgtest.Message{
		Subject: "Outer",
		Attachments: []msgtest.Attachment{
			{LongName: "fwd.msg", Embedded: &inner},
		},
	})
	email, err := msg.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	att := email.Attachments[0]
	if !att.IsEmbeddedMessage() {
		t.Fatal("expected embedded message attachment")
	}
	if att.Embedded.Subject != "Inner mail" || att.Embedded.BodyText != "nested" {
		t.Errorf("embedded = %q / %q", att.Embedded.Subject, att.Embedded.BodyText)
	}
}

func TestDecodeNestingBound(t *testing.T) {
	// Build a chain nested beyond the decoder's depth limit.
	cur := msgtest.Message{Subject: "leaf"}
	for i := 0; i < 12; i++ {
		inner := cur
		cur = msgtest.Message{
			Subject:     "level",
			Attachments: []msgtest.Attachment{{LongName: "next.msg", Embedded: &inner}},
		}
	}
	if _, err := msg.Decode(msgtest.Build(cur)); !errors.Is(err, msg.ErrNestingTooDeep) {
		t.Fatalf("expected ErrNestingTooDeep, got %v", err)
	}
}

func TestDecodeRTFFallbackHTML(t *testing.T) {
	// Uncompressed (MELA) RTF wrapper around \fromhtml1 content.
	raw := []byte(`{\rtf1\ansi\fromhtml1 {\*\htmltag2 <html>}{\*\htmltag64 <b>bold</b>}{\*\htmltag4 </html>}}`)
	wrapped := make([]byte, 16, 16+len(raw))
	binary.LittleEndian.PutUint32(wrapped[0:4], uint32(len(raw)+12))
	binary.LittleEndian.PutUint32(wrapped[4:8], uint32(len(raw)))
	binary.LittleEndian.PutUint32(wrapped[8:12], 0x414C454D)
	wrapped = append(wrapped, raw...)

	data := msgtest.Build(msgtest.Message{Subject: "rtf only", BodyRTF: wrapped})
	email, err := msg.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(email.BodyRTF) == 0 {
		t.Fatal("BodyRTF not decoded")
	}
	if !bytes.Contains(email.BodyHTML, []byte("<b>bold</b>")) {
		t.Fatalf("BodyHTML = %q, expected de-encapsulated HTML", email.BodyHTML)
	}
}

func TestDisplayHelpers(t *testing.T) {
	e := &msg.Email{
		Sender:      "Ada",
		SenderEmail: "ada@example.com",
		Recipients: []msg.Recipient{
			{Name: "Bob", Email: "bob@example.com", Kind: msg.RecipientTo},
			{Email: "carol@example.com", Kind: msg.RecipientCc},
		},
	}
	if got := e.DisplaySender(); got != "Ada <ada@example.com>" {
		t.Errorf("DisplaySender = %q", got)
	}
	if got := e.DisplayTo(); got != "Bob <bob@example.com>" {
		t.Errorf("DisplayTo = %q", got)
	}
	if got := e.DisplayCc(); got != "carol@example.com" {
		t.Errorf("DisplayCc = %q", got)
	}
}

func mustErr(_ *msg.Email, err error) error { return err }
