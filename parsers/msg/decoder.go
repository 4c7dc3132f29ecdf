// Package msg builds a structured Email model from Outlook .msg
// compound files. It maps well-known MAPI properties onto typed fields,
// degrades gracefully when optional properties are missing, and bounds
// the recursion into embedded messages.
package msg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adam2504/conversion-msg-to-pdf/parsers/cfb"
	"github.com/adam2504/conversion-msg-to-pdf/parsers/rtf"
)

// maxNestingDepth bounds embedded-message recursion. Legitimate mail
// rarely nests more than two or three levels; past this the container
// is treated as hostile.
const maxNestingDepth = 8

// ErrNestingTooDeep is returned when embedded messages nest beyond
// maxNestingDepth.
var ErrNestingTooDeep = errors.New("embedded message nesting too deep")

// ErrNotMsgFile is returned when the compound file has no message
// structure at all (for example, an .xls renamed to .msg).
var ErrNotMsgFile = errors.New("compound file is not an Outlook message")

// Decode parses raw .msg bytes into an Email.
func Decode(data []byte) (*Email, error) {
	f, err := cfb.Open(data)
	if err != nil {
		return nil, err
	}
	return buildMessage(f, f.Root(), 0, propsHeaderTop)
}

// buildMessage assembles an Email from one message storage. Top-level
// messages and embedded ones differ only in the properties-stream
// header size.
func buildMessage(f *cfb.File, h cfb.Handle, depth, headerSize int) (*Email, error) {
	if depth > maxNestingDepth {
		return nil, ErrNestingTooDeep
	}

	props := collectProperties(f, h, headerSize)

	var recips []cfb.Handle
	var attaches []cfb.Handle
	sawMessageStructure := false
	for _, c := range f.Children(h) {
		e := f.Entry(c)
		if e == nil {
			continue
		}
		if e.IsStream() {
			if e.Name == propertiesStream || strings.HasPrefix(e.Name, streamPrefix) {
				sawMessageStructure = true
			}
			continue
		}
		switch {
		case strings.HasPrefix(e.Name, recipStorePrefix):
			recips = append(recips, c)
			sawMessageStructure = true
		case strings.HasPrefix(e.Name, attachStorePrefix):
			attaches = append(attaches, c)
			sawMessageStructure = true
		case e.Name == nameidStore:
			sawMessageStructure = true
		}
	}
	if !sawMessageStructure {
		return nil, ErrNotMsgFile
	}

	email := &Email{}
	email.Class, _ = props.GetString(PropMessageClass)
	email.Subject, _ = props.GetString(PropSubject)
	email.Sender, _ = props.GetString(PropSenderName)
	if email.Sender == "" {
		email.Sender, _ = props.GetString(PropSentRepName)
	}
	email.SenderEmail, _ = props.GetString(PropSenderEmail)
	if email.SenderEmail == "" {
		email.SenderEmail, _ = props.GetString(PropSentRepEmail)
	}
	email.SentAt, _ = props.GetTime(PropClientSubmit)
	email.ReceivedAt, _ = props.GetTime(PropDeliveryTime)
	email.BodyText, _ = props.GetString(PropBody)

	// HTML body may be stored as binary or as a string property.
	if b, ok := props.GetBytes(PropBodyHTML); ok {
		email.BodyHTML = b
	} else if s, ok := props.GetString(PropBodyHTML); ok {
		email.BodyHTML = []byte(s)
	}

	// Compressed RTF: keep the decompressed form, and when no real
	// HTML body exists, recover HTML from \fromhtml1 encapsulation.
	if b, ok := props.GetBytes(PropRtfCompressed); ok {
		if raw, err := rtf.Decompress(b); err == nil {
			email.BodyRTF = raw
			if len(email.BodyHTML) == 0 {
				email.BodyHTML = rtf.ExtractHTML(raw)
			}
		}
	}

	for _, rh := range recips {
		email.Recipients = append(email.Recipients, buildRecipient(f, rh))
	}
	if len(email.Recipients) == 0 {
		email.Recipients = displayRecipients(props)
	}

	for i, ah := range attaches {
		att, err := buildAttachment(f, ah, depth)
		if err != nil {
			if errors.Is(err, ErrNestingTooDeep) {
				return nil, fmt.Errorf("attachment %d: %w", i, err)
			}
			continue // skip individually broken attachments
		}
		email.Attachments = append(email.Attachments, att)
	}

	return email, nil
}

// buildRecipient reads one recipient storage. Missing fields stay
// empty; an unknown recipient type defaults to To.
func buildRecipient(f *cfb.File, h cfb.Handle) Recipient {
	props := collectProperties(f, h, propsHeaderChild)
	r := Recipient{Kind: RecipientTo}
	r.Name, _ = props.GetString(PropDisplayName)
	r.Email, _ = props.GetString(PropSmtpAddress)
	if r.Email == "" {
		r.Email, _ = props.GetString(PropEmailAddress)
	}
	if k, ok := props.GetInt32(PropRecipientType); ok {
		switch k {
		case RecipientTo, RecipientCc, RecipientBcc:
			r.Kind = int(k)
		}
	}
	return r
}

// displayRecipients falls back to the PR_DISPLAY_TO / PR_DISPLAY_CC
// summary strings when the container has no recipient table.
func displayRecipients(props *propertySet) []Recipient {
	var out []Recipient
	add := func(id uint16, kind int) {
		s, ok := props.GetString(id)
		if !ok || s == "" {
			return
		}
		sep := ","
		if strings.Contains(s, ";") {
			sep = ";"
		}
		for _, part := range strings.Split(s, sep) {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, Recipient{Name: p, Kind: kind})
			}
		}
	}
	add(PropDisplayTo, RecipientTo)
	add(PropDisplayCc, RecipientCc)
	return out
}

// buildAttachment reads one attachment storage, recursing when it
// contains an embedded message.
func buildAttachment(f *cfb.File, h cfb.Handle, depth int) (*Attachment, error) {
	props := collectProperties(f, h, propsHeaderChild)

	att := &Attachment{Method: AttachByValue}
	att.ShortName, _ = props.GetString(PropAttachFilename)
	att.LongName, _ = props.GetString(PropAttachLongFname)
	att.Extension, _ = props.GetString(PropAttachExtension)
	att.MimeType, _ = props.GetString(PropAttachMimeTag)
	if cid, ok := props.GetString(PropAttachContentID); ok {
		att.ContentID = strings.Trim(cid, "<>")
	}
	if m, ok := props.GetInt32(PropAttachMethod); ok {
		att.Method = m
	}
	att.Data, _ = props.GetBytes(PropAttachData)

	// An embedded message lives in a sub-storage named for the data
	// property with the object type suffix.
	embName := fmt.Sprintf("%s%04X%04X", streamPrefix, PropAttachData, TypeObject)
	if sub, ok := f.ChildByName(h, embName); ok && f.Entry(sub).IsStorage() {
		nested, err := buildMessage(f, sub, depth+1, propsHeaderEmbedded)
		if err != nil {
			if errors.Is(err, ErrNestingTooDeep) {
				return nil, err
			}
			// Undecodable embedded message: keep the attachment shell.
		} else {
			att.Embedded = nested
		}
	}

	return att, nil
}
