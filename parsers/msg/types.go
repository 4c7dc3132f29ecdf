// types.go defines the structured email model built from a parsed
// container. The model is immutable once built: every consumer down the
// pipeline reads it, none mutate it.

package msg

import (
	"strings"
	"time"
)

// Email is the structured content of one message. Body variants are
// all optional individually; a message with no body text of any kind
// is still a valid (empty) email.
type Email struct {
	Class       string // PR_MESSAGE_CLASS, e.g. "IPM.Note"
	Subject     string
	Sender      string // display name
	SenderEmail string

	Recipients []Recipient

	SentAt     time.Time // zero when absent
	ReceivedAt time.Time // zero when absent

	BodyText string
	BodyHTML []byte // PR_BODY_HTML, or HTML recovered from encapsulated RTF
	BodyRTF  []byte // decompressed PR_RTF_COMPRESSED

	Attachments []*Attachment
}

// Recipient is one entry of the recipient table, in container order.
type Recipient struct {
	Name  string
	Email string
	Kind  int // RecipientTo, RecipientCc, or RecipientBcc
}

// Display returns the best printable form of the recipient.
func (r Recipient) Display() string {
	switch {
	case r.Name != "" && r.Email != "" && r.Name != r.Email:
		return r.Name + " <" + r.Email + ">"
	case r.Name != "":
		return r.Name
	default:
		return r.Email
	}
}

// Attachment is one attachment: a file payload or an embedded message.
type Attachment struct {
	ShortName string // 8.3 filename
	LongName  string
	Extension string // PR_ATTACH_EXTENSION, includes the dot
	MimeType  string // declared MIME type, may be empty or wrong
	ContentID string // inline-image identifier, angle brackets stripped
	Method    int32  // PR_ATTACH_METHOD
	Data      []byte

	// Embedded is the decoded nested message when the attachment is
	// itself an Outlook message.
	Embedded *Email
}

// Filename returns the best display name, preferring the long name.
func (a *Attachment) Filename() string {
	if a.LongName != "" {
		return a.LongName
	}
	if a.ShortName != "" {
		return a.ShortName
	}
	if a.Embedded != nil && a.Embedded.Subject != "" {
		return a.Embedded.Subject + ".msg"
	}
	return "unnamed"
}

// IsEmbeddedMessage reports whether the attachment carries a nested
// message rather than a file payload.
func (a *Attachment) IsEmbeddedMessage() bool {
	return a.Embedded != nil
}

// DisplaySubject returns the subject with the conventional fallback.
func (e *Email) DisplaySubject() string {
	if s := strings.TrimSpace(e.Subject); s != "" {
		return s
	}
	return "(No Subject)"
}

// DisplaySender returns the sender with an address suffix when both
// name and address are known.
func (e *Email) DisplaySender() string {
	switch {
	case e.Sender != "" && e.SenderEmail != "" && e.Sender != e.SenderEmail:
		return e.Sender + " <" + e.SenderEmail + ">"
	case e.Sender != "":
		return e.Sender
	case e.SenderEmail != "":
		return e.SenderEmail
	default:
		return "Unknown"
	}
}

// RecipientsOfKind returns the recipients of one kind, preserving
// container order.
func (e *Email) RecipientsOfKind(kind int) []Recipient {
	var out []Recipient
	for _, r := range e.Recipients {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// joinRecipients renders a recipient list as a comma-separated line.
func joinRecipients(rs []Recipient) string {
	parts := make([]string, 0, len(rs))
	for _, r := range rs {
		if d := r.Display(); d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, ", ")
}

// DisplayTo returns the To line for the header block.
func (e *Email) DisplayTo() string {
	return joinRecipients(e.RecipientsOfKind(RecipientTo))
}

// DisplayCc returns the Cc line for the header block.
func (e *Email) DisplayCc() string {
	return joinRecipients(e.RecipientsOfKind(RecipientCc))
}
