// Package msgtest assembles synthetic Outlook .msg files in memory for
// tests, on top of the cfbtest compound-file writer.
package msgtest

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/adam2504/conversion-msg-to-pdf/parsers/cfb/cfbtest"
)

// Message describes the synthetic email to serialize.
type Message struct {
	Class       string
	Subject     string
	SenderName  string
	SenderEmail string
	Body        string
	BodyHTML    []byte
	BodyRTF     []byte // raw PR_RTF_COMPRESSED payload
	SentAt      time.Time
	Recipients  []Recipient
	Attachments []Attachment
}

// Recipient is one recipient-table row.
type Recipient struct {
	Name  string
	Email string
	Kind  int32 // 1 To, 2 Cc, 3 Bcc; 0 means To
}

// Attachment is one attachment storage.
type Attachment struct {
	LongName  string
	Extension string
	MimeType  string
	ContentID string
	Data      []byte
	Embedded  *Message
}

// Build serializes the message as a compound file.
func Build(m Message) []byte {
	return cfbtest.Build(messageNodes(m, 32)...)
}

func messageNodes(m Message, propsHeader int) []*cfbtest.Node {
	var nodes []*cfbtest.Node

	addStr := func(id uint16, s string) {
		if s != "" {
			nodes = append(nodes, cfbtest.Stream(streamName(id, 0x001F), utf16le(s)))
		}
	}
	addStr(0x001A, m.Class)
	addStr(0x0037, m.Subject)
	addStr(0x0C1A, m.SenderName)
	addStr(0x0C1F, m.SenderEmail)
	addStr(0x1000, m.Body)
	if m.BodyHTML != nil {
		nodes = append(nodes, cfbtest.Stream(streamName(0x1013, 0x0102), m.BodyHTML))
	}
	if m.BodyRTF != nil {
		nodes = append(nodes, cfbtest.Stream(streamName(0x1009, 0x0102), m.BodyRTF))
	}

	var fixed []fixedProp
	if !m.SentAt.IsZero() {
		fixed = append(fixed, timeProp(0x0039, m.SentAt))
	}
	nodes = append(nodes, cfbtest.Stream("__properties_version1.0", propsStream(propsHeader, fixed)))

	for i, r := range m.Recipients {
		kind := r.Kind
		if kind == 0 {
			kind = 1
		}
		var kids []*cfbtest.Node
		if r.Name != "" {
			kids = append(kids, cfbtest.Stream(streamName(0x3001, 0x001F), utf16le(r.Name)))
		}
		if r.Email != "" {
			kids = append(kids, cfbtest.Stream(streamName(0x39FE, 0x001F), utf16le(r.Email)))
		}
		kids = append(kids, cfbtest.Stream("__properties_version1.0",
			propsStream(8, []fixedProp{int32Prop(0x0C15, kind)})))
		nodes = append(nodes, cfbtest.Storage(fmt.Sprintf("__recip_version1.0_#%08X", i), kids...))
	}

	for i, a := range m.Attachments {
		var kids []*cfbtest.Node
		if a.LongName != "" {
			kids = append(kids, cfbtest.Stream(streamName(0x3707, 0x001F), utf16le(a.LongName)))
		}
		if a.Extension != "" {
			kids = append(kids, cfbtest.Stream(streamName(0x3703, 0x001F), utf16le(a.Extension)))
		}
		if a.MimeType != "" {
			kids = append(kids, cfbtest.Stream(streamName(0x370E, 0x001F), utf16le(a.MimeType)))
		}
		if a.ContentID != "" {
			kids = append(kids, cfbtest.Stream(streamName(0x3712, 0x001F), utf16le(a.ContentID)))
		}
		method := int32(1) // by value
		if a.Embedded != nil {
			method = 5
			kids = append(kids, cfbtest.Storage(streamName(0x3701, 0x000D),
				messageNodes(*a.Embedded, 24)...))
		} else if a.Data != nil {
			kids = append(kids, cfbtest.Stream(streamName(0x3701, 0x0102), a.Data))
		}
		kids = append(kids, cfbtest.Stream("__properties_version1.0",
			propsStream(8, []fixedProp{int32Prop(0x3705, method)})))
		nodes = append(nodes, cfbtest.Storage(fmt.Sprintf("__attach_version1.0_#%08X", i), kids...))
	}

	return nodes
}

type fixedProp struct {
	typ   uint16
	id    uint16
	value [8]byte
}

func int32Prop(id uint16, v int32) fixedProp {
	p := fixedProp{typ: 0x0003, id: id}
	binary.LittleEndian.PutUint32(p.value[:4], uint32(v))
	return p
}

func timeProp(id uint16, t time.Time) fixedProp {
	p := fixedProp{typ: 0x0040, id: id}
	const epochDelta = 11644473600
	ticks := uint64(t.Unix()+epochDelta)*10_000_000 + uint64(t.Nanosecond()/100)
	binary.LittleEndian.PutUint64(p.value[:], ticks)
	return p
}

func propsStream(headerSize int, props []fixedProp) []byte {
	out := make([]byte, headerSize, headerSize+len(props)*16)
	for _, p := range props {
		rec := make([]byte, 16)
		binary.LittleEndian.PutUint16(rec[0:2], p.typ)
		binary.LittleEndian.PutUint16(rec[2:4], p.id)
		binary.LittleEndian.PutUint32(rec[4:8], 0x0002) // readable flag
		copy(rec[8:16], p.value[:])
		out = append(out, rec...)
	}
	return out
}

func streamName(id, typ uint16) string {
	return fmt.Sprintf("__substg1.0_%04X%04X", id, typ)
}

func utf16le(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		if r > 0xFFFF {
			r = '?'
		}
		out = append(out, byte(r), byte(r>>8))
	}
	return out
}
