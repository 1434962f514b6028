package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

const icsTimeLayout = "20060102T150405Z"

// CalendarEvent describes a single VEVENT entry.
type CalendarEvent struct {
	UID         string
	Start       time.Time
	End         time.Time
	Summary     string
	Description string
	Location    string
}

// ICSExporter renders events into an RFC 5545 iCalendar document.
type ICSExporter struct {
	prodID       string
	reminderLead time.Duration
}

// NewICSExporter builds an iCalendar exporter with a 10-minute reminder alarm.
func NewICSExporter() *ICSExporter {
	return &ICSExporter{
		prodID:       "-//BrightPath English//Academy API//EN",
		reminderLead: 10 * time.Minute,
	}
}

// Render produces the calendar document for the given events.
// Timestamps are emitted in UTC; now is used as DTSTAMP.
func (e *ICSExporter) Render(now time.Time, events []CalendarEvent) ([]byte, error) {
	buf := &bytes.Buffer{}
	writeLine(buf, "BEGIN:VCALENDAR")
	writeLine(buf, "VERSION:2.0")
	writeLine(buf, "PRODID:"+e.prodID)
	writeLine(buf, "CALSCALE:GREGORIAN")
	writeLine(buf, "METHOD:PUBLISH")

	stamp := now.UTC().Format(icsTimeLayout)
	for _, ev := range events {
		if ev.UID == "" {
			return nil, fmt.Errorf("calendar event requires a UID")
		}
		writeLine(buf, "BEGIN:VEVENT")
		writeLine(buf, "UID:"+ev.UID)
		writeLine(buf, "DTSTAMP:"+stamp)
		writeLine(buf, "DTSTART:"+ev.Start.UTC().Format(icsTimeLayout))
		writeLine(buf, "DTEND:"+ev.End.UTC().Format(icsTimeLayout))
		writeLine(buf, "SUMMARY:"+escapeText(ev.Summary))
		if ev.Description != "" {
			writeLine(buf, "DESCRIPTION:"+escapeText(ev.Description))
		}
		if ev.Location != "" {
			writeLine(buf, "LOCATION:"+escapeText(ev.Location))
		}
		minutes := int(e.reminderLead.Minutes())
		writeLine(buf, "BEGIN:VALARM")
		writeLine(buf, fmt.Sprintf("TRIGGER:-PT%dM", minutes))
		writeLine(buf, "ACTION:DISPLAY")
		writeLine(buf, "DESCRIPTION:"+escapeText(ev.Summary))
		writeLine(buf, "END:VALARM")
		writeLine(buf, "END:VEVENT")
	}

	writeLine(buf, "END:VCALENDAR")
	return buf.Bytes(), nil
}

// writeLine folds content at 75 octets per RFC 5545 §3.1 and terminates with CRLF.
func writeLine(buf *bytes.Buffer, line string) {
	const limit = 75
	for len(line) > limit {
		buf.WriteString(line[:limit])
		buf.WriteString("\r\n ")
		line = line[limit:]
	}
	buf.WriteString(line)
	buf.WriteString("\r\n")
}

func escapeText(s string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
	)
	return replacer.Replace(s)
}
