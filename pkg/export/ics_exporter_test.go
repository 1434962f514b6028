package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestICSExporterRender(t *testing.T) {
	exporter := NewICSExporter()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	out, err := exporter.Render(now, []CalendarEvent{
		{
			UID:         "class-abc@brightpath",
			Start:       time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
			End:         time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
			Summary:     "English class with Jane Doe",
			Description: "Room: https://meet.example/room-1",
		},
	})
	require.NoError(t, err)

	doc := string(out)
	assert.True(t, strings.HasPrefix(doc, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, doc, "UID:class-abc@brightpath\r\n")
	assert.Contains(t, doc, "DTSTAMP:20250301T120000Z\r\n")
	assert.Contains(t, doc, "DTSTART:20250303T090000Z\r\n")
	assert.Contains(t, doc, "DTEND:20250303T100000Z\r\n")
	assert.Contains(t, doc, "TRIGGER:-PT10M\r\n")
	assert.Contains(t, doc, "ACTION:DISPLAY\r\n")
	assert.True(t, strings.HasSuffix(doc, "END:VCALENDAR\r\n"))
}

func TestICSExporterEscapesText(t *testing.T) {
	exporter := NewICSExporter()
	now := time.Now()

	out, err := exporter.Render(now, []CalendarEvent{
		{
			UID:     "uid-1",
			Start:   now,
			End:     now.Add(time.Hour),
			Summary: "Grammar; tenses, part 1",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), "SUMMARY:Grammar\\; tenses\\, part 1")
}

func TestICSExporterRequiresUID(t *testing.T) {
	exporter := NewICSExporter()
	_, err := exporter.Render(time.Now(), []CalendarEvent{{Summary: "x"}})
	require.Error(t, err)
}

func TestICSExporterEmptyCalendar(t *testing.T) {
	exporter := NewICSExporter()
	out, err := exporter.Render(time.Now(), nil)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "BEGIN:VEVENT")
}
