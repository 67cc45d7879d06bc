package feed

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alistcal/internal/model"
	"alistcal/internal/tz"
)

var runAt = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	n := 0
	r, err := NewRenderer(Options{NewUID: func() string {
		n++
		return fmt.Sprintf("uid-%d", n)
	}})
	require.NoError(t, err)
	return r
}

func renderYAML(t *testing.T, body string) Result {
	t.Helper()
	records, err := model.DecodeEvents([]byte(body))
	require.NoError(t, err)
	res, err := newTestRenderer(t).Render(records, runAt)
	require.NoError(t, err)
	require.NoError(t, Verify(res.Feed, res.Events))
	return res
}

func parseEvents(t *testing.T, doc string) []*ical.VEvent {
	t.Helper()
	cal, err := ical.ParseCalendar(strings.NewReader(doc))
	require.NoError(t, err)
	return cal.Events()
}

func descriptionOf(ve *ical.VEvent) []string {
	return strings.Split(ve.GetProperty(ical.ComponentPropertyDescription).Value, "\n")
}

func TestRenderTimedEventAcrossDSTStart(t *testing.T) {
	res := renderYAML(t, `
events:
  - title: Season premiere
    date: 2024-03-10
    start_local: "20:00"
    tz_local: America/New_York
    duration_minutes: 180
`)
	require.Len(t, res.Events, 1)

	// 20:00 EDT (UTC-4) is 00:00Z, i.e. 21:00 in Buenos Aires.
	assert.Contains(t, res.Feed, "DTSTART;TZID=America/Argentina/Buenos_Aires:20240310T210000\r\n")
	assert.Contains(t, res.Feed, "DTEND;TZID=America/Argentina/Buenos_Aires:20240311T000000\r\n")

	events := parseEvents(t, res.Feed)
	require.Len(t, events, 1)
	assert.Equal(t, "Hora Argentina: 10/03 21:00–11/03 00:00 (Argentina, GMT-3)", descriptionOf(events[0])[0])

	start := events[0].GetProperty(ical.ComponentPropertyDtStart)
	assert.Equal(t, []string{tz.Target}, start.ICalParameters[string(ical.ParameterTzid)])
}

func TestRenderEnvelope(t *testing.T) {
	res := renderYAML(t, `
events:
  - title: Emmys
    location: Peacock Theater, Los Angeles
    date: 2025-09-14
  - title: Grammys
    date: 2025-02-02
    start_local: "17:00"
    tz_local: America/Los_Angeles
    duration_minutes: 210
`)
	assert.Len(t, res.Events, 2)
	assert.Equal(t, "2025-01-01T12:00:00Z\n", res.Stamp)

	doc := res.Feed
	assert.True(t, strings.HasPrefix(doc, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//alist-calendar//weekly//ES\r\n"))
	assert.True(t, strings.HasSuffix(doc, "END:VEVENT\r\nEND:VCALENDAR\r\n"))
	for _, line := range []string{
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"X-WR-CALNAME:Eventos (confirmados) — Argentina (GMT-3)",
		"X-WR-TIMEZONE:America/Argentina/Buenos_Aires",
		"X-PUBLISHED-TTL:PT24H",
		"UID:uid-1@alist-calendar",
		"UID:uid-2@alist-calendar",
		"LOCATION:Peacock Theater\\, Los Angeles",
		"DTSTART;VALUE=DATE:20250914",
		"DTEND;VALUE=DATE:20250915",
	} {
		assert.Contains(t, doc, "\r\n"+line+"\r\n")
	}
	assert.Equal(t, 2, strings.Count(doc, "BEGIN:VEVENT\r\n"))
	assert.Equal(t, 2, strings.Count(doc, "END:VEVENT\r\n"))
	assert.Equal(t, 2, strings.Count(doc, "\r\nDTSTAMP:20250101T120000Z\r\n"))
	assert.Equal(t, 1, strings.Count(doc, "LOCATION:"))

	events := parseEvents(t, doc)
	assert.Equal(t, timeTBA, descriptionOf(events[0])[0])
}

func TestRenderEscapesTitle(t *testing.T) {
	records := []model.Record{{Title: "Back\\slash, comma; semi\r\nnext", Date: "2025-05-05"}}
	res, err := newTestRenderer(t).Render(records, runAt)
	require.NoError(t, err)

	assert.Contains(t, res.Feed, "\r\nSUMMARY:Back\\\\slash\\, comma\\; semi\\nnext\r\n")
	assert.NotContains(t, res.Feed, `\\\\`)
	require.NoError(t, Verify(res.Feed, res.Events))
}

func TestRenderTextRoundTrips(t *testing.T) {
	title := "AC\\DC, live; night one\r\nsecond line"
	location := "Estadio River Plate; Núñez, CABA"
	note := `Path C:\shows\2025, gates; 18:00`
	records := []model.Record{{Title: title, Location: location, Date: "2025-05-05", Notes: model.StringList{note}}}

	res, err := newTestRenderer(t).Render(records, runAt)
	require.NoError(t, err)
	require.NoError(t, Verify(res.Feed, res.Events))

	events := parseEvents(t, res.Feed)
	require.Len(t, events, 1)
	assert.Equal(t, "AC\\DC, live; night one\nsecond line", events[0].GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, location, events[0].GetProperty(ical.ComponentPropertyLocation).Value)
	assert.Equal(t, note, descriptionOf(events[0])[len(descriptionOf(events[0]))-1])

	cal, err := ical.ParseCalendar(strings.NewReader(res.Feed))
	require.NoError(t, err)
	for _, p := range cal.CalendarProperties {
		if p.IANAToken == string(ical.PropertyXWRCalName) {
			assert.Equal(t, DefaultCalendarName, p.Value)
		}
	}
}

func TestRenderSkipsBlankTitles(t *testing.T) {
	res, err := RenderFeed([]model.Record{
		{Title: "   ", Date: "2025-01-01"},
		{Title: "\t\r\n", Date: "2025-01-02"},
		{Title: "Kept", Date: "2025-01-03"},
	}, runAt)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "Kept", res.Events[0].Summary)
	require.NoError(t, Verify(res.Feed, res.Events))
}

func TestRenderPeoplePlaceholders(t *testing.T) {
	res := renderYAML(t, "events:\n  - title: Met Gala\n    date: 2025-05-05\n")
	lines := descriptionOf(parseEvents(t, res.Feed)[0])

	assert.Equal(t, []string{
		timeTBA,
		redCarpetMissing,
		"Celebrities A-list confirmadas: (sin confirmaciones oficiales publicadas)",
		"Celebrities B-list confirmadas: (sin confirmaciones oficiales publicadas)",
		"Argentinos confirmados: (sin confirmaciones oficiales publicadas)",
	}, lines)
}

func TestRenderMultiDayInheritsHeadliners(t *testing.T) {
	res := renderYAML(t, `
events:
  - title: Lollapalooza Argentina
    tz_local: America/Argentina/Buenos_Aires
    headliners: [Olivia Rodrigo, Tyler the Creator]
    notes: Entradas agotadas
    days:
      - date: 2025-03-21
      - date: 2025-03-22
        headliners: Justin Timberlake
        notes: [Día 2]
      - date: 2025-03-23
`)
	require.Len(t, res.Events, 3)

	events := parseEvents(t, res.Feed)
	require.Len(t, events, 3)
	assert.Contains(t, descriptionOf(events[0]), "Headliners: Olivia Rodrigo, Tyler the Creator")
	assert.Contains(t, descriptionOf(events[1]), "Headliners: Justin Timberlake")
	assert.Contains(t, descriptionOf(events[2]), "Headliners: Olivia Rodrigo, Tyler the Creator")

	day2 := descriptionOf(events[1])
	assert.Equal(t, []string{"Día 2", "Entradas agotadas"}, day2[len(day2)-2:])

	for _, ve := range events {
		assert.Equal(t, "Lollapalooza Argentina", ve.GetProperty(ical.ComponentPropertySummary).Value)
	}
}

func TestRenderDropsIncompleteRecords(t *testing.T) {
	res := renderYAML(t, `
events:
  - title: Draft with no date
    start_local: "20:00"
  - title: Festival with undated days
    days:
      - notes: TBA
  - title: Festival with placeholder days
    date: 2025-03-21
    days: [day-one, day-two]
  - title: "   "
    date: 2025-01-01
  - date: 2025-01-02
`)
	assert.Empty(t, res.Events)
	assert.NotContains(t, res.Feed, "BEGIN:VEVENT")
	assert.True(t, strings.HasSuffix(res.Feed, "END:VCALENDAR\r\n"))
}

func TestRenderRecordErrorsAreFatal(t *testing.T) {
	cases := []struct {
		name string
		rec  model.Record
		want error
	}{
		{
			"unknown zone",
			model.Record{Title: "Oscars", Date: "2025-03-02", StartLocal: "16:00", TZLocal: "Hollywood/Dolby", DurationMinutes: 200},
			tz.ErrUnknownZone,
		},
		{
			"malformed all-day date",
			model.Record{Title: "Emmys", Date: "14/09/2025"},
			tz.ErrBadDate,
		},
		{
			"malformed start",
			model.Record{Title: "Grammys", Date: "2025-02-02", StartLocal: "5pm", TZLocal: "America/Los_Angeles", DurationMinutes: 60},
			tz.ErrBadClock,
		},
		{
			"malformed set time",
			model.Record{Title: "Fest", Date: "2025-03-21", TZLocal: "UTC", SetTimes: model.SetTimeList{
				{Artist: "X", StartLocal: "21:00", EndLocal: "late"},
			}},
			tz.ErrBadClock,
		},
		{
			"bad repeat",
			model.Record{Title: "Series", Date: "2025-01-01", Repeat: "FREQ=NEVER"},
			model.ErrBadRepeat,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			records := []model.Record{{Title: "Fine", Date: "2025-01-01"}, tc.rec}
			res, err := newTestRenderer(t).Render(records, runAt)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, res.Feed)

			var re *model.RecordError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, 1, re.Index)
			assert.Equal(t, tc.rec.Title, re.Title)
		})
	}
}

func TestRenderRepeatSeries(t *testing.T) {
	res := renderYAML(t, `
events:
  - title: The Last of Us S2
    date: 2025-04-13
    start_local: "21:00"
    tz_local: America/New_York
    duration_minutes: 60
    repeat: FREQ=WEEKLY;COUNT=3
`)
	require.Len(t, res.Events, 3)
	assert.Contains(t, res.Feed, ":20250413T220000\r\n")
	assert.Contains(t, res.Feed, ":20250420T220000\r\n")
	assert.Contains(t, res.Feed, ":20250427T220000\r\n")
}

func TestRenderFeedDefaults(t *testing.T) {
	res, err := RenderFeed([]model.Record{{Title: "A", Date: "2025-01-01"}, {Title: "B", Date: "2025-01-02"}}, runAt)
	require.NoError(t, err)
	require.NoError(t, Verify(res.Feed, res.Events))

	events := parseEvents(t, res.Feed)
	for _, ve := range events {
		assert.True(t, strings.HasSuffix(ve.Id(), "@alist-calendar"), ve.Id())
	}
	assert.NotEqual(t, events[0].Id(), events[1].Id())
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "a\nb\nc\nd", normalizeText("a\r\nb\rc\nd"))
	assert.Equal(t, `x\y;z,w`, normalizeText(`x\y;z,w`))
	assert.Equal(t, "\n", normalizeText("\r\n"))
}

func TestVerifyRejectsBrokenDocuments(t *testing.T) {
	res, err := newTestRenderer(t).Render([]model.Record{{Title: "A", Date: "2025-01-01"}}, runAt)
	require.NoError(t, err)

	require.NoError(t, Verify(res.Feed, res.Events))

	assert.ErrorIs(t, Verify(res.Feed, append(res.Events, res.Events[0])), ErrInvalidFeed)
	assert.ErrorIs(t, Verify(strings.ReplaceAll(res.Feed, "\r\n", "\n"), res.Events), ErrInvalidFeed)
	assert.ErrorIs(t, Verify(strings.TrimSuffix(res.Feed, "\r\n"), res.Events), ErrInvalidFeed)

	noStamp := strings.Replace(res.Feed, "DTSTAMP:20250101T120000Z\r\n", "", 1)
	assert.ErrorIs(t, Verify(noStamp, res.Events), ErrInvalidFeed)

	// A doubly escaped summary parses back with its backslashes doubled.
	twice := strings.Replace(res.Feed, "SUMMARY:A\r\n", "SUMMARY:A\\\\\\,\r\n", 1)
	assert.ErrorIs(t, Verify(twice, res.Events), ErrInvalidFeed)

	renamed := append([]Event(nil), res.Events...)
	renamed[0].Summary = "B"
	assert.ErrorIs(t, Verify(res.Feed, renamed), ErrInvalidFeed)
}

func TestDescribeSectionOrder(t *testing.T) {
	r := newTestRenderer(t)
	rec := model.Record{
		Title:           "Oscars",
		Date:            "2025-03-02",
		StartLocal:      "16:00",
		TZLocal:         "America/Los_Angeles",
		DurationMinutes: 210,
		Broadcast: model.Broadcast{
			TV:        model.StringList{"TNT", "Canal 7"},
			Streaming: model.StringList{"Max"},
			RedCarpet: model.RedCarpet{Confirmed: true, Where: "Dolby Theatre", StartLocal: "14:30", DurationMinutes: 90},
		},
		ConfirmedPeople: model.People{
			AList:      model.StringList{"Zendaya"},
			Argentines: model.StringList{"Ricardo Darín"},
		},
		TopNominated:        model.StringList{"Emilia Pérez"},
		ConfirmedPerformers: model.StringList{"Ariana Grande"},
		SpecialAwards:       model.StringList{"Quincy Jones"},
		Notes:               model.StringList{"Gala 97"},
	}

	ev, err := r.buildEvent(rec)
	require.NoError(t, err)

	want := []string{
		"Hora Argentina: 02/03 21:00–03/03 00:30 (Argentina, GMT-3)",
		"TV: TNT, Canal 7",
		"Streaming: Max",
		"Red carpet confirmado: Dolby Theatre — Hora Argentina: 02/03 19:30–21:00 (Argentina, GMT-3)",
		"Más nominadas/os: Emilia Pérez",
		"Performances confirmadas: Ariana Grande",
		"Premios especiales confirmados: Quincy Jones",
		"Celebrities A-list confirmadas: Zendaya",
		"Celebrities B-list confirmadas: (sin confirmaciones oficiales publicadas)",
		"Argentinos confirmados: Ricardo Darín",
		"Gala 97",
	}
	if diff := cmp.Diff(want, ev.Description); diff != "" {
		t.Errorf("description (-want +got):\n%s", diff)
	}
	assert.False(t, ev.AllDay)
}

func TestDescribeSetTimesAndRedCarpetVariants(t *testing.T) {
	conv, err := tz.NewConverter()
	require.NoError(t, err)

	rec := model.Record{
		Date:       "2025-04-11",
		TZLocal:    "America/Los_Angeles",
		Headliners: model.StringList{"Lady Gaga"},
		PopArtists: model.StringList{"Charli xcx"},
		Broadcast:  model.Broadcast{RedCarpet: model.RedCarpet{Confirmed: true}},
		SetTimes: model.SetTimeList{
			{Artist: "Lady Gaga", StartLocal: "21:00", EndLocal: "22:30", Stage: "Coachella Stage"},
			{Artist: "Missing End", StartLocal: "20:00"},
			{Artist: "Late Set", StartLocal: "23:30", EndLocal: "00:45"},
		},
	}
	lines, err := describe(conv, rec, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		timeTBA,
		"Red carpet confirmado: Sí (detalle por anunciar)",
		"Headliners: Lady Gaga",
		"Artistas pop destacados: Charli xcx",
		setTimesHeader,
		"- 01:00–02:30 Lady Gaga (Coachella Stage)",
		"- 03:30–04:45 Late Set",
	}, lines[:7])

	rec.TZLocal = ""
	rec.Broadcast.RedCarpet.Where = "Empire Polo Club"
	rec.Broadcast.RedCarpet.StartLocal = "18:00"
	rec.Broadcast.RedCarpet.DurationMinutes = 60
	lines, err = describe(conv, rec, nil)
	require.NoError(t, err)
	assert.Contains(t, lines, "Red carpet confirmado: Empire Polo Club")
	assert.Contains(t, lines, setTimesNoZone)
	assert.NotContains(t, lines, setTimesHeader)
}
