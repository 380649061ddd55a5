package query

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/railquery/railquery_core/internal/interpreter"
	"github.com/railquery/railquery_core/internal/models"
)

// ErrUnparseable means no usable route could be extracted from the text
var ErrUnparseable = errors.New("unable to extract a route from the query")

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
)

// Normalizer turns raw query text into a canonical Query. Structured
// shorthand is parsed locally; natural language goes through the
// interpretation service first and falls back to deterministic rules.
type Normalizer struct {
	interp interpreter.Interpreter
	now    func() time.Time
}

// NewNormalizer builds a normalizer. interp may be nil, in which case
// only the deterministic rules run.
func NewNormalizer(interp interpreter.Interpreter) *Normalizer {
	return &Normalizer{interp: interp, now: time.Now}
}

// Normalize resolves raw text into a canonical query
func (n *Normalizer) Normalize(ctx context.Context, raw string) (models.Query, error) {
	raw = strings.TrimSpace(raw)
	today := n.now().Format("2006-01-02")

	if q, ok := ParseShorthand(raw, today); ok {
		return validate(q)
	}

	if n.interp != nil {
		table := interpreter.NewDateTable(n.now())
		answer, err := n.interp.Interpret(ctx, interpreter.ParsePrompt(raw, table))
		if err == nil {
			if q, ok := n.parseInterpreted(answer, raw, table); ok {
				return validate(q)
			}
			log.Printf("interpreter answer unusable, falling back to local rules: %q", answer)
		} else {
			log.Printf("interpreter unavailable, falling back to local rules: %v", err)
		}
	}

	q, ok := n.fallbackParse(raw)
	if !ok {
		return models.Query{}, ErrUnparseable
	}
	return validate(q)
}

func validate(q models.Query) (models.Query, error) {
	if q.From == "" || q.To == "" || strings.EqualFold(q.From, q.To) {
		return models.Query{}, ErrUnparseable
	}
	return q, nil
}

// ParseShorthand parses the structured form
// "type origin destination [date] [time]". Returns false when the text
// is not shorthand.
func ParseShorthand(raw, today string) (models.Query, bool) {
	parts := strings.Fields(raw)
	if len(parts) < 3 || len(parts) > 5 {
		return models.Query{}, false
	}

	svcType, ok := models.NormalizeServiceType(parts[0])
	if !ok {
		return models.Query{}, false
	}

	q := models.Query{
		Type: svcType,
		From: parts[1],
		To:   parts[2],
		Date: today,
	}

	for _, part := range parts[3:] {
		switch {
		case dateRe.MatchString(part):
			q.Date = part
		case timeRe.MatchString(part):
			q.Time = models.TimeSpec{Kind: models.TimeExact, Clock: normalizeClock(part)}
		default:
			return models.Query{}, false
		}
	}
	return q, true
}

// Format renders a query back to canonical shorthand
func Format(q models.Query) string {
	parts := []string{string(q.Type), q.From, q.To, q.Date}
	if q.Time.Kind != models.TimeNone && q.Time.Clock != "" {
		parts = append(parts, q.Time.Clock)
	}
	return strings.Join(parts, " ")
}

// parseInterpreted validates the interpreter's shorthand answer,
// repairing a malformed date from the relative phrases in the original
// text when possible
func (n *Normalizer) parseInterpreted(answer, raw string, table interpreter.DateTable) (models.Query, bool) {
	answer = interpreter.StripCodeFence(answer)
	parts := strings.Fields(answer)
	if len(parts) < 3 || len(parts) > 5 {
		return models.Query{}, false
	}

	if len(parts) >= 4 && !dateRe.MatchString(parts[3]) && !timeRe.MatchString(parts[3]) {
		if date, ok := table.Resolve(raw); ok {
			parts[3] = date
		} else {
			parts[3] = table.Today
		}
	}

	return ParseShorthand(strings.Join(parts, " "), table.Today)
}

// fallbackParse applies the deterministic natural-language rules
func (n *Normalizer) fallbackParse(raw string) (models.Query, bool) {
	q := models.Query{Type: extractServiceType(raw)}

	from, to, ok := extractRoute(raw)
	if !ok {
		return models.Query{}, false
	}
	q.From = from
	q.To = to
	q.Date = extractDate(raw, n.now())
	q.Time = extractTime(raw)

	return q, true
}

// serviceTypeWords is checked in order; the first match wins and
// anything else is an ordinary service
var serviceTypeWords = []struct {
	word string
	t    models.ServiceType
}{
	{"high-speed", models.TypeHighSpeed},
	{"high speed", models.TypeHighSpeed},
	{"bullet", models.TypeHighSpeed},
	{"hsr", models.TypeHighSpeed},
	{"inter-city", models.TypeInterCity},
	{"intercity", models.TypeInterCity},
	{"inter city", models.TypeInterCity},
}

func extractServiceType(text string) models.ServiceType {
	lower := strings.ToLower(text)
	for _, s := range serviceTypeWords {
		if strings.Contains(lower, s.word) {
			return s.t
		}
	}
	return models.TypeOrdinary
}

// dateTimeKeywords are padded with spaces before route extraction so
// they cannot bleed into captured city names, then stripped from the
// captures afterwards
var dateTimeKeywords = []string{
	"day after tomorrow", "tomorrow", "today", "tonight",
	"this morning", "morning", "noon", "afternoon", "evening", "dusk", "night",
	"o'clock", "around", "or so", "nearby", "about",
}

// cityStopwords end a captured city name; anything from the stopword on
// is a trailing fragment, not part of the station
var cityStopwords = map[string]bool{
	"train": true, "trains": true, "ticket": true, "tickets": true,
	"by": true, "the": true, "a": true, "an": true, "at": true, "on": true,
	"in": true, "for": true, "of": true, "this": true, "next": true,
	"please": true, "leaving": true, "departing": true, "via": true, "through": true,
}

var (
	fromToRe = regexp.MustCompile(`(?i)\bfrom\s+(.+?)\s+to\s+(.+)$`)
	aToBRe   = regexp.MustCompile(`(?i)\b(\S+)\s+(?:to|toward|towards|until)\s+(.+)$`)
)

func extractRoute(text string) (from, to string, ok bool) {
	padded := text
	for _, kw := range dateTimeKeywords {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw))
		padded = re.ReplaceAllString(padded, " "+kw+" ")
	}

	m := fromToRe.FindStringSubmatch(padded)
	if m == nil {
		m = aToBRe.FindStringSubmatch(padded)
	}
	if m == nil {
		return "", "", false
	}

	from = cleanCity(m[1])
	to = cleanCity(m[2])
	if from == "" || to == "" {
		return "", "", false
	}
	return from, to, true
}

// cleanCity strips date/time keywords, service-type words, digits, and
// any trailing possessive fragment from a captured city name
func cleanCity(capture string) string {
	capture = strings.ToLower(capture)
	for _, kw := range dateTimeKeywords {
		capture = strings.ReplaceAll(capture, kw, " ")
	}
	for _, s := range serviceTypeWords {
		capture = strings.ReplaceAll(capture, s.word, " ")
	}

	var kept []string
	for _, token := range strings.Fields(capture) {
		if idx := strings.Index(token, "'s"); idx >= 0 {
			if idx > 0 {
				kept = append(kept, token[:idx])
			}
			break
		}
		if cityStopwords[token] || strings.ContainsAny(token, "0123456789") {
			break
		}
		kept = append(kept, token)
	}
	return titleCase(strings.Join(kept, " "))
}

func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = strings.ToUpper(f[:1]) + f[1:]
	}
	return strings.Join(fields, " ")
}

var inlineDateRe = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)

func extractDate(text string, now time.Time) string {
	if m := inlineDateRe.FindString(text); m != "" {
		return m
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "day after tomorrow"):
		return now.AddDate(0, 0, 2).Format("2006-01-02")
	case strings.Contains(lower, "tomorrow"):
		return now.AddDate(0, 0, 1).Format("2006-01-02")
	}
	return now.Format("2006-01-02")
}

var (
	clockTextRe  = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	hourOnlyRe   = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:o'clock|oclock|am|pm)`)
	fuzzyWords   = []string{"around", "or so", "nearby", "roughly", "about"}
	lateQualRe   = regexp.MustCompile(`(?i)\b(afternoon|evening|tonight|night|pm)\b`)
	daypartTable = []struct {
		word    string
		daypart models.Daypart
		anchor  string
	}{
		{"morning", models.DaypartMorning, "09:00"},
		{"noon", models.DaypartNoon, "12:00"},
		{"afternoon", models.DaypartAfternoon, "14:00"},
		{"dusk", models.DaypartDusk, "19:00"},
		{"evening", models.DaypartDusk, "19:00"},
		{"tonight", models.DaypartNight, "19:00"},
		{"night", models.DaypartNight, "19:00"},
	}
)

func extractTime(text string) models.TimeSpec {
	lower := strings.ToLower(text)

	clock := ""
	if m := clockTextRe.FindStringSubmatch(lower); m != nil {
		clock = correctTwelveHour(m[1]+":"+m[2], lower)
	} else if m := hourOnlyRe.FindStringSubmatch(lower); m != nil {
		clock = correctTwelveHour(m[1]+":00", lower)
	}

	if clock != "" {
		kind := models.TimeExact
		for _, w := range fuzzyWords {
			if strings.Contains(lower, w) {
				kind = models.TimeApprox
				break
			}
		}
		return models.TimeSpec{Kind: kind, Clock: clock}
	}

	for _, d := range daypartTable {
		if d.daypart == models.DaypartAfternoon && strings.Contains(lower, "evening") {
			continue
		}
		if strings.Contains(lower, d.word) {
			return models.TimeSpec{Kind: models.TimeDaypart, Daypart: d.daypart, Clock: d.anchor}
		}
	}
	return models.TimeSpec{}
}

// correctTwelveHour shifts an hour below 12 into the afternoon when the
// text carries an afternoon or evening qualifier
func correctTwelveHour(clock, lower string) string {
	minutes, err := models.ClockMinutes(clock)
	if err != nil {
		return ""
	}
	if minutes < 12*60 && lateQualRe.MatchString(lower) {
		minutes += 12 * 60
	}
	return formatClock(minutes)
}

func normalizeClock(clock string) string {
	minutes, err := models.ClockMinutes(clock)
	if err != nil {
		return clock
	}
	return formatClock(minutes)
}

func formatClock(minutes int) string {
	return time.Date(0, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format("15:04")
}

// LooksLikeTicketQuery is the deterministic classification fallback:
// a service-type word plus a direction word
func LooksLikeTicketQuery(text string) bool {
	lower := strings.ToLower(text)

	hasType := strings.Contains(lower, "train") || strings.Contains(lower, "ordinary")
	for _, s := range serviceTypeWords {
		if strings.Contains(lower, s.word) {
			hasType = true
			break
		}
	}
	if !hasType {
		return false
	}

	return strings.Contains(lower, " to ") || strings.Contains(lower, "from ") ||
		strings.Contains(lower, "toward") || strings.Contains(lower, "until ")
}

// ExtractHubHint finds an explicitly named transfer hub ("via X",
// "through X") against a candidate hub list. Returns the empty string
// when no hub is named.
func ExtractHubHint(text string, hubs []string) string {
	lower := strings.ToLower(text)
	for _, hub := range hubs {
		h := strings.ToLower(hub)
		if strings.Contains(lower, "via "+h) ||
			strings.Contains(lower, "through "+h) ||
			strings.Contains(lower, "transfer at "+h) ||
			strings.Contains(lower, "change at "+h) {
			return hub
		}
	}
	return ""
}
