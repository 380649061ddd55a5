package interpreter

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var weekdayNames = [7]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// DateTable holds today's date plus the resolved dates for every
// relative-date phrase the parser supports. Weeks are indexed
// Monday=0 through Sunday=6.
type DateTable struct {
	Today    string
	Tomorrow string
	DayAfter string
	Weekday  int // Monday=0
	ThisWeek [7]string
	NextWeek [7]string
}

// NewDateTable resolves all relative dates against the given moment.
// "Next <weekday>" always lands strictly more than 6 days ahead.
func NewDateTable(now time.Time) DateTable {
	weekday := (int(now.Weekday()) + 6) % 7 // Go weeks start on Sunday

	table := DateTable{
		Today:    now.Format(dateLayout),
		Tomorrow: now.AddDate(0, 0, 1).Format(dateLayout),
		DayAfter: now.AddDate(0, 0, 2).Format(dateLayout),
		Weekday:  weekday,
	}
	for i := 0; i < 7; i++ {
		table.ThisWeek[i] = now.AddDate(0, 0, i-weekday).Format(dateLayout)
		table.NextWeek[i] = now.AddDate(0, 0, (i-weekday+7)%7+7).Format(dateLayout)
	}
	return table
}

// Resolve maps a relative-date phrase contained in text to a concrete
// date. Returns false when no phrase is present.
func (t DateTable) Resolve(text string) (string, bool) {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "day after tomorrow"):
		return t.DayAfter, true
	case strings.Contains(lower, "tomorrow"):
		return t.Tomorrow, true
	case strings.Contains(lower, "today"):
		return t.Today, true
	}

	for i, name := range weekdayNames {
		if strings.Contains(lower, "next "+strings.ToLower(name)) {
			return t.NextWeek[i], true
		}
	}
	for i, name := range weekdayNames {
		if strings.Contains(lower, strings.ToLower(name)) {
			return t.ThisWeek[i], true
		}
	}
	return "", false
}

// ParsePrompt builds the prompt asking the interpreter to reduce a free
// text ticket query to the canonical shorthand form
func ParsePrompt(raw string, dates DateTable) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Analyze this rail ticket query and extract the key details: %q\n\n", raw)
	sb.WriteString("Reply with exactly one line in this format and nothing else:\n")
	sb.WriteString("type origin destination date [time]\n\n")
	sb.WriteString("type must be one of: high-speed, inter-city, ordinary\n")
	sb.WriteString("date must be YYYY-MM-DD, time (optional) must be HH:MM\n\n")

	fmt.Fprintf(&sb, "Today is %s (%s).\n", dates.Today, weekdayNames[dates.Weekday])
	fmt.Fprintf(&sb, "Tomorrow is %s, the day after tomorrow is %s.\n", dates.Tomorrow, dates.DayAfter)
	for i, name := range weekdayNames {
		fmt.Fprintf(&sb, "This %s is %s, next %s is %s.\n", name, dates.ThisWeek[i], name, dates.NextWeek[i])
	}

	sb.WriteString("\nExamples:\n")
	fmt.Fprintf(&sb, "Query: \"tomorrow's high-speed from Shanghai to Beijing\"\nAnswer: high-speed Shanghai Beijing %s\n", dates.Tomorrow)
	fmt.Fprintf(&sb, "Query: \"inter-city from Chengdu to Chongqing the day after tomorrow at 3 pm\"\nAnswer: inter-city Chengdu Chongqing %s 15:00\n", dates.DayAfter)

	return sb.String()
}

// ClassifyPrompt builds the yes/no prompt asking whether a message is a
// rail ticket query at all
func ClassifyPrompt(text string) string {
	return fmt.Sprintf(
		"Is the following message a rail or train ticket query? %q\nAnswer with exactly one word: yes or no.",
		text,
	)
}

// RefinePrompt builds the prompt asking the interpreter to select the
// records matching a free-text refinement instruction. sampleJSON is a
// simplified JSON array of at most ~20 records, each carrying an index.
func RefinePrompt(instruction, sampleJSON string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Filter these rail results by the instruction: %q\n\n", instruction)
	fmt.Fprintf(&sb, "Results:\n%s\n\n", sampleJSON)
	sb.WriteString("Reply with JSON only, in this shape:\n")
	sb.WriteString(`{"analysis": "...", "matched": [0, 2, 5]}`)
	sb.WriteString("\n\nmatched holds the index values of the records that satisfy the instruction.\n")
	sb.WriteString("For price instructions use total_price, for duration use total_runtime (minutes),\n")
	sb.WriteString("for transfer stations use transfer_station (exact match only),\n")
	sb.WriteString("for train numbers use the trainumber fields.\n")

	return sb.String()
}
