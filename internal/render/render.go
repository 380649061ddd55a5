package render

import (
	"fmt"
	"strings"

	"github.com/railquery/railquery_core/internal/models"
	"github.com/railquery/railquery_core/internal/session"
)

// maxRows caps how many records a single message renders, keeping the
// output within chat-platform message limits.
const maxRows = 20

// fareLimit caps how many fare classes are shown per leg.
const fareLimit = 3

// Page renders one page of results as a text block with a paging
// footer.
func Page(p session.Page) string {
	if len(p.Records) == 0 {
		return "No more results."
	}

	records := p.Records
	if len(records) > maxRows {
		records = records[:maxRows]
	}

	var b strings.Builder
	start := (p.Number-1)*p.PageSize + 1
	for i, r := range records {
		b.WriteString(Record(start+i, r))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nPage %d/%d", p.Number, p.TotalPages)
	fmt.Fprintf(&b, "\n%d matching results", p.Total)
	if p.Number < p.TotalPages {
		b.WriteString("\nSend \"+next page\" for more")
	}
	b.WriteString("\nSend \"+<condition>\" to refine (e.g. \"+cheapest\")")
	return b.String()
}

// Record renders a single result row with its display index.
func Record(index int, r models.Record) string {
	switch v := r.(type) {
	case *models.Segment:
		return segment(index, v)
	case *models.Itinerary:
		return itinerary(index, v)
	default:
		return fmt.Sprintf("%d. (unrenderable record)", index)
	}
}

func segment(index int, s *models.Segment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. [%s] %s\n", index, s.TrainNumber, s.TrainType)
	fmt.Fprintf(&b, "   %s -> %s\n", s.From, s.To)
	fmt.Fprintf(&b, "   %s - %s (duration %s)\n", s.Depart, s.Arrive, s.RunTime)
	if len(s.Fares) == 0 {
		b.WriteString("   no fare information\n")
		return b.String()
	}
	b.WriteString("   seats: " + fares(s.Fares, len(s.Fares)) + "\n")
	return b.String()
}

func itinerary(index int, it *models.Itinerary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. total %s, total price %.1f\n", index, clockSpan(it.TotalMinutes), it.TotalPrice)
	fmt.Fprintf(&b, "   leg 1: %s %s: %s(%s) -> %s(%s)\n",
		it.FirstLeg.TrainNumber, it.FirstLeg.TrainType,
		it.FirstLeg.From, it.FirstLeg.Depart, it.Hub, it.FirstLeg.Arrive)
	fmt.Fprintf(&b, "   transfer at %s, %s\n", it.Hub, clockSpan(it.TransferMinutes))
	fmt.Fprintf(&b, "   leg 2: %s %s: %s(%s) -> %s(%s)\n",
		it.SecondLeg.TrainNumber, it.SecondLeg.TrainType,
		it.Hub, it.SecondLeg.Depart, it.SecondLeg.To, it.SecondLeg.Arrive)
	fmt.Fprintf(&b, "   leg 1 fares: %s\n", fares(it.FirstLeg.Fares, fareLimit))
	fmt.Fprintf(&b, "   leg 2 fares: %s\n", fares(it.SecondLeg.Fares, fareLimit))
	return b.String()
}

func fares(list []models.Fare, limit int) string {
	if len(list) == 0 {
		return "none"
	}
	if len(list) > limit {
		list = list[:limit]
	}
	parts := make([]string, len(list))
	for i, f := range list {
		parts[i] = fmt.Sprintf("%s %.1f (%d left)", f.SeatName, f.Price, f.Inventory)
	}
	return strings.Join(parts, " | ")
}

func clockSpan(minutes int) string {
	return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
}
