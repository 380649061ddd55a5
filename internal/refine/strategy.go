package refine

import (
	"regexp"
	"sort"
	"strings"

	"github.com/railquery/railquery_core/internal/models"
	"github.com/railquery/railquery_core/internal/transfer"
)

// Strategy is one deterministic refinement rule. Matches inspects the
// instruction; Apply narrows or reorders the record set. Strategies
// always work against the original result set of the last query, never
// against a previously refined view.
type Strategy interface {
	Name() string
	Matches(instruction string) bool
	Apply(instruction string, records []models.Record) []models.Record
}

// Apply runs the instruction through the strategy list in order and
// returns the first matching strategy's output. The second return is
// false when no strategy recognises the instruction.
func Apply(instruction string, records []models.Record) ([]models.Record, bool) {
	instruction = strings.ToLower(strings.TrimSpace(instruction))
	for _, s := range AllStrategies() {
		if s.Matches(instruction) {
			return s.Apply(instruction, records), true
		}
	}
	return nil, false
}

// AllStrategies returns the refinement rules in priority order. Hub
// selection runs first so "via Wuhan, cheapest" narrows by hub rather
// than collapsing to a single price row.
func AllStrategies() []Strategy {
	return []Strategy{
		&HubStrategy{},
		&PriceStrategy{},
		&DurationStrategy{},
		&TransferWaitStrategy{},
		&TrainNumberStrategy{},
	}
}

// GetStrategy returns a strategy by name.
func GetStrategy(name string) Strategy {
	for _, s := range AllStrategies() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// HubStrategy keeps itineraries that transfer at a hub named in the
// instruction.
type HubStrategy struct{}

func (s *HubStrategy) Name() string { return "hub" }

func (s *HubStrategy) Matches(instruction string) bool {
	return s.hubIn(instruction) != ""
}

func (s *HubStrategy) Apply(instruction string, records []models.Record) []models.Record {
	hub := s.hubIn(instruction)
	var out []models.Record
	for _, r := range records {
		if r.TransferHub() == hub {
			out = append(out, r)
		}
	}
	return out
}

func (s *HubStrategy) hubIn(instruction string) string {
	for _, hub := range transfer.MajorHubs {
		if strings.Contains(instruction, strings.ToLower(hub)) {
			return hub
		}
	}
	return ""
}

var (
	priceWords       = []string{"cheapest", "cheaper", "cheap", "lowest price", "low price", "least expensive", "total price", "price"}
	priceSingleWords = []string{"cheapest", "lowest price", "least expensive"}
)

// PriceStrategy sorts by total price; a superlative like "cheapest"
// collapses the set to the single minimum-price record.
type PriceStrategy struct{}

func (s *PriceStrategy) Name() string { return "price" }

func (s *PriceStrategy) Matches(instruction string) bool {
	return containsAny(instruction, priceWords)
}

func (s *PriceStrategy) Apply(instruction string, records []models.Record) []models.Record {
	sorted := sortedBy(records, func(a, b models.Record) bool {
		return a.Price() < b.Price()
	})
	if containsAny(instruction, priceSingleWords) && len(sorted) > 1 {
		return sorted[:1]
	}
	return sorted
}

var (
	durationWords       = []string{"fastest", "faster", "quickest", "shortest time", "shortest journey", "least time", "duration"}
	durationSingleWords = []string{"fastest", "quickest", "shortest time", "shortest journey"}
)

// DurationStrategy sorts by total travel time; a superlative collapses
// to the single fastest record.
type DurationStrategy struct{}

func (s *DurationStrategy) Name() string { return "duration" }

func (s *DurationStrategy) Matches(instruction string) bool {
	return containsAny(instruction, durationWords)
}

func (s *DurationStrategy) Apply(instruction string, records []models.Record) []models.Record {
	sorted := sortedBy(records, func(a, b models.Record) bool {
		return a.Minutes() < b.Minutes()
	})
	if containsAny(instruction, durationSingleWords) && len(sorted) > 1 {
		return sorted[:1]
	}
	return sorted
}

var transferWaitWords = []string{"shortest transfer", "least waiting", "shortest wait", "transfer time", "waiting time", "less waiting"}

// TransferWaitStrategy sorts itineraries by their change window. Only
// meaningful in transfer mode; direct segments pass through untouched
// at the end of the ordering.
type TransferWaitStrategy struct{}

func (s *TransferWaitStrategy) Name() string { return "transfer_wait" }

func (s *TransferWaitStrategy) Matches(instruction string) bool {
	return containsAny(instruction, transferWaitWords)
}

func (s *TransferWaitStrategy) Apply(_ string, records []models.Record) []models.Record {
	return sortedBy(records, func(a, b models.Record) bool {
		return transferWait(a) < transferWait(b)
	})
}

func transferWait(r models.Record) int {
	if it, ok := r.(*models.Itinerary); ok {
		return it.TransferMinutes
	}
	return 1 << 20
}

var trainNumberRe = regexp.MustCompile(`\b([gdcktzGDCKTZ]\d{1,4})\b`)

// TrainNumberStrategy keeps records that include a train number named
// in the instruction, on either leg.
type TrainNumberStrategy struct{}

func (s *TrainNumberStrategy) Name() string { return "train_number" }

func (s *TrainNumberStrategy) Matches(instruction string) bool {
	return trainNumberRe.MatchString(instruction)
}

func (s *TrainNumberStrategy) Apply(instruction string, records []models.Record) []models.Record {
	wanted := strings.ToUpper(trainNumberRe.FindString(instruction))
	var out []models.Record
	for _, r := range records {
		for _, number := range r.TrainNumbers() {
			if strings.EqualFold(number, wanted) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func containsAny(instruction string, words []string) bool {
	for _, w := range words {
		if strings.Contains(instruction, w) {
			return true
		}
	}
	return false
}

func sortedBy(records []models.Record, less func(a, b models.Record) bool) []models.Record {
	out := make([]models.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
