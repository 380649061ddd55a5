package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ServiceType represents the canonical train service class
type ServiceType string

const (
	TypeHighSpeed ServiceType = "high-speed"
	TypeInterCity ServiceType = "inter-city"
	TypeOrdinary  ServiceType = "ordinary"
)

// serviceSynonyms maps provider and user spellings to canonical service types
var serviceSynonyms = map[string]ServiceType{
	"high-speed": TypeHighSpeed,
	"highspeed":  TypeHighSpeed,
	"high speed": TypeHighSpeed,
	"hsr":        TypeHighSpeed,
	"bullet":     TypeHighSpeed,
	"g-train":    TypeHighSpeed,
	"inter-city": TypeInterCity,
	"intercity":  TypeInterCity,
	"d-train":    TypeInterCity,
	"ordinary":   TypeOrdinary,
	"regular":    TypeOrdinary,
	"normal":     TypeOrdinary,
	"express":    TypeOrdinary,
	"k-train":    TypeOrdinary,
	"hard-seat":  TypeOrdinary,
	"slow":       TypeOrdinary,
}

// NormalizeServiceType resolves a raw service label to one of the three
// canonical types. Returns false if the label is not a known synonym.
func NormalizeServiceType(raw string) (ServiceType, bool) {
	t, ok := serviceSynonyms[strings.ToLower(strings.TrimSpace(raw))]
	return t, ok
}

// TimeKind distinguishes how a query constrains departure time
type TimeKind int

const (
	TimeNone TimeKind = iota
	TimeExact
	TimeApprox
	TimeDaypart
)

// Daypart is a coarse named time-of-day range
type Daypart string

const (
	DaypartMorning   Daypart = "morning"
	DaypartNoon      Daypart = "noon"
	DaypartAfternoon Daypart = "afternoon"
	DaypartDusk      Daypart = "dusk"
	DaypartNight     Daypart = "night"
)

// Window returns the inclusive departure-clock window for a daypart,
// in minutes since midnight. Dusk and night deliberately overlap with
// their neighbours; the daypart chosen by the normalizer is authoritative.
func (d Daypart) Window() (start, end int) {
	switch d {
	case DaypartMorning:
		return 6 * 60, 12 * 60
	case DaypartNoon:
		return 11 * 60, 13 * 60
	case DaypartAfternoon:
		return 12 * 60, 18 * 60
	case DaypartDusk:
		return 17 * 60, 19 * 60
	case DaypartNight:
		return 18 * 60, 23*60 + 59
	}
	return 0, 23*60 + 59
}

// TimeSpec is the resolved time constraint of a query.
// Clock holds the exact or approximate anchor ("HH:MM") when Kind
// is TimeExact or TimeApprox; Daypart is set when Kind is TimeDaypart.
type TimeSpec struct {
	Kind    TimeKind
	Clock   string
	Daypart Daypart
}

// Query is a canonical resolved ticket request
type Query struct {
	Type ServiceType
	From string
	To   string
	Date string // YYYY-MM-DD
	Time TimeSpec
}

// Fare is one seat-class price entry on a segment
type Fare struct {
	SeatName  string  `json:"seatname"`
	Price     float64 `json:"seatprice"`
	Inventory int     `json:"seatinventory"`
	Bookable  bool    `json:"bookable"`
}

// Segment is one direct travel offering between two stations.
// Immutable once fetched from the provider.
type Segment struct {
	TrainNumber string      `json:"trainumber"`
	TrainType   ServiceType `json:"traintype"`
	From        string      `json:"departstation"`
	To          string      `json:"arrivestation"`
	Depart      string      `json:"departtime"` // HH:MM
	Arrive      string      `json:"arrivetime"` // HH:MM
	RunTime     string      `json:"runtime"`    // e.g. "4 hours 31 minutes"
	Fares       []Fare      `json:"ticket_info"`
}

// Itinerary is a two-leg transfer journey through a hub station
type Itinerary struct {
	FirstLeg        Segment `json:"first_leg"`
	SecondLeg       Segment `json:"second_leg"`
	Hub             string  `json:"transfer_station"`
	TransferMinutes int     `json:"transfer_time"`
	TotalPrice      float64 `json:"total_price"`
	TotalMinutes    int     `json:"total_runtime"`
}

// SeatSecondClass is the reference seat class used for total pricing
const SeatSecondClass = "second class"

// ReferenceFare returns the second-class fare of a segment, or the first
// priced fare when no second-class entry exists, or 0 when nothing is priced.
func ReferenceFare(fares []Fare) float64 {
	for _, f := range fares {
		if strings.EqualFold(f.SeatName, SeatSecondClass) && f.Price > 0 {
			return f.Price
		}
	}
	for _, f := range fares {
		if f.Price > 0 {
			return f.Price
		}
	}
	return 0
}

// Record is one row of a result set, either a direct segment or a
// transfer itinerary. The session store and refinement strategies
// operate on records without caring which kind they hold.
type Record interface {
	// Price is the reference total price of the record
	Price() float64
	// Minutes is the total travel time in minutes
	Minutes() int
	// TrainNumbers lists the train identifiers the record involves
	TrainNumbers() []string
	// TransferHub is the hub station name, empty for direct segments
	TransferHub() string
}

func (s *Segment) Price() float64 {
	return ReferenceFare(s.Fares)
}

func (s *Segment) Minutes() int {
	return RunTimeMinutes(s.RunTime)
}

func (s *Segment) TrainNumbers() []string {
	return []string{s.TrainNumber}
}

func (s *Segment) TransferHub() string {
	return ""
}

func (it *Itinerary) Price() float64 {
	return it.TotalPrice
}

func (it *Itinerary) Minutes() int {
	return it.TotalMinutes
}

func (it *Itinerary) TrainNumbers() []string {
	return []string{it.FirstLeg.TrainNumber, it.SecondLeg.TrainNumber}
}

func (it *Itinerary) TransferHub() string {
	return it.Hub
}

var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ClockMinutes converts an "HH:MM" clock string to minutes since midnight
func ClockMinutes(clock string) (int, error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(clock))
	if m == nil {
		return 0, fmt.Errorf("invalid clock time: %q", clock)
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	if hours > 23 || minutes > 59 {
		return 0, fmt.Errorf("clock time out of range: %q", clock)
	}
	return hours*60 + minutes, nil
}

var (
	runHoursRe   = regexp.MustCompile(`(\d+)\s*h(?:our)?`)
	runMinutesRe = regexp.MustCompile(`(\d+)\s*m(?:in)?`)
)

// RunTimeMinutes parses a provider run-time string such as
// "4 hours 31 minutes" or "2h05m" into total minutes.
// Missing components count as zero.
func RunTimeMinutes(runtime string) int {
	hours := 0
	minutes := 0
	if m := runHoursRe.FindStringSubmatch(runtime); m != nil {
		hours, _ = strconv.Atoi(m[1])
	}
	if m := runMinutesRe.FindStringSubmatch(runtime); m != nil {
		minutes, _ = strconv.Atoi(m[1])
	}
	return hours*60 + minutes
}
