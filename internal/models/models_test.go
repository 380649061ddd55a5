package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeServiceType(t *testing.T) {
	tests := []struct {
		raw      string
		expected ServiceType
		ok       bool
	}{
		{"high-speed", TypeHighSpeed, true},
		{"HSR", TypeHighSpeed, true},
		{"bullet", TypeHighSpeed, true},
		{"inter-city", TypeInterCity, true},
		{"intercity", TypeInterCity, true},
		{"K-train", TypeOrdinary, true},
		{"express", TypeOrdinary, true},
		{"hard-seat", TypeOrdinary, true},
		{" ordinary ", TypeOrdinary, true},
		{"maglev", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeServiceType(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestClockMinutes(t *testing.T) {
	t.Run("valid clocks", func(t *testing.T) {
		tests := []struct {
			clock    string
			expected int
		}{
			{"00:00", 0},
			{"09:00", 540},
			{"9:05", 545},
			{"23:59", 1439},
		}
		for _, tt := range tests {
			got, err := ClockMinutes(tt.clock)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		}
	})

	t.Run("invalid clocks", func(t *testing.T) {
		for _, clock := range []string{"", "25:00", "12:60", "noonish", "12.30"} {
			_, err := ClockMinutes(clock)
			assert.Error(t, err, "clock %q should not parse", clock)
		}
	})
}

func TestRunTimeMinutes(t *testing.T) {
	tests := []struct {
		runtime  string
		expected int
	}{
		{"4 hours 31 minutes", 271},
		{"1 hour 5 minutes", 65},
		{"2h05m", 125},
		{"45 minutes", 45},
		{"3 hours", 180},
		{"", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		t.Run(tt.runtime, func(t *testing.T) {
			assert.Equal(t, tt.expected, RunTimeMinutes(tt.runtime))
		})
	}
}

func TestReferenceFare(t *testing.T) {
	t.Run("prefers second class", func(t *testing.T) {
		fares := []Fare{
			{SeatName: "Business Class", Price: 900},
			{SeatName: "Second Class", Price: 154},
			{SeatName: "First Class", Price: 260},
		}
		assert.Equal(t, 154.0, ReferenceFare(fares))
	})

	t.Run("falls back to first priced fare", func(t *testing.T) {
		fares := []Fare{
			{SeatName: "Standing", Price: 0},
			{SeatName: "First Class", Price: 260},
		}
		assert.Equal(t, 260.0, ReferenceFare(fares))
	})

	t.Run("no priced fare yields zero", func(t *testing.T) {
		assert.Equal(t, 0.0, ReferenceFare(nil))
		assert.Equal(t, 0.0, ReferenceFare([]Fare{{SeatName: "Standing"}}))
	})
}

func TestDaypartWindow(t *testing.T) {
	tests := []struct {
		daypart Daypart
		start   int
		end     int
	}{
		{DaypartMorning, 360, 720},
		{DaypartNoon, 660, 780},
		{DaypartAfternoon, 720, 1080},
		{DaypartDusk, 1020, 1140},
		{DaypartNight, 1080, 1439},
	}

	for _, tt := range tests {
		t.Run(string(tt.daypart), func(t *testing.T) {
			start, end := tt.daypart.Window()
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestRecordInterface(t *testing.T) {
	seg := &Segment{
		TrainNumber: "G1234",
		RunTime:     "2 hours 10 minutes",
		Fares:       []Fare{{SeatName: "Second Class", Price: 120}},
	}
	it := &Itinerary{
		FirstLeg:     Segment{TrainNumber: "G1"},
		SecondLeg:    Segment{TrainNumber: "D2"},
		Hub:          "Wuhan",
		TotalPrice:   300,
		TotalMinutes: 400,
	}

	t.Run("segment record", func(t *testing.T) {
		assert.Equal(t, 120.0, seg.Price())
		assert.Equal(t, 130, seg.Minutes())
		assert.Equal(t, []string{"G1234"}, seg.TrainNumbers())
		assert.Empty(t, seg.TransferHub())
	})

	t.Run("itinerary record", func(t *testing.T) {
		assert.Equal(t, 300.0, it.Price())
		assert.Equal(t, 400, it.Minutes())
		assert.Equal(t, []string{"G1", "D2"}, it.TrainNumbers())
		assert.Equal(t, "Wuhan", it.TransferHub())
	})
}
