package render

import (
	"fmt"
	"strings"
	"testing"

	"github.com/railquery/railquery_core/internal/models"
	"github.com/railquery/railquery_core/internal/session"
	"github.com/stretchr/testify/assert"
)

func TestPageDirectSegments(t *testing.T) {
	p := session.Page{
		Records: []models.Record{
			&models.Segment{
				TrainNumber: "G101",
				TrainType:   models.TypeHighSpeed,
				From:        "Beijing",
				To:          "Shanghai",
				Depart:      "09:00",
				Arrive:      "13:30",
				RunTime:     "4 hours 30 minutes",
				Fares: []models.Fare{
					{SeatName: "second class", Price: 553, Inventory: 12},
					{SeatName: "first class", Price: 933, Inventory: 4},
				},
			},
		},
		Number:     1,
		TotalPages: 2,
		Total:      15,
		PageSize:   10,
	}

	out := Page(p)
	assert.Contains(t, out, "1. [G101] high-speed")
	assert.Contains(t, out, "Beijing -> Shanghai")
	assert.Contains(t, out, "09:00 - 13:30")
	assert.Contains(t, out, "second class 553.0 (12 left)")
	assert.Contains(t, out, "Page 1/2")
	assert.Contains(t, out, "15 matching results")
	assert.Contains(t, out, "+next page")
}

func TestPageIndicesContinueAcrossPages(t *testing.T) {
	p := session.Page{
		Records:    []models.Record{&models.Segment{TrainNumber: "G11"}},
		Number:     2,
		TotalPages: 2,
		Total:      11,
		PageSize:   10,
	}

	out := Page(p)
	assert.Contains(t, out, "11. [G11]")
	assert.NotContains(t, out, "+next page", "last page has no next-page hint")
}

func TestPageItinerary(t *testing.T) {
	p := session.Page{
		Records: []models.Record{
			&models.Itinerary{
				FirstLeg: models.Segment{
					TrainNumber: "G1001", TrainType: models.TypeHighSpeed,
					From: "Chengdu", Depart: "08:00", Arrive: "12:00",
					Fares: []models.Fare{{SeatName: "second class", Price: 500, Inventory: 9}},
				},
				SecondLeg: models.Segment{
					TrainNumber: "G2001", TrainType: models.TypeHighSpeed,
					To: "Shanghai", Depart: "13:00", Arrive: "17:00",
					Fares: []models.Fare{{SeatName: "second class", Price: 400, Inventory: 3}},
				},
				Hub:             "Wuhan",
				TransferMinutes: 60,
				TotalPrice:      900,
				TotalMinutes:    540,
			},
		},
		Number:     1,
		TotalPages: 1,
		Total:      1,
		PageSize:   10,
	}

	out := Page(p)
	assert.Contains(t, out, "total 9h00m, total price 900.0")
	assert.Contains(t, out, "leg 1: G1001 high-speed: Chengdu(08:00) -> Wuhan(12:00)")
	assert.Contains(t, out, "transfer at Wuhan, 1h00m")
	assert.Contains(t, out, "leg 2: G2001 high-speed: Wuhan(13:00) -> Shanghai(17:00)")
}

func TestPageRowCap(t *testing.T) {
	var records []models.Record
	for i := 0; i < 25; i++ {
		records = append(records, &models.Segment{TrainNumber: fmt.Sprintf("G%d", i)})
	}
	p := session.Page{Records: records, Number: 1, TotalPages: 1, Total: 25, PageSize: 25}

	out := Page(p)
	assert.Equal(t, 20, strings.Count(out, ". [G"), "rendering caps at twenty rows")
}

func TestPageEmpty(t *testing.T) {
	assert.Equal(t, "No more results.", Page(session.Page{}))
}
