package transfer

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/railquery/railquery_core/internal/filter"
	"github.com/railquery/railquery_core/internal/models"
)

var (
	// ErrNoHubs reports that hub selection produced no candidates.
	ErrNoHubs = errors.New("no transfer hubs available for this route")
	// ErrNoFeasibleRoute reports that no hub yielded a workable pairing.
	ErrNoFeasibleRoute = errors.New("no feasible transfer route found")
)

const (
	// minTransferMinutes is the shortest acceptable change window.
	minTransferMinutes = 30
	// maxTransferMinutes is the longest acceptable change window.
	maxTransferMinutes = 180
	// maxItineraries caps the pooled result list.
	maxItineraries = 10
)

// SegmentFetcher retrieves direct segments for one leg. Satisfied by
// source.Client.
type SegmentFetcher interface {
	FetchSegments(ctx context.Context, svcType models.ServiceType, from, to, date string) ([]models.Segment, error)
}

// Router composes two-leg itineraries through candidate transfer hubs.
type Router struct {
	fetcher SegmentFetcher
	hubs    HubSource
}

func NewRouter(fetcher SegmentFetcher, hubs HubSource) *Router {
	return &Router{fetcher: fetcher, hubs: hubs}
}

// Route finds two-leg itineraries from q.From to q.To. When hubHint is
// non-empty it is used as the sole candidate hub; otherwise the hub
// source decides. The result is sorted ascending by total duration and
// capped at ten entries.
func (r *Router) Route(ctx context.Context, q models.Query, hubHint string) ([]models.Itinerary, error) {
	var hubs []string
	if hubHint != "" {
		hubs = []string{hubHint}
	} else {
		var err error
		hubs, err = r.hubs.HubsFor(ctx, q.From, q.To)
		if err != nil {
			return nil, err
		}
	}
	if len(hubs) == 0 {
		return nil, ErrNoHubs
	}

	// Fan out over candidate hubs; each goroutine does its two leg
	// fetches sequentially.
	resultChan := make(chan []models.Itinerary, len(hubs))
	var wg sync.WaitGroup

	for _, hub := range hubs {
		wg.Add(1)
		go func(hub string) {
			defer wg.Done()
			resultChan <- r.routeViaHub(ctx, q, hub)
		}(hub)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var pool []models.Itinerary
	for routes := range resultChan {
		pool = append(pool, routes...)
	}

	if len(pool) == 0 {
		return nil, ErrNoFeasibleRoute
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].TotalMinutes < pool[j].TotalMinutes
	})
	if len(pool) > maxItineraries {
		pool = pool[:maxItineraries]
	}
	return pool, nil
}

// routeViaHub fetches both legs through one hub and pairs them. A
// failed or empty leg skips the hub; errors are logged, not returned,
// so one bad hub cannot fail the whole query.
func (r *Router) routeViaHub(ctx context.Context, q models.Query, hub string) []models.Itinerary {
	firstLeg, err := r.fetcher.FetchSegments(ctx, q.Type, q.From, hub, q.Date)
	if err != nil {
		log.Printf("transfer: leg %s -> %s failed: %v", q.From, hub, err)
		return nil
	}
	firstLeg = filter.Apply(firstLeg, q.Type, q.Time)
	if len(firstLeg) == 0 {
		return nil
	}

	// The second leg carries no time constraint; continuity is
	// enforced by the transfer window below.
	secondLeg, err := r.fetcher.FetchSegments(ctx, q.Type, hub, q.To, q.Date)
	if err != nil {
		log.Printf("transfer: leg %s -> %s failed: %v", hub, q.To, err)
		return nil
	}
	secondLeg = filter.Apply(secondLeg, q.Type, models.TimeSpec{})
	if len(secondLeg) == 0 {
		return nil
	}

	var routes []models.Itinerary
	for i := range firstLeg {
		arrive, err := models.ClockMinutes(firstLeg[i].Arrive)
		if err != nil {
			continue
		}
		for j := range secondLeg {
			depart, err := models.ClockMinutes(secondLeg[j].Depart)
			if err != nil {
				continue
			}

			transferMinutes := depart - arrive
			if transferMinutes < 0 {
				// Overnight continuation: the second leg runs
				// the next day.
				transferMinutes += 24 * 60
			}
			if transferMinutes < minTransferMinutes || transferMinutes > maxTransferMinutes {
				continue
			}

			routes = append(routes, models.Itinerary{
				FirstLeg:        firstLeg[i],
				SecondLeg:       secondLeg[j],
				Hub:             hub,
				TransferMinutes: transferMinutes,
				TotalPrice:      models.ReferenceFare(firstLeg[i].Fares) + models.ReferenceFare(secondLeg[j].Fares),
				TotalMinutes:    totalMinutes(firstLeg[i], secondLeg[j], transferMinutes),
			})
		}
	}
	return routes
}

func totalMinutes(first, second models.Segment, transferMinutes int) int {
	return models.RunTimeMinutes(first.RunTime) + transferMinutes + models.RunTimeMinutes(second.RunTime)
}
