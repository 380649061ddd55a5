package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/railquery/railquery_core/internal/config"
	"github.com/railquery/railquery_core/internal/models"
)

// ErrSourceUnavailable means the ticket provider could not be reached
// within the request budget
var ErrSourceUnavailable = errors.New("ticket source unavailable")

// SourceError is a provider-side failure: a non-2xx status, a malformed
// body, or an error code inside the envelope
type SourceError struct {
	Code int
	Msg  string
}

func (e *SourceError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("ticket source error %d: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("ticket source error %d", e.Code)
}

// SegmentCache is the optional read-through cache in front of the
// provider. A miss is (nil, nil).
type SegmentCache interface {
	GetSegments(ctx context.Context, key string) ([]models.Segment, error)
	SetSegments(ctx context.Context, key string, segments []models.Segment) error
}

// KeyFunc builds the cache key for a fetch
type KeyFunc func(svcType models.ServiceType, from, to, date string) string

// Client fetches raw direct-segment candidates from the ticket
// provider. One HTTP call per fetch, no retries; retry policy belongs
// to the caller and here is "none".
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      SegmentCache
	cacheKey   KeyFunc
}

// NewClient builds a provider client from injected configuration.
// cache may be nil.
func NewClient(cfg config.ProviderConfig, cache SegmentCache, key KeyFunc) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
		cacheKey:   key,
	}
}

// envelope is the provider's response wrapper
type envelope struct {
	Code int          `json:"code"`
	Msg  string       `json:"msg"`
	Data []rawSegment `json:"data"`
}

type rawSegment struct {
	TrainNumber string    `json:"trainumber"`
	TrainType   string    `json:"traintype"`
	From        string    `json:"departstation"`
	To          string    `json:"arrivestation"`
	Depart      string    `json:"departtime"`
	Arrive      string    `json:"arrivetime"`
	RunTime     string    `json:"runtime"`
	Fares       []rawFare `json:"ticket_info"`
}

type rawFare struct {
	SeatName  string     `json:"seatname"`
	Price     flexNumber `json:"seatprice"`
	Inventory flexInt    `json:"seatinventory"`
	Bookable  string     `json:"bookable"`
}

// flexNumber tolerates prices sent as either JSON numbers or strings
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = flexNumber(v)
	return nil
}

// flexInt tolerates inventory counts sent as numbers or strings
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		*n = 0
		return nil
	}
	*n = flexInt(v)
	return nil
}

// FetchSegments performs a single provider query for direct segments.
// The provider's "time" parameter carries the travel date; departure
// time constraints are applied locally by the segment filter.
func (c *Client) FetchSegments(ctx context.Context, svcType models.ServiceType, from, to, date string) ([]models.Segment, error) {
	var key string
	if c.cache != nil && c.cacheKey != nil {
		key = c.cacheKey(svcType, from, to, date)
		if cached, err := c.cache.GetSegments(ctx, key); err != nil {
			log.Printf("segment cache read failed: %v", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	params := url.Values{}
	params.Set("from", from)
	params.Set("to", to)
	params.Set("time", date)
	params.Set("type", string(svcType))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &SourceError{Code: resp.StatusCode}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &SourceError{Code: resp.StatusCode, Msg: fmt.Sprintf("malformed body: %v", err)}
	}
	if env.Code != 200 {
		return nil, &SourceError{Code: env.Code, Msg: env.Msg}
	}

	segments := make([]models.Segment, 0, len(env.Data))
	for _, raw := range env.Data {
		segments = append(segments, raw.toSegment())
	}

	if c.cache != nil && key != "" {
		if err := c.cache.SetSegments(ctx, key, segments); err != nil {
			log.Printf("segment cache write failed: %v", err)
		}
	}

	return segments, nil
}

func (r rawSegment) toSegment() models.Segment {
	svcType, ok := models.NormalizeServiceType(r.TrainType)
	if !ok {
		svcType = models.ServiceType(r.TrainType)
	}

	fares := make([]models.Fare, 0, len(r.Fares))
	for _, f := range r.Fares {
		fares = append(fares, models.Fare{
			SeatName:  f.SeatName,
			Price:     float64(f.Price),
			Inventory: int(f.Inventory),
			Bookable:  strings.EqualFold(f.Bookable, "yes") || strings.EqualFold(f.Bookable, "available"),
		})
	}

	return models.Segment{
		TrainNumber: r.TrainNumber,
		TrainType:   svcType,
		From:        r.From,
		To:          r.To,
		Depart:      r.Depart,
		Arrive:      r.Arrive,
		RunTime:     r.RunTime,
		Fares:       fares,
	}
}
