package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/railquery/railquery_core/internal/filter"
	"github.com/railquery/railquery_core/internal/interpreter"
	"github.com/railquery/railquery_core/internal/models"
	"github.com/railquery/railquery_core/internal/query"
	"github.com/railquery/railquery_core/internal/refine"
	"github.com/railquery/railquery_core/internal/render"
	"github.com/railquery/railquery_core/internal/session"
	"github.com/railquery/railquery_core/internal/source"
	"github.com/railquery/railquery_core/internal/transfer"
)

const (
	cmdNextPage    = "+next page"
	cmdPrevPage    = "+previous page"
	refinePrefix   = "+"
	transferPrefix = "transfer+"
)

// refineSampleLimit caps how many records are serialized into the
// interpreter's refinement prompt.
const refineSampleLimit = 20

// Engine processes one conversation turn at a time: fresh queries,
// pagination commands, and refinement instructions. Every failure is
// recovered here and surfaced as a user-facing message.
type Engine struct {
	normalizer *query.Normalizer
	source     transfer.SegmentFetcher
	router     *transfer.Router
	sessions   *session.Store
	interp     interpreter.Interpreter
	now        func() time.Time
}

// New wires the engine. interp may be nil; classification and
// refinement then rely on the deterministic rules alone.
func New(normalizer *query.Normalizer, src transfer.SegmentFetcher, router *transfer.Router, sessions *session.Store, interp interpreter.Interpreter) *Engine {
	return &Engine{
		normalizer: normalizer,
		source:     src,
		router:     router,
		sessions:   sessions,
		interp:     interp,
		now:        time.Now,
	}
}

// HandleTurn processes one message in a conversation and returns the
// reply text. It never returns an error; every condition maps to a
// message.
func (e *Engine) HandleTurn(ctx context.Context, conversationID, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return HelpText()
	}

	lower := strings.ToLower(text)
	switch lower {
	case "help", "?":
		return HelpText()
	case cmdNextPage:
		return e.paginate(conversationID, session.Next)
	case cmdPrevPage:
		return e.paginate(conversationID, session.Prev)
	}

	if strings.HasPrefix(text, refinePrefix) {
		return e.refineTurn(ctx, conversationID, strings.TrimSpace(text[len(refinePrefix):]))
	}

	return e.queryTurn(ctx, conversationID, text)
}

func (e *Engine) paginate(conversationID string, dir session.Direction) string {
	if err := e.sessions.Paginate(conversationID, dir); err != nil {
		return userMessage(err)
	}
	page, err := e.sessions.CurrentPage(conversationID)
	if err != nil {
		return userMessage(err)
	}
	return render.Page(page)
}

func (e *Engine) queryTurn(ctx context.Context, conversationID, text string) string {
	wantTransfer, hubHint, queryText := detectTransfer(text)

	if !wantTransfer && !e.isTicketQuery(ctx, queryText) {
		return HelpText()
	}

	q, err := e.normalizer.Normalize(ctx, queryText)
	if err != nil {
		return userMessage(err)
	}

	if wantTransfer {
		return e.transferQuery(ctx, conversationID, q, hubHint)
	}
	return e.directQuery(ctx, conversationID, q)
}

func (e *Engine) directQuery(ctx context.Context, conversationID string, q models.Query) string {
	segments, err := e.source.FetchSegments(ctx, q.Type, q.From, q.To, q.Date)
	if err != nil {
		return userMessage(err)
	}

	segments = filter.Apply(segments, q.Type, q.Time)
	if len(segments) == 0 {
		return fmt.Sprintf("No %s trains found from %s to %s on %s.", q.Type, q.From, q.To, q.Date)
	}

	records := make([]models.Record, len(segments))
	for i := range segments {
		records[i] = &segments[i]
	}
	e.sessions.NewQuery(conversationID, q, records, session.ModeDirect)

	page, err := e.sessions.CurrentPage(conversationID)
	if err != nil {
		return userMessage(err)
	}
	return render.Page(page)
}

func (e *Engine) transferQuery(ctx context.Context, conversationID string, q models.Query, hubHint string) string {
	routes, err := e.router.Route(ctx, q, hubHint)
	if err != nil {
		return userMessage(err)
	}

	records := make([]models.Record, len(routes))
	for i := range routes {
		records[i] = &routes[i]
	}
	e.sessions.NewQuery(conversationID, q, records, session.ModeTransfer)

	page, err := e.sessions.CurrentPage(conversationID)
	if err != nil {
		return userMessage(err)
	}
	return render.Page(page)
}

func (e *Engine) refineTurn(ctx context.Context, conversationID, instruction string) string {
	if instruction == "" {
		return "Tell me the condition after the +, for example \"+cheapest\" or \"+via Wuhan\"."
	}

	originals, err := e.sessions.Originals(conversationID)
	if err != nil {
		return userMessage(err)
	}

	view, ok := e.interpretedRefine(ctx, instruction, originals)
	if !ok {
		view, ok = refine.Apply(instruction, originals)
	}
	if !ok {
		return "I couldn't understand that condition. Try \"+cheapest\", \"+fastest\", \"+via <station>\" or \"+<train number>\"."
	}

	if err := e.sessions.Refine(conversationID, view); err != nil {
		return userMessage(err)
	}
	page, err := e.sessions.CurrentPage(conversationID)
	if err != nil {
		return userMessage(err)
	}
	return render.Page(page)
}

// interpretedRefine asks the interpretation service to pick matching
// record indices. Any failure degrades silently to the deterministic
// strategies.
func (e *Engine) interpretedRefine(ctx context.Context, instruction string, originals []models.Record) ([]models.Record, bool) {
	if e.interp == nil {
		return nil, false
	}

	sample, err := refineSample(originals)
	if err != nil {
		return nil, false
	}

	answer, err := e.interp.Interpret(ctx, interpreter.RefinePrompt(instruction, sample))
	if err != nil {
		log.Printf("refinement interpretation failed, using local rules: %v", err)
		return nil, false
	}

	var parsed struct {
		Analysis string `json:"analysis"`
		Matched  []int  `json:"matched"`
	}
	if err := json.Unmarshal([]byte(interpreter.StripCodeFence(answer)), &parsed); err != nil {
		log.Printf("refinement answer unusable, using local rules: %q", answer)
		return nil, false
	}

	view := make([]models.Record, 0, len(parsed.Matched))
	for _, idx := range parsed.Matched {
		if idx < 0 || idx >= len(originals) {
			return nil, false
		}
		view = append(view, originals[idx])
	}
	if len(view) == 0 {
		return nil, false
	}

	// Superlatives still collapse to a single best record even when
	// the service returns several candidates.
	if det, ok := refine.Apply(instruction, view); ok {
		return det, true
	}
	return view, true
}

// refineSample serializes at most refineSampleLimit records into the
// simplified JSON shape the refinement prompt describes.
func refineSample(records []models.Record) (string, error) {
	type row struct {
		Index    int      `json:"index"`
		Trains   []string `json:"trainumber"`
		Hub      string   `json:"transfer_station,omitempty"`
		Price    float64  `json:"total_price"`
		Minutes  int      `json:"total_runtime"`
		Transfer int      `json:"transfer_time,omitempty"`
	}

	limit := len(records)
	if limit > refineSampleLimit {
		limit = refineSampleLimit
	}

	rows := make([]row, limit)
	for i := 0; i < limit; i++ {
		r := records[i]
		rows[i] = row{
			Index:   i,
			Trains:  r.TrainNumbers(),
			Hub:     r.TransferHub(),
			Price:   r.Price(),
			Minutes: r.Minutes(),
		}
		if it, ok := r.(*models.Itinerary); ok {
			rows[i].Transfer = it.TransferMinutes
		}
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// isTicketQuery decides whether free text is a ticket request at all.
// The interpreter gets the first word; its failures fall back to the
// keyword heuristic.
func (e *Engine) isTicketQuery(ctx context.Context, text string) bool {
	if _, ok := query.ParseShorthand(text, e.now().Format("2006-01-02")); ok {
		return true
	}
	if e.interp != nil {
		answer, err := e.interp.Interpret(ctx, interpreter.ClassifyPrompt(text))
		if err == nil {
			return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "yes")
		}
		log.Printf("classification failed, using keyword heuristic: %v", err)
	}
	return query.LooksLikeTicketQuery(text)
}

// detectTransfer decides whether the message asks for a transfer
// itinerary. The "transfer+" prefix forces it; otherwise transfer
// wording or an explicitly named hub does.
func detectTransfer(text string) (wantTransfer bool, hubHint, queryText string) {
	lower := strings.ToLower(text)

	if strings.HasPrefix(lower, transferPrefix) {
		rest := strings.TrimSpace(text[len(transferPrefix):])
		return true, query.ExtractHubHint(rest, transfer.MajorHubs), rest
	}

	hubHint = query.ExtractHubHint(text, transfer.MajorHubs)
	if hubHint != "" {
		return true, hubHint, text
	}

	if strings.Contains(lower, "transfer") || strings.Contains(lower, "change trains") || strings.Contains(lower, "connecting") {
		return true, "", text
	}

	return false, "", text
}

// HelpText describes the accepted commands.
func HelpText() string {
	return strings.TrimSpace(`
Rail ticket lookup. Send a query like:
  high-speed Beijing Shanghai 2024-06-05 09:00
  tomorrow afternoon high-speed from Chengdu to Chongqing
  transfer+high-speed Chengdu Shanghai 2024-06-05

Follow-up commands:
  "+next page" / "+previous page" to page through results
  "+<condition>" to refine, e.g. "+cheapest", "+fastest", "+via Wuhan"

Service types: high-speed, inter-city, ordinary.
`)
}

// userMessage maps an internal error to the reply shown to the user.
func userMessage(err error) string {
	var srcErr *source.SourceError

	switch {
	case errors.Is(err, query.ErrUnparseable):
		return "I couldn't work out the route. Try \"high-speed Beijing Shanghai 2024-06-05\" or \"from <city> to <city>\"."
	case errors.Is(err, source.ErrSourceUnavailable):
		return "The ticket source is not responding right now. Please try again in a moment."
	case errors.As(err, &srcErr):
		if srcErr.Msg != "" {
			return "The ticket source reported a problem: " + srcErr.Msg
		}
		return fmt.Sprintf("The ticket source reported a problem (status %d).", srcErr.Code)
	case errors.Is(err, transfer.ErrNoHubs):
		return "I don't know a transfer station for that route. Name one with \"via <station>\"."
	case errors.Is(err, transfer.ErrNoFeasibleRoute):
		return "No workable transfer route found. Try another date or name a hub with \"via <station>\"."
	case errors.Is(err, session.ErrNoPriorResults):
		return "There are no results to work with. Send a ticket query first."
	case errors.Is(err, session.ErrAlreadyFirstPage):
		return "Already on the first page."
	case errors.Is(err, session.ErrAlreadyLastPage):
		return "Already on the last page."
	case errors.Is(err, session.ErrNoMatch):
		return "Nothing matches that condition. The previous results are unchanged."
	default:
		log.Printf("unhandled turn error: %v", err)
		return "Something went wrong handling that request. Please try again."
	}
}
