package session

import (
	"errors"
	"sync"
	"time"

	"github.com/railquery/railquery_core/internal/models"
)

var (
	// ErrNoPriorResults reports that pagination or refinement was
	// attempted with no live result set.
	ErrNoPriorResults = errors.New("no prior results in this conversation")
	// ErrAlreadyFirstPage reports paginate(prev) on page 1.
	ErrAlreadyFirstPage = errors.New("already on the first page")
	// ErrAlreadyLastPage reports paginate(next) on the last page.
	ErrAlreadyLastPage = errors.New("already on the last page")
	// ErrNoMatch reports a refinement that produced nothing.
	ErrNoMatch = errors.New("no results match the refinement")
)

// Mode records which kind of query produced the current result set.
type Mode string

const (
	ModeDirect   Mode = "direct"
	ModeTransfer Mode = "transfer"
)

// Direction selects a pagination move.
type Direction int

const (
	Next Direction = iota
	Prev
)

// Page is one rendered page of the current view.
type Page struct {
	Records    []models.Record
	Number     int
	TotalPages int
	Total      int
	PageSize   int
}

type state struct {
	originalResults []models.Record
	currentView     []models.Record
	page            int
	mode            Mode
	lastQuery       models.Query
	lastActivity    time.Time
}

// Store holds per-conversation result state. Each conversation's
// turns are already serialized by the caller; the mutex only guards
// the map against concurrent conversations.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*state
	pageSize int
	idleTTL  time.Duration
	now      func() time.Time
}

func NewStore(pageSize int, idleTTL time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*state),
		pageSize: pageSize,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// NewQuery replaces the conversation's state wholesale with a fresh
// result set, resetting the view and page.
func (s *Store) NewQuery(id string, q models.Query, results []models.Record, mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := make([]models.Record, len(results))
	copy(view, results)

	s.sessions[id] = &state{
		originalResults: results,
		currentView:     view,
		page:            1,
		mode:            mode,
		lastQuery:       q,
		lastActivity:    s.now(),
	}
}

// Paginate moves the page cursor. The page is left untouched when the
// move would go out of bounds.
func (s *Store) Paginate(id string, dir Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.live(id)
	if err != nil {
		return err
	}

	switch dir {
	case Next:
		if st.page >= totalPages(len(st.currentView), s.pageSize) {
			return ErrAlreadyLastPage
		}
		st.page++
	case Prev:
		if st.page <= 1 {
			return ErrAlreadyFirstPage
		}
		st.page--
	}
	st.lastActivity = s.now()
	return nil
}

// Refine replaces the current view with a subset computed from the
// original results. An empty view is rejected and leaves the previous
// view in place.
func (s *Store) Refine(id string, view []models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.live(id)
	if err != nil {
		return err
	}
	if len(view) == 0 {
		return ErrNoMatch
	}

	st.currentView = view
	st.page = 1
	st.lastActivity = s.now()
	return nil
}

// Originals returns the untouched result set of the last query, the
// input every refinement works from.
func (s *Store) Originals(id string) ([]models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.live(id)
	if err != nil {
		return nil, err
	}
	out := make([]models.Record, len(st.originalResults))
	copy(out, st.originalResults)
	return out, nil
}

// CurrentPage returns the slice of the current view for the current
// page, with paging metadata.
func (s *Store) CurrentPage(id string) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.live(id)
	if err != nil {
		return Page{}, err
	}
	st.lastActivity = s.now()

	total := len(st.currentView)
	pages := totalPages(total, s.pageSize)
	start := (st.page - 1) * s.pageSize
	end := start + s.pageSize
	if end > total {
		end = total
	}
	if start > total {
		start = total
	}

	return Page{
		Records:    st.currentView[start:end],
		Number:     st.page,
		TotalPages: pages,
		Total:      total,
		PageSize:   s.pageSize,
	}, nil
}

// Mode reports whether the live result set came from a direct or a
// transfer query.
func (s *Store) Mode(id string) (Mode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.live(id)
	if err != nil {
		return "", err
	}
	return st.mode, nil
}

// LastQuery returns the query that produced the live result set.
func (s *Store) LastQuery(id string) (models.Query, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.live(id)
	if err != nil {
		return models.Query{}, err
	}
	return st.lastQuery, nil
}

// Clear drops the conversation's state.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// live returns the session state if it exists and has not idled out.
// Expired sessions are dropped on access.
func (s *Store) live(id string) (*state, error) {
	st, ok := s.sessions[id]
	if !ok {
		return nil, ErrNoPriorResults
	}
	if s.now().Sub(st.lastActivity) > s.idleTTL {
		delete(s.sessions, id)
		return nil, ErrNoPriorResults
	}
	return st, nil
}

func totalPages(total, pageSize int) int {
	if total == 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}
