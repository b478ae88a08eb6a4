package usage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// EventType is a widget interaction that is counted per business.
type EventType string

const (
	EventClick   EventType = "click"
	EventMessage EventType = "message"
)

// ErrInvalidEvent rejects events without a business or with an unknown type.
var ErrInvalidEvent = errors.New("usage: invalid event")

// Event is one recorded interaction.
type Event struct {
	Business   string
	Type       EventType
	OccurredAt time.Time
}

func (e Event) validate() error {
	if strings.TrimSpace(e.Business) == "" {
		return fmt.Errorf("%w: business required", ErrInvalidEvent)
	}
	if e.Type != EventClick && e.Type != EventMessage {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, e.Type)
	}
	return nil
}

// Counts holds click and message totals.
type Counts struct {
	Clicks   int `json:"clicks"`
	Messages int `json:"messages"`
}

// DailyStat is the count for one UTC day, keyed YYYY-MM-DD.
type DailyStat struct {
	Date string `json:"date"`
	Counts
}

// EventStore persists events and aggregates them per UTC day.
type EventStore interface {
	Record(ctx context.Context, e Event) error
	// Daily returns per-day counts for business since the given instant, oldest first.
	// A zero since returns every day.
	Daily(ctx context.Context, business string, since time.Time) ([]DailyStat, error)
}

const dayLayout = "2006-01-02"

// MemoryEventStore aggregates counts in process.
type MemoryEventStore struct {
	mu    sync.Mutex
	daily map[string]map[string]*Counts
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{daily: make(map[string]map[string]*Counts)}
}

func (s *MemoryEventStore) Record(_ context.Context, e Event) error {
	if err := e.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	days, ok := s.daily[e.Business]
	if !ok {
		days = make(map[string]*Counts)
		s.daily[e.Business] = days
	}
	day := e.OccurredAt.UTC().Format(dayLayout)
	c, ok := days[day]
	if !ok {
		c = &Counts{}
		days[day] = c
	}
	switch e.Type {
	case EventClick:
		c.Clicks++
	case EventMessage:
		c.Messages++
	}
	return nil
}

func (s *MemoryEventStore) Daily(_ context.Context, business string, since time.Time) ([]DailyStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := ""
	if !since.IsZero() {
		cutoff = since.UTC().Format(dayLayout)
	}
	out := make([]DailyStat, 0, len(s.daily[business]))
	for day, c := range s.daily[business] {
		if day < cutoff {
			continue
		}
		out = append(out, DailyStat{Date: day, Counts: *c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// BusinessReport is the full history for one business.
type BusinessReport struct {
	Business   string      `json:"business"`
	Clicks     int         `json:"clicks"`
	Messages   int         `json:"messages"`
	DailyStats []DailyStat `json:"dailyStats"`
}

// Summary is the rolled-up view for dashboards.
type Summary struct {
	Business      string `json:"business"`
	TotalClicks   int    `json:"totalClicks"`
	TotalMessages int    `json:"totalMessages"`
	Last7Days     Counts `json:"last7Days"`
	Last30Days    Counts `json:"last30Days"`
}

// Tracker records widget events and builds reports from an EventStore.
type Tracker struct {
	store EventStore
	now   func() time.Time
}

func NewTracker(store EventStore) *Tracker {
	if store == nil {
		panic("usage: event store cannot be nil")
	}
	return &Tracker{store: store, now: time.Now}
}

// Log records an event at the current time.
func (t *Tracker) Log(ctx context.Context, business string, eventType EventType) error {
	e := Event{Business: strings.TrimSpace(business), Type: eventType, OccurredAt: t.now().UTC()}
	if err := e.validate(); err != nil {
		return err
	}
	if err := t.store.Record(ctx, e); err != nil {
		return fmt.Errorf("usage: record %s event: %w", eventType, err)
	}
	return nil
}

// Report returns totals and every daily stat for business.
func (t *Tracker) Report(ctx context.Context, business string) (BusinessReport, error) {
	days, err := t.store.Daily(ctx, business, time.Time{})
	if err != nil {
		return BusinessReport{}, fmt.Errorf("usage: load daily stats: %w", err)
	}
	total := sumCounts(days, "")
	return BusinessReport{Business: business, Clicks: total.Clicks, Messages: total.Messages, DailyStats: days}, nil
}

// Summarize returns totals plus the last 7 and 30 days, today included.
func (t *Tracker) Summarize(ctx context.Context, business string) (Summary, error) {
	days, err := t.store.Daily(ctx, business, time.Time{})
	if err != nil {
		return Summary{}, fmt.Errorf("usage: load daily stats: %w", err)
	}
	today := t.now().UTC()
	total := sumCounts(days, "")
	return Summary{
		Business:      business,
		TotalClicks:   total.Clicks,
		TotalMessages: total.Messages,
		Last7Days:     sumCounts(days, today.AddDate(0, 0, -6).Format(dayLayout)),
		Last30Days:    sumCounts(days, today.AddDate(0, 0, -29).Format(dayLayout)),
	}, nil
}

func sumCounts(days []DailyStat, from string) Counts {
	var c Counts
	for _, d := range days {
		if d.Date < from {
			continue
		}
		c.Clicks += d.Clicks
		c.Messages += d.Messages
	}
	return c
}
