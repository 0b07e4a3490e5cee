// Package events publishes analysis results to in-process observers.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/sentinel/internal/core/model"
)

// CoordinationAnalysisRun is published after every analysis requested through
// the network run route.
const CoordinationAnalysisRun = "coordination_analysis_run"

// Event carries the minimal payload shown to observers, plus the full report
// for subscribers that persist it.
type Event struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	GroupID   string        `json:"group_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	Payload   model.Minimal `json:"payload"`
	Report    *model.Report `json:"-"`
}

// Handler processes one event. A returned error is logged and does not stop
// delivery to other subscribers.
type Handler func(ctx context.Context, e Event) error

type subscription struct {
	id      string
	seq     uint64
	handler Handler
}

// HookManager dispatches named events to subscribers in subscription order.
// It is safe for concurrent use.
type HookManager struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	seq    uint64
	logger *slog.Logger
}

func NewHookManager(logger *slog.Logger) *HookManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &HookManager{subs: make(map[string][]subscription), logger: logger}
}

// Subscribe registers fn for the named event and returns a subscription ID.
func (h *HookManager) Subscribe(name string, fn Handler) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	id := uuid.NewString()
	h.subs[name] = append(h.subs[name], subscription{id: id, seq: h.seq, handler: fn})
	return id
}

// Unsubscribe removes a subscription. It reports whether it was found.
func (h *HookManager) Unsubscribe(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name, subs := range h.subs {
		for i, s := range subs {
			if s.id == id {
				h.subs[name] = append(subs[:i:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Trigger builds an event from report and delivers it synchronously. Handler
// panics are recovered and logged.
func (h *HookManager) Trigger(ctx context.Context, name, groupID string, report *model.Report) Event {
	e := Event{
		ID:        uuid.NewString(),
		Name:      name,
		GroupID:   groupID,
		CreatedAt: time.Now().UTC(),
		Report:    report,
	}
	if report != nil {
		e.Payload = report.Minimal()
	}

	h.mu.RLock()
	subs := append([]subscription(nil), h.subs[name]...)
	h.mu.RUnlock()
	sort.Slice(subs, func(i, j int) bool { return subs[i].seq < subs[j].seq })

	for _, s := range subs {
		if err := h.deliver(ctx, s, e); err != nil {
			h.logger.Warn("event handler failed",
				slog.String("event", name),
				slog.String("event_id", e.ID),
				slog.String("subscription", s.id),
				slog.String("error", err.Error()),
			)
		}
	}
	return e
}

func (h *HookManager) deliver(ctx context.Context, s subscription, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v\n%s", r, debug.Stack())
		}
	}()
	return s.handler(ctx, e)
}
