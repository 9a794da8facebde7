package search

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is the cancellation cause of a request replaced by a newer one
// of the same session.
var ErrSuperseded = errors.New("superseded by a newer request")

type flight struct {
	cancel context.CancelCauseFunc
}

// sessions keeps at most one in-flight call per session id. Starting a new
// call cancels the previous one (last request wins).
type sessions struct {
	mu       sync.Mutex
	inflight map[string]*flight
}

func newSessions() *sessions {
	return &sessions{inflight: make(map[string]*flight)}
}

// begin derives the call context for id. The returned func must be called when
// the call completes. An empty id is never superseded.
func (s *sessions) begin(ctx context.Context, id string) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	if id == "" {
		return ctx, func() { cancel(nil) }
	}

	f := &flight{cancel: cancel}
	s.mu.Lock()
	if prev, ok := s.inflight[id]; ok {
		prev.cancel(ErrSuperseded)
	}
	s.inflight[id] = f
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		if s.inflight[id] == f {
			delete(s.inflight, id)
		}
		s.mu.Unlock()
		cancel(nil)
	}
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}
