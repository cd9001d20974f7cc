package session

import (
	"context"
	"sync"
	"time"

	"StockForecast/internal/collector"
	"StockForecast/internal/registry"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next page render.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Session is the state of one browser or CLI run: its ticker list and the
// loader cache. Callers hold Lock for the whole of an interaction.
type Session struct {
	ID       string
	Registry *registry.Registry
	Loader   *collector.Loader

	mu      sync.Mutex
	flash   *Flash
	created time.Time
}

// Lock serializes interactions on the session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// AddTicker validates candidate against the provider and appends it. Call with
// the session locked.
func (s *Session) AddTicker(ctx context.Context, candidate string) (string, error) {
	return s.Registry.Add(ctx, candidate, s.Loader)
}

// SetFlash stores a message for the next render. Call with the session locked.
func (s *Session) SetFlash(kind, msg string) {
	s.flash = &Flash{Kind: kind, Message: msg}
}

// TakeFlash returns and clears the pending message. Call with the session locked.
func (s *Session) TakeFlash() *Flash {
	f := s.flash
	s.flash = nil
	return f
}

// Created returns when the session was started.
func (s *Session) Created() time.Time { return s.created }
