package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"spendsmart/internal/alerts"
	"spendsmart/internal/mailer"
)

// recordingDispatcher captures dispatched budget checks.
type recordingDispatcher struct {
	mu       sync.Mutex
	requests []alerts.Request
}

func (d *recordingDispatcher) Dispatch(_ context.Context, req alerts.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
}

func (d *recordingDispatcher) all() []alerts.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]alerts.Request, len(d.requests))
	copy(out, d.requests)
	return out
}

// fakeSender captures outgoing mail and optionally fails.
type fakeSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg mailer.Message) (*mailer.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	if s.err != nil {
		return &mailer.Receipt{Rejected: []string{msg.To}}, s.err
	}
	return &mailer.Receipt{Accepted: []string{msg.To}}, nil
}

func (s *fakeSender) messages() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mailer.Message, len(s.sent))
	copy(out, s.sent)
	return out
}

var errSMTPDown = errors.New("smtp: connection refused")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
