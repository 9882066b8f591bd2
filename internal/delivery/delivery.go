// Package delivery defines a pluggable notification delivery abstraction.
//
// The scheduler hands eligible notifications to a Channel and moves on;
// transport concerns (rendering, push, retry) belong to the implementation.
package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Channel delivers a notification to the user. Implementations own their
// failure handling; the scheduler does not retry.
type Channel interface {
	// Deliver sends a notification tagged with its type. priority is the
	// numeric level from models.Priority.Level.
	Deliver(ctx context.Context, channelTag, title, content string, priority int) error
}

// SlogChannel is a Channel that logs deliveries through slog. It stands in
// for a real notification transport in development setups.
type SlogChannel struct{}

// NewSlogChannel creates a logging delivery channel.
func NewSlogChannel() *SlogChannel {
	return &SlogChannel{}
}

// Deliver logs the notification and always succeeds.
func (c *SlogChannel) Deliver(ctx context.Context, channelTag, title, content string, priority int) error {
	slog.Info("SlogChannel.Deliver: notification delivered",
		"tag", channelTag, "title", title, "priority", priority)
	return nil
}

// Delivered is one recorded hand-off, used by the Recorder test channel.
type Delivered struct {
	Tag      string
	Title    string
	Content  string
	Priority int
	At       time.Time
}

// Recorder is an in-memory Channel for tests. It records every delivery and
// can be primed to fail.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivered
	// Err, when set, is returned by every Deliver call.
	Err error
}

// NewRecorder creates an empty recording channel.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Deliver records the notification.
func (r *Recorder) Deliver(ctx context.Context, channelTag, title, content string, priority int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.deliveries = append(r.deliveries, Delivered{
		Tag:      channelTag,
		Title:    title,
		Content:  content,
		Priority: priority,
		At:       time.Now(),
	})
	return nil
}

// Deliveries returns a copy of everything delivered so far.
func (r *Recorder) Deliveries() []Delivered {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Delivered, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}
