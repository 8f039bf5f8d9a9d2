// Package notify collects one-shot user-facing notices. Notices accumulate
// until read and are handed to the next page render, then removed.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level classifies a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notice is a single user-facing message.
type Notice struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Center holds pending notices.
type Center struct {
	mu      sync.Mutex
	now     func() time.Time
	notices []Notice
}

// Option modifies a Center.
type Option func(*Center)

// WithNowTime sets the clock (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Center) { c.now = nowFunc }
}

// NewCenter returns an empty notice center.
func NewCenter(options ...Option) *Center {
	c := &Center{now: time.Now}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Success queues a success notice and returns its ID.
func (c *Center) Success(message string) string { return c.add(LevelSuccess, message) }

// Error queues an error notice and returns its ID.
func (c *Center) Error(message string) string { return c.add(LevelError, message) }

// Warning queues a warning notice and returns its ID.
func (c *Center) Warning(message string) string { return c.add(LevelWarning, message) }

// Info queues an info notice and returns its ID.
func (c *Center) Info(message string) string { return c.add(LevelInfo, message) }

func (c *Center) add(level Level, message string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	notice := Notice{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: c.now(),
	}
	c.notices = append(c.notices, notice)
	return notice.ID
}

// Drain returns all pending notices and clears the center.
func (c *Center) Drain() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	drained := c.notices
	c.notices = nil
	return drained
}

// Peek returns pending notices without removing them.
func (c *Center) Peek() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

// Remove deletes one notice by ID.
func (c *Center) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.notices {
		if n.ID == id {
			c.notices = append(c.notices[:i], c.notices[i+1:]...)
			return
		}
	}
}
