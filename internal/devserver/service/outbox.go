package service

import (
	"context"
	"log/slog"
	"sync"
)

// Outbox delivers one-time login codes to users. Production backends e-mail
// them; the reference backend logs them or keeps them in memory.
type Outbox interface {
	SendCode(ctx context.Context, to, code string) error
}

// LogOutbox writes codes to the log.
type LogOutbox struct {
	Logger *slog.Logger
}

func (o LogOutbox) SendCode(ctx context.Context, to, code string) error {
	o.Logger.InfoContext(ctx, "one-time login code", "to", to, "code", code)
	return nil
}

// MemoryOutbox remembers the last code sent to every address.
type MemoryOutbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{codes: map[string]string{}}
}

func (o *MemoryOutbox) SendCode(_ context.Context, to, code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes[to] = code
	return nil
}

// Last returns the most recent code sent to to.
func (o *MemoryOutbox) Last(to string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	code, ok := o.codes[to]
	return code, ok
}
