package activity

import (
	"context"
	"strings"
)

// DefaultChannel is used when neither the event nor the config names one.
const DefaultChannel = "csvdoc"

// Config controls activity emission defaults.
type Config struct {
	Enabled bool
	Channel string
	// Identity stamped on events that carry none, so a single editing
	// session can be attributed.
	ActorID  string
	UserID   string
	TenantID string
}

// Emitter stamps session defaults onto events before fan-out.
type Emitter struct {
	hooks Hooks
	cfg   Config
}

func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	cfg.Channel = strings.TrimSpace(cfg.Channel)
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	hooks = hooks.Compact()
	cfg.Enabled = cfg.Enabled && hooks.Enabled()
	return &Emitter{hooks: hooks, cfg: cfg}
}

func (e *Emitter) Enabled() bool {
	return e != nil && e.cfg.Enabled
}

// Emit applies defaults and forwards the event. It is a no-op on a disabled
// or nil emitter.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	fill(&event.Channel, e.cfg.Channel)
	fill(&event.ActorID, e.cfg.ActorID)
	fill(&event.UserID, e.cfg.UserID)
	fill(&event.TenantID, e.cfg.TenantID)
	return e.hooks.Notify(ctx, event)
}

func fill(field *string, fallback string) {
	if strings.TrimSpace(*field) == "" {
		*field = fallback
	}
}
