package activity

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Event is one document activity occurrence. Row and column identifiers
// travel as strings in ObjectID; cell details live in Metadata.
type Event struct {
	Verb       string
	ActorID    string
	UserID     string
	TenantID   string
	ObjectType string
	ObjectID   string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Valid reports whether the event names a verb and a target object.
func (e Event) Valid() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// ActivityHook receives normalized activity events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// HookError reports the failure of a single hook during fan-out.
type HookError struct {
	Index int
	Verb  string
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("activity hook %d (%s): %v", e.Index, e.Verb, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// Hooks fans out events to zero or more hooks.
type Hooks []ActivityHook

func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Compact returns the non-nil hooks, or nil when none remain.
func (h Hooks) Compact() Hooks {
	out := slices.DeleteFunc(slices.Clone(h), func(hook ActivityHook) bool { return hook == nil })
	if len(out) == 0 {
		return nil
	}
	return out
}

// Notify normalizes the event and hands it to every hook in order. Invalid
// events are dropped silently. A panicking hook is reported as an error and
// does not stop the remaining hooks.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	event = NormalizeEvent(event)
	if !event.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for i, hook := range h {
		if hook == nil {
			continue
		}
		if err := notifyOne(ctx, hook, event); err != nil {
			errs = append(errs, &HookError{Index: i, Verb: event.Verb, Err: err})
		}
	}
	return errors.Join(errs...)
}

func notifyOne(ctx context.Context, hook ActivityHook, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	// each hook gets its own metadata copy
	event.Metadata = maps.Clone(event.Metadata)
	return hook.Notify(ctx, event)
}

// NormalizeEvent trims identifiers, copies metadata and stamps a missing
// timestamp.
func NormalizeEvent(event Event) Event {
	for _, field := range []*string{
		&event.Verb, &event.ActorID, &event.UserID, &event.TenantID,
		&event.ObjectType, &event.ObjectID, &event.Channel,
	} {
		*field = strings.TrimSpace(*field)
	}
	if len(event.Metadata) == 0 {
		event.Metadata = nil
	} else {
		event.Metadata = maps.Clone(event.Metadata)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	return event
}

// VerbFilter limits delivery to a set of verbs. An empty filter allows all.
type VerbFilter []string

// Allows matches verb case-insensitively against the filter.
func (f VerbFilter) Allows(verb string) bool {
	if len(f) == 0 {
		return true
	}
	return slices.ContainsFunc(f, func(candidate string) bool {
		return strings.EqualFold(strings.TrimSpace(candidate), verb)
	})
}

// Filtered wraps hook so it only sees the listed verbs.
func Filtered(hook ActivityHook, verbs ...string) ActivityHook {
	filter := VerbFilter(verbs)
	return HookFunc(func(ctx context.Context, event Event) error {
		if hook == nil || !filter.Allows(strings.TrimSpace(event.Verb)) {
			return nil
		}
		return hook.Notify(ctx, event)
	})
}
