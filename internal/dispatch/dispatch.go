package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/obsidianstack/statusbot/internal/metrics"
	"github.com/obsidianstack/statusbot/internal/publish"
	"github.com/obsidianstack/statusbot/internal/templates"
)

// Event is one inbound alert.
type Event struct {
	Kind  templates.Kind
	Group string
	Name  string

	// Description is logged but never rendered.
	Description *string

	// RequestID correlates log lines; optional.
	RequestID string
}

// logAttrs returns the event as slog key/value pairs.
func (e Event) logAttrs() []any {
	attrs := []any{
		"kind", e.Kind.String(),
		"group", e.Group,
		"name", e.Name,
	}
	if e.Description != nil {
		attrs = append(attrs, "description", *e.Description)
	}
	if e.RequestID != "" {
		attrs = append(attrs, "request_id", e.RequestID)
	}
	return attrs
}

// Status says what happened to a rendered post.
type Status int

const (
	StatusPublished Status = iota
	StatusSkipped
)

func (s Status) String() string {
	if s == StatusSkipped {
		return "skipped"
	}
	return "published"
}

// Outcome is the result of a successful Handle.
type Outcome struct {
	Status Status
	Text   string
	Branch templates.Branch
}

// Dispatcher is safe for concurrent use; it holds no mutable state.
type Dispatcher struct {
	store     *templates.Store
	publisher publish.Publisher
	live      bool
	metrics   *metrics.Metrics
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New creates a Dispatcher. When live is false pub is never called and may
// be nil.
func New(store *templates.Store, pub publish.Publisher, live bool, opts ...Option) *Dispatcher {
	d := &Dispatcher{store: store, publisher: pub, live: live}
	for _, opt := range opts {
		opt(d)
	}
	if d.publisher == nil {
		d.publisher = publish.Nop{}
	}
	return d
}

// Live reports whether posts are published.
func (d *Dispatcher) Live() bool { return d.live }

// Handle renders ev and publishes the text when live. Errors are *Error and
// only affect this call.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (Outcome, error) {
	kind := ev.Kind.String()

	res := d.store.Resolve(ev.Group, ev.Name, ev.Kind)
	d.metrics.Branch(res.Branch.String())

	text, err := res.Render(ev.Name, ev.Group)
	if err != nil {
		slog.Error("dispatch: failed rendering template",
			append(ev.logAttrs(), "branch", res.Branch.String(), "err", err)...)
		d.metrics.Alert(kind, metrics.ResultTemplateError)
		return Outcome{}, &Error{Stage: StageRender, Event: ev, Err: err}
	}

	out := Outcome{Text: text, Branch: res.Branch}
	slog.Info("dispatch: rendered post",
		append(ev.logAttrs(), "branch", res.Branch.String(), "msg", text)...)

	if !d.live {
		slog.Warn("dispatch: live not enabled, not posting", ev.logAttrs()...)
		d.metrics.Alert(kind, metrics.ResultSkipped)
		out.Status = StatusSkipped
		return out, nil
	}

	start := time.Now()
	err = d.publisher.Publish(ctx, text)
	d.metrics.Publish(time.Since(start))
	if err != nil {
		slog.Error("dispatch: failed publishing post", append(ev.logAttrs(), "err", err)...)
		d.metrics.Alert(kind, metrics.ResultPublishError)
		return Outcome{}, &Error{Stage: StagePublish, Event: ev, Err: err}
	}

	d.metrics.Alert(kind, metrics.ResultPublished)
	out.Status = StatusPublished
	return out, nil
}
