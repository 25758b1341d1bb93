package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ContextProvider returns attributes describing the extension's live state.
// It is called for every record.
type ContextProvider func() []slog.Attr

// fanout hands each record to every sink that accepts its level.
type fanout []slog.Handler

// Fanout combines sinks. Nil sinks are skipped; a failing sink does not stop
// the others and its error is returned joined with the rest.
func Fanout(sinks ...slog.Handler) slog.Handler {
	f := make(fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			f = append(f, s)
		}
	}
	return f
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range f {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range f {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, s := range f {
		out[i] = fn(s)
	}
	return out
}

// stateHandler appends the provider's attributes to each record at the top
// level, so groups opened later do not nest them.
type stateHandler struct {
	root     slog.Handler
	inner    slog.Handler
	provider ContextProvider
	ops      []func(slog.Handler) slog.Handler
}

// WithState wraps inner so every record carries provider's attributes.
func WithState(inner slog.Handler, provider ContextProvider) slog.Handler {
	if provider == nil {
		return inner
	}
	return &stateHandler{root: inner, inner: inner, provider: provider}
}

func (h *stateHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *stateHandler) Handle(ctx context.Context, r slog.Record) error {
	state := h.provider()
	if len(state) == 0 {
		return h.inner.Handle(ctx, r)
	}
	target := h.root.WithAttrs(state)
	for _, op := range h.ops {
		target = op(target)
	}
	return target.Handle(ctx, r)
}

func (h *stateHandler) with(op func(slog.Handler) slog.Handler) *stateHandler {
	ops := make([]func(slog.Handler) slog.Handler, len(h.ops), len(h.ops)+1)
	copy(ops, h.ops)
	return &stateHandler{
		root:     h.root,
		inner:    op(h.inner),
		provider: h.provider,
		ops:      append(ops, op),
	}
}

func (h *stateHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (h *stateHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}
