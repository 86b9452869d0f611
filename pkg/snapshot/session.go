package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/tomlsnap/pkg/arena"
	"github.com/openfroyo/tomlsnap/pkg/document"
	"github.com/openfroyo/tomlsnap/pkg/document/tomldoc"
	"github.com/openfroyo/tomlsnap/pkg/telemetry"
)

// Options configures a Converter.
type Options struct {
	// Parser produces the document tree. Defaults to the TOML parser.
	Parser document.Parser

	// ChunkSize is the arena chunk size in bytes. Zero selects the arena
	// default.
	ChunkSize int `validate:"gte=0"`

	// MaxArenaBytes caps how much memory one conversion may allocate.
	// Zero disables the cap. A conversion that hits the cap fails with a
	// generic resource-exhaustion message.
	MaxArenaBytes int64 `validate:"gte=0"`

	// Logger, Metrics, and Tracer are optional instrumentation hooks.
	Logger  *telemetry.Logger
	Metrics *telemetry.Metrics
	Tracer  *telemetry.Tracer
}

// Converter runs parse-and-flatten passes. It holds no per-conversion state:
// one Converter may serve many goroutines, each owning its own Result.
type Converter struct {
	opts Options
}

// New creates a Converter after validating options.
func New(opts Options) (*Converter, error) {
	if err := validator.New().Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid converter options: %w", err)
	}
	if opts.Parser == nil {
		opts.Parser = tomldoc.Parser{}
	}
	return &Converter{opts: opts}, nil
}

// Convert runs one parse-and-flatten pass over input and always returns a
// usable Result; no failure below this boundary escapes as a panic or error.
// Syntax errors carry the parser's message and 1-based position. Any other
// fault (arena budget exhausted, internal panic) yields a generic message
// with a zeroed position. The caller owns the Result and must Close it,
// whether or not the conversion succeeded.
func (c *Converter) Convert(ctx context.Context, input []byte) (res *Result) {
	ctx, id := telemetry.EnsureConversionID(ctx)
	start := time.Now()

	a := arena.New(c.opts.ChunkSize, c.opts.MaxArenaBytes)
	res = &Result{arena: a, metrics: c.opts.Metrics}
	outcome := telemetry.OutcomeInternal

	var span trace.Span
	if c.opts.Tracer != nil {
		ctx, span = c.opts.Tracer.StartConversionSpan(ctx, id, len(input))
	}

	c.opts.Metrics.ConversionStarted(len(input))

	defer func() {
		// The caller may live in a context that cannot absorb a Go
		// panic; fold any internal fault into the failure fields.
		if p := recover(); p != nil {
			outcome = telemetry.OutcomeInternal
			res.setFailure("internal error during conversion", 0, 0)
			if c.opts.Logger != nil {
				c.opts.Logger.WithConversionID(id).Errorf("recovered conversion panic: %v", p)
			}
		}

		stats := a.Stats()
		c.opts.Metrics.ConversionCompleted(outcome, time.Since(start), stats.Used, stats.Chunks, stats.InternedStrings)

		if span != nil {
			span.SetAttributes(
				telemetry.AttrOutcome.String(outcome),
				telemetry.AttrArenaBytes.Int64(stats.Used),
				telemetry.AttrArenaChunks.Int(stats.Chunks),
			)
			if res.OK() {
				telemetry.RecordSuccess(span)
			} else {
				telemetry.RecordError(span, errors.New(res.ErrMessage()))
			}
			span.End()
		}

		if c.opts.Logger != nil {
			l := c.opts.Logger.WithConversionID(id)
			if tid := telemetry.TraceID(ctx); tid != "" {
				l = l.WithField("trace_id", tid)
			}
			if res.OK() {
				l.Debugf("converted %d bytes into %d top-level keys (arena: %d bytes, %d chunks)",
					len(input), res.Root().Len(), stats.Used, stats.Chunks)
			} else {
				l.Debugf("conversion failed at %d:%d: %s", res.ErrLine(), res.ErrColumn(), res.ErrMessage())
			}
		}
	}()

	tree, err := c.parse(ctx, id, input)
	if err != nil {
		var pe *document.ParseError
		if errors.As(err, &pe) {
			outcome = telemetry.OutcomeParseError
			res.setFailure(pe.Message, pe.Line, pe.Column)
		} else {
			outcome = telemetry.OutcomeInternal
			res.setFailure(err.Error(), 0, 0)
		}
		return res
	}

	root, err := convertNode(a, tree)
	if err != nil {
		if errors.Is(err, arena.ErrBudget) {
			outcome = telemetry.OutcomeExhausted
			res.setFailure("out of memory: conversion arena budget exceeded", 0, 0)
		} else {
			outcome = telemetry.OutcomeInternal
			res.setFailure(err.Error(), 0, 0)
		}
		return res
	}

	res.ok = true
	res.root = root
	outcome = telemetry.OutcomeSuccess
	return res
}

// parse invokes the document parser, wrapped in its own span when tracing is
// configured so parse time shows up separately from flattening time.
func (c *Converter) parse(ctx context.Context, id string, input []byte) (document.Node, error) {
	if c.opts.Tracer == nil {
		return c.opts.Parser.Parse(input)
	}

	_, span := c.opts.Tracer.StartParseSpan(ctx, id)
	defer span.End()

	tree, err := c.opts.Parser.Parse(input)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.RecordSuccess(span)
	return tree, nil
}

// Convert runs one conversion with default options. Equivalent to building a
// Converter with New(Options{}) and calling its Convert.
func Convert(input []byte) *Result {
	c, err := New(Options{})
	if err != nil {
		// Zero options always validate.
		panic(err)
	}
	return c.Convert(context.Background(), input)
}

// Result is the outcome of one conversion pass. On success Root holds the
// flattened table; on failure ErrMessage/ErrLine/ErrColumn describe why.
// Every pointer reachable from the Result (string bytes, array elements,
// table keys) lives in the Result's arena and dies with Close.
type Result struct {
	ok   bool
	root Node

	// msg is arena-owned, like every other byte the result exposes.
	msg  []byte
	line int64
	col  int64

	arena   *arena.Arena
	metrics *telemetry.Metrics
}

// OK reports whether the conversion succeeded.
func (r *Result) OK() bool { return r.ok }

// Root returns the flattened tree root. Meaningful only when OK is true; on
// failure it is the none node.
func (r *Result) Root() Node { return r.root }

// ErrMessage returns the failure description, or "" on success.
func (r *Result) ErrMessage() string { return string(r.msg) }

// ErrLine returns the 1-based line of a syntax error, or 0 when no position
// applies.
func (r *Result) ErrLine() int64 { return r.line }

// ErrColumn returns the 1-based column of a syntax error, or 0 when no
// position applies.
func (r *Result) ErrColumn() int64 { return r.col }

// Closed reports whether Close has already run.
func (r *Result) Closed() bool { return r.arena == nil }

// ArenaStats returns the owning arena's bookkeeping, or the zero Stats after
// Close.
func (r *Result) ArenaStats() arena.Stats {
	if r.arena == nil {
		return arena.Stats{}
	}
	return r.arena.Stats()
}

// Close releases the arena and clears every field so a stale copy of the
// Result cannot leak a dangling pointer. The first call tears down; repeat
// calls are safe no-ops. Close must not run concurrently with itself or with
// readers of the same Result, and no Node obtained from this Result may be
// used afterwards.
func (r *Result) Close() {
	if r.arena == nil {
		return
	}
	r.arena.Release()
	r.arena = nil

	r.ok = false
	r.root = Node{}
	r.msg = nil
	r.line = 0
	r.col = 0

	r.metrics.SnapshotClosed()
	r.metrics = nil
}

// setFailure records failure details, interning the message in the arena so
// the Result owns every byte it exposes. If interning itself fails (the
// budget may already be exhausted), the message falls back to heap storage so
// the failure is still reported.
func (r *Result) setFailure(msg string, line, col int64) {
	r.ok = false
	r.root = Node{}
	r.line = line
	r.col = col

	interned, err := r.arena.InternString(msg)
	if err != nil {
		r.msg = []byte(msg)
		return
	}
	r.msg = interned
}
