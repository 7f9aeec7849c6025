// Package ingest runs the consume loop: poll, validate, buffer, flush.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"kiosk-ingest/internal/domain/event"
	"kiosk-ingest/internal/validation"
)

// BatchSink receives every full batch exactly once.
type BatchSink interface {
	Flush(ctx context.Context, batch []event.Event) FlushReport
}

type StopReason string

const (
	StopMaxMessages StopReason = "max_messages"
	StopIdle        StopReason = "idle"
	StopCancelled   StopReason = "cancelled"
)

// Stats is a point-in-time view of the loop counters.
type Stats struct {
	Received      int64 `json:"received"`
	Valid         int64 `json:"valid"`
	Invalid       int64 `json:"invalid"`
	PollErrors    int64 `json:"poll_errors"`
	EmptyStreak   int64 `json:"empty_streak"`
	Buffered      int64 `json:"buffered"`
	Flushes       int64 `json:"flushes"`
	FailedFlushes int64 `json:"failed_flushes"`
}

// Summary is returned when the loop ends.
type Summary struct {
	Stats
	Reason    StopReason `json:"reason"`
	Discarded int        `json:"discarded"` // valid events left in a partial batch
}

type counters struct {
	received      atomic.Int64
	valid         atomic.Int64
	invalid       atomic.Int64
	pollErrors    atomic.Int64
	emptyStreak   atomic.Int64
	buffered      atomic.Int64
	flushes       atomic.Int64
	failedFlushes atomic.Int64
}

// Orchestrator is single-threaded: one poll, one validation, one flush at a time.
// Only Stats and Buffered may be called from other goroutines.
type Orchestrator struct {
	source    Source
	validator *validation.Validator
	sink      BatchSink
	settings  Settings
	logger    *slog.Logger

	buffer []event.Event
	c      counters
}

func NewOrchestrator(source Source, validator *validation.Validator, sink BatchSink, settings Settings, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		source:    source,
		validator: validator,
		sink:      sink,
		settings:  settings,
		logger:    logger,
		buffer:    make([]event.Event, 0, settings.BatchSize),
	}
}

// Run consumes until MaxMessages messages were received, MaxEmptyPolls
// consecutive polls came back empty, or ctx is cancelled. A flush in
// progress always runs to completion. A partial batch is never flushed.
func (o *Orchestrator) Run(ctx context.Context) Summary {
	o.logger.Info("consumer started",
		"batch_size", o.settings.BatchSize,
		"max_messages", o.settings.MaxMessages,
		"max_empty_polls", o.settings.MaxEmptyPolls,
		"poll_timeout", o.settings.PollTimeout,
	)

	reason := o.loop(ctx)

	summary := Summary{
		Stats:     o.Stats(),
		Reason:    reason,
		Discarded: len(o.buffer),
	}
	o.buffer = o.buffer[:0]
	o.c.buffered.Store(0)
	bufferedEvents.Set(0)

	o.logger.Info("consumer stopped",
		"reason", summary.Reason,
		"received", summary.Received,
		"valid", summary.Valid,
		"invalid", summary.Invalid,
		"flushes", summary.Flushes,
		"failed_flushes", summary.FailedFlushes,
		"discarded", summary.Discarded,
	)
	return summary
}

func (o *Orchestrator) loop(ctx context.Context) StopReason {
	for {
		switch {
		case o.c.received.Load() >= int64(o.settings.MaxMessages):
			return StopMaxMessages
		case o.c.emptyStreak.Load() >= int64(o.settings.MaxEmptyPolls):
			return StopIdle
		case ctx.Err() != nil:
			return StopCancelled
		}

		msg, err := o.source.Poll(ctx, o.settings.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return StopCancelled
			}
			o.c.pollErrors.Add(1)
			pollErrors.Inc()
			o.logger.Error("unexpected error", "error", err)
			o.backoff(ctx)
			continue
		}

		if msg == nil {
			o.c.emptyStreak.Add(1)
			emptyPolls.Inc()
			continue
		}

		o.c.emptyStreak.Store(0)
		count := o.c.received.Add(1)
		messagesReceived.Inc()

		o.handle(ctx, count, *msg)

		if err := o.source.Commit(ctx, *msg); err != nil {
			o.c.pollErrors.Add(1)
			pollErrors.Inc()
			o.logger.Warn("failed to commit offset", "offset", msg.Offset, "error", err)
		}
	}
}

// handle validates one message and buffers it when every required check passes.
func (o *Orchestrator) handle(ctx context.Context, count int64, msg Message) {
	raw, err := event.Decode(msg.Value)
	if err != nil {
		o.c.invalid.Add(1)
		messagesInvalid.Inc()
		decodeErrors.Inc()
		o.logger.Error(fmt.Sprintf("[%d] Offset: %d, Value: %s - INVALID: undecodable message", count, msg.Offset, msg.Value),
			"error", err)
		return
	}

	res := o.validator.Validate(raw)
	if !res.Valid() {
		o.c.invalid.Add(1)
		messagesInvalid.Inc()
		for _, f := range res.Failures {
			fieldFailures.WithLabelValues(string(f.Field), f.Reason.String()).Inc()
			o.logger.Error(fmt.Sprintf("[%d] Offset: %d, Value: %s - INVALID: %s", count, msg.Offset, msg.Value, f.Message()),
				"field", f.Field,
				"reason", f.Reason.String(),
			)
		}
		return
	}

	o.c.valid.Add(1)
	messagesValid.Inc()
	o.logger.Info(fmt.Sprintf("[%d] Offset: %d, Value: %s", count, msg.Offset, msg.Value))

	o.buffer = append(o.buffer, res.Event)
	o.c.buffered.Store(int64(len(o.buffer)))
	bufferedEvents.Set(float64(len(o.buffer)))

	if len(o.buffer) >= o.settings.BatchSize {
		o.flush(ctx)
	}
}

// flush hands the buffer to the sink and clears it whatever the outcome.
// The write is detached from ctx so a shutdown signal cannot cut it short.
func (o *Orchestrator) flush(ctx context.Context) {
	batch := o.buffer
	o.buffer = make([]event.Event, 0, o.settings.BatchSize)
	o.c.buffered.Store(0)
	bufferedEvents.Set(0)

	o.c.flushes.Add(1)
	flushes.Inc()
	o.logger.Info("batch of valid messages ready", "size", len(batch))

	report := o.sink.Flush(context.WithoutCancel(ctx), batch)
	if !report.OK() {
		o.c.failedFlushes.Add(1)
	}
}

func (o *Orchestrator) backoff(ctx context.Context) {
	t := time.NewTimer(o.settings.PollTimeout)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Buffered reports how many valid events wait for the next flush.
func (o *Orchestrator) Buffered() int {
	return int(o.c.buffered.Load())
}

func (o *Orchestrator) Stats() Stats {
	return Stats{
		Received:      o.c.received.Load(),
		Valid:         o.c.valid.Load(),
		Invalid:       o.c.invalid.Load(),
		PollErrors:    o.c.pollErrors.Load(),
		EmptyStreak:   o.c.emptyStreak.Load(),
		Buffered:      o.c.buffered.Load(),
		Flushes:       o.c.flushes.Load(),
		FailedFlushes: o.c.failedFlushes.Load(),
	}
}
