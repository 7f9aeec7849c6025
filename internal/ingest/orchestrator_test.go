package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"kiosk-ingest/internal/domain/event"
	"kiosk-ingest/internal/ingest"
	"kiosk-ingest/internal/validation"

	"github.com/smartystreets/goconvey/convey"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// step scripts one poll: a message value, an error, or nothing.
type step struct {
	value string
	err   error
}

func msg(v string) step      { return step{value: v} }
func empty() step            { return step{} }
func failure(err error) step { return step{err: err} }

func validRating(i int) step {
	return msg(fmt.Sprintf(`{"at": "2025-07-03T11:%02d:00+01:00", "site": "%d", "val": %d}`, i%60, i%6, i%5))
}

func validRequest(i int) step {
	return msg(fmt.Sprintf(`{"at": "2025-07-03T12:00:00+01:00", "site": %d, "val": -1, "type": %d}`, i%6, i%2))
}

type mockSource struct {
	steps   []step
	next    int
	polls   int
	commits []int64
	onPoll  func(n int)
}

func (m *mockSource) Poll(_ context.Context, _ time.Duration) (*ingest.Message, error) {
	m.polls++
	if m.onPoll != nil {
		m.onPoll(m.polls)
	}
	if m.next >= len(m.steps) {
		return nil, nil
	}
	s := m.steps[m.next]
	offset := int64(m.next)
	m.next++
	switch {
	case s.err != nil:
		return nil, s.err
	case s.value == "":
		return nil, nil
	default:
		return &ingest.Message{Topic: "lmnh", Offset: offset, Value: []byte(s.value)}, nil
	}
}

func (m *mockSource) Commit(_ context.Context, msg ingest.Message) error {
	m.commits = append(m.commits, msg.Offset)
	return nil
}

type mockSink struct {
	batches [][]event.Event
	fail    bool
	ctxErr  []error
	inFlush func()
}

func (m *mockSink) Flush(ctx context.Context, batch []event.Event) ingest.FlushReport {
	if m.inFlush != nil {
		m.inFlush()
	}
	m.ctxErr = append(m.ctxErr, ctx.Err())
	m.batches = append(m.batches, batch)
	if m.fail {
		return ingest.FlushReport{Size: len(batch), Errors: []error{errors.New("copy failed")}}
	}
	return ingest.FlushReport{Size: len(batch)}
}

func settings(batch, maxMessages, maxEmpty int) ingest.Settings {
	return ingest.Settings{
		BatchSize:     batch,
		MaxMessages:   maxMessages,
		MaxEmptyPolls: maxEmpty,
		PollTimeout:   time.Millisecond,
	}
}

func newOrchestrator(src ingest.Source, sink ingest.BatchSink, s ingest.Settings) *ingest.Orchestrator {
	return ingest.NewOrchestrator(src, validation.New(validation.DefaultWindow), sink, s, discard)
}

func TestOrchestratorBatching(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given exactly one batch of valid messages", t, func() {
		var steps []step
		for i := 0; i < 100; i++ {
			if i%3 == 0 {
				steps = append(steps, validRequest(i))
			} else {
				steps = append(steps, validRating(i))
			}
		}
		src := &mockSource{steps: steps}
		sink := &mockSink{}
		o := newOrchestrator(src, sink, settings(100, 100, 5))

		summary := o.Run(ctx)

		convey.Convey("Then the 100th valid message triggers exactly one flush", func() {
			convey.So(sink.batches, convey.ShouldHaveLength, 1)
			convey.So(sink.batches[0], convey.ShouldHaveLength, 100)
			convey.So(o.Buffered(), convey.ShouldEqual, 0)
			convey.So(summary.Reason, convey.ShouldEqual, ingest.StopMaxMessages)
			convey.So(summary.Flushes, convey.ShouldEqual, 1)
			convey.So(summary.Discarded, convey.ShouldEqual, 0)
		})

		convey.Convey("Then every message offset is committed", func() {
			convey.So(src.commits, convey.ShouldHaveLength, 100)
		})
	})

	convey.Convey("Given a partial batch before the stream goes quiet", t, func() {
		src := &mockSource{steps: []step{validRating(1), validRating(2), validRating(3)}}
		sink := &mockSink{}
		o := newOrchestrator(src, sink, settings(5, 1000, 4))

		summary := o.Run(ctx)

		convey.Convey("Then nothing is flushed and the rest is discarded", func() {
			convey.So(sink.batches, convey.ShouldBeEmpty)
			convey.So(summary.Reason, convey.ShouldEqual, ingest.StopIdle)
			convey.So(summary.Discarded, convey.ShouldEqual, 3)
			convey.So(o.Buffered(), convey.ShouldEqual, 0)
		})
	})

	convey.Convey("Given invalid messages between valid ones", t, func() {
		src := &mockSource{steps: []step{
			validRating(1),
			msg(`{"at": "2025-07-01T15:26:53+01:00", "site": "3", "val": -1}`),
			msg(`{"site": "4", "val": 1}`),
			msg(`not json`),
			validRating(2),
		}}
		sink := &mockSink{}
		o := newOrchestrator(src, sink, settings(2, 5, 3))

		summary := o.Run(ctx)

		convey.Convey("Then only valid events reach the batch", func() {
			convey.So(summary.Received, convey.ShouldEqual, 5)
			convey.So(summary.Valid, convey.ShouldEqual, 2)
			convey.So(summary.Invalid, convey.ShouldEqual, 3)
			convey.So(sink.batches, convey.ShouldHaveLength, 1)
			convey.So(sink.batches[0][0].Site, convey.ShouldEqual, 1)
			convey.So(sink.batches[0][1].Site, convey.ShouldEqual, 2)
		})
	})

	convey.Convey("Given a failing sink", t, func() {
		src := &mockSource{steps: []step{validRating(1), validRating(2), validRating(3)}}
		sink := &mockSink{fail: true}
		o := newOrchestrator(src, sink, settings(2, 3, 3))

		summary := o.Run(ctx)

		convey.Convey("Then the batch is dropped and not retried", func() {
			convey.So(sink.batches, convey.ShouldHaveLength, 1)
			convey.So(summary.FailedFlushes, convey.ShouldEqual, 1)
			convey.So(summary.Discarded, convey.ShouldEqual, 1)
		})
	})
}

func TestOrchestratorStopConditions(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a quiet topic", t, func() {
		src := &mockSource{}
		o := newOrchestrator(src, &mockSink{}, settings(100, 100, 60))

		summary := o.Run(ctx)

		convey.So(summary.Reason, convey.ShouldEqual, ingest.StopIdle)
		convey.So(src.polls, convey.ShouldEqual, 60)
		convey.So(summary.EmptyStreak, convey.ShouldEqual, 60)
	})

	convey.Convey("Given messages interrupting the empty streak", t, func() {
		src := &mockSource{steps: []step{empty(), empty(), validRating(1), empty(), empty()}}
		o := newOrchestrator(src, &mockSink{}, settings(100, 100, 3))

		summary := o.Run(ctx)

		convey.Convey("Then the streak restarts after the message", func() {
			// 2 empty, 1 message, then 3 empty to reach the limit.
			convey.So(src.polls, convey.ShouldEqual, 6)
			convey.So(summary.Received, convey.ShouldEqual, 1)
		})
	})

	convey.Convey("Given the message limit", t, func() {
		src := &mockSource{steps: []step{msg(`{}`), msg(`{}`), msg(`{}`), validRating(1)}}
		o := newOrchestrator(src, &mockSink{}, settings(100, 3, 3))

		summary := o.Run(ctx)

		convey.Convey("Then invalid messages count toward it", func() {
			convey.So(summary.Reason, convey.ShouldEqual, ingest.StopMaxMessages)
			convey.So(summary.Received, convey.ShouldEqual, 3)
			convey.So(src.polls, convey.ShouldEqual, 3)
		})
	})

	convey.Convey("Given poll errors", t, func() {
		boom := errors.New("broker unavailable")
		src := &mockSource{steps: []step{failure(boom), failure(boom), validRating(1)}}
		o := newOrchestrator(src, &mockSink{}, settings(100, 1, 3))

		summary := o.Run(ctx)

		convey.Convey("Then the loop carries on", func() {
			convey.So(summary.PollErrors, convey.ShouldEqual, 2)
			convey.So(summary.Received, convey.ShouldEqual, 1)
			convey.So(summary.Reason, convey.ShouldEqual, ingest.StopMaxMessages)
		})
	})

	convey.Convey("Given a cancelled context", t, func() {
		cctx, cancel := context.WithCancel(ctx)
		src := &mockSource{onPoll: func(n int) {
			if n == 2 {
				cancel()
			}
		}}
		o := newOrchestrator(src, &mockSink{}, settings(100, 100, 60))

		summary := o.Run(cctx)

		convey.So(summary.Reason, convey.ShouldEqual, ingest.StopCancelled)
		convey.So(src.polls, convey.ShouldEqual, 2)
	})

	convey.Convey("Given a shutdown during a flush", t, func() {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()
		src := &mockSource{steps: []step{validRating(1)}}
		sink := &mockSink{inFlush: cancel}
		o := newOrchestrator(src, sink, settings(1, 100, 60))

		summary := o.Run(cctx)

		convey.Convey("Then the write still sees a live context", func() {
			convey.So(sink.ctxErr, convey.ShouldResemble, []error{nil})
			convey.So(summary.Reason, convey.ShouldEqual, ingest.StopCancelled)
		})
	})
}
