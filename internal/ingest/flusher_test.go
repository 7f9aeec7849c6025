package ingest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"kiosk-ingest/internal/domain/event"
	"kiosk-ingest/internal/ingest"
	"kiosk-ingest/internal/transform"

	"github.com/smartystreets/goconvey/convey"
)

type mockAllocator struct {
	max map[string]int64
	err error
}

func (m *mockAllocator) MaxID(_ context.Context, table event.Table) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	if n, ok := m.max[table.Name]; ok {
		return n, nil
	}
	return -1, nil
}

type mockLoader struct {
	sets []event.RecordSet
	fail map[string]error
}

func (m *mockLoader) BulkInsert(_ context.Context, set event.RecordSet) error {
	if err, ok := m.fail[set.Table.Name]; ok {
		return err
	}
	m.sets = append(m.sets, set)
	return nil
}

type mockLocker struct {
	err      error
	locked   []string
	released int
}

func (m *mockLocker) Lock(_ context.Context, tables ...string) (func(context.Context) error, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.locked = append(m.locked, tables...)
	return func(context.Context) error {
		m.released++
		return nil
	}, nil
}

func mixedBatch() []event.Event {
	at := time.Date(2025, 7, 3, 12, 0, 0, 0, time.UTC)
	return []event.Event{
		{At: at, Site: 0, Val: 3},
		{At: at, Site: 1, Val: event.RequestVal, Type: 1},
		{At: at, Site: 2, Val: 0},
	}
}

func TestFlusher(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given healthy storage", t, func() {
		ids := &mockAllocator{max: map[string]int64{"rating_interaction": 19}}
		loader := &mockLoader{}
		locker := &mockLocker{}
		f := ingest.NewFlusher(transform.New(ids), loader, locker, discard)

		report := f.Flush(ctx, mixedBatch())

		convey.Convey("Then both tables are written under one lock", func() {
			convey.So(report.OK(), convey.ShouldBeTrue)
			convey.So(report.BatchID, convey.ShouldNotBeBlank)
			convey.So(report.Written, convey.ShouldResemble, map[string]int{
				"request_interaction": 1,
				"rating_interaction":  2,
			})
			convey.So(locker.locked, convey.ShouldResemble, []string{"request_interaction", "rating_interaction"})
			convey.So(locker.released, convey.ShouldEqual, 1)
		})

		convey.Convey("Then ids continue from the stored maximum", func() {
			convey.So(loader.sets, convey.ShouldHaveLength, 2)
			convey.So(loader.sets[0].Records[0].ID, convey.ShouldEqual, 0)
			convey.So(loader.sets[1].Records[0].ID, convey.ShouldEqual, 20)
			convey.So(loader.sets[1].Records[1].ID, convey.ShouldEqual, 21)
		})
	})

	convey.Convey("Given the request table rejects the copy", t, func() {
		loader := &mockLoader{fail: map[string]error{"request_interaction": errors.New("constraint violation")}}
		f := ingest.NewFlusher(transform.New(&mockAllocator{}), loader, &mockLocker{}, discard)

		report := f.Flush(ctx, mixedBatch())

		convey.Convey("Then ratings are still written and requests dropped", func() {
			convey.So(report.OK(), convey.ShouldBeFalse)
			convey.So(report.Errors, convey.ShouldHaveLength, 1)
			convey.So(report.Written, convey.ShouldResemble, map[string]int{"rating_interaction": 2})
		})
	})

	convey.Convey("Given id allocation fails", t, func() {
		loader := &mockLoader{}
		locker := &mockLocker{}
		f := ingest.NewFlusher(transform.New(&mockAllocator{err: errors.New("timeout")}), loader, locker, discard)

		report := f.Flush(ctx, mixedBatch())

		convey.So(report.OK(), convey.ShouldBeFalse)
		convey.So(loader.sets, convey.ShouldBeEmpty)
		convey.So(locker.released, convey.ShouldEqual, 1)
	})

	convey.Convey("Given the tables cannot be locked", t, func() {
		loader := &mockLoader{}
		f := ingest.NewFlusher(transform.New(&mockAllocator{}), loader, &mockLocker{err: errors.New("held elsewhere")}, discard)

		report := f.Flush(ctx, mixedBatch())

		convey.So(report.OK(), convey.ShouldBeFalse)
		convey.So(loader.sets, convey.ShouldBeEmpty)
	})

	convey.Convey("Given no locker", t, func() {
		loader := &mockLoader{}
		f := ingest.NewFlusher(transform.New(&mockAllocator{}), loader, nil, discard)

		convey.So(f.Flush(ctx, mixedBatch()).OK(), convey.ShouldBeTrue)
		convey.So(f.Flush(ctx, mixedBatch()).OK(), convey.ShouldBeTrue)
		convey.So(loader.sets, convey.ShouldHaveLength, 4)
	})
}
