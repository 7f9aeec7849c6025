// Package transform turns a batch of validated kiosk events into the rows of
// the request and rating interaction tables.
package transform

import (
	"context"
	"fmt"

	"kiosk-ingest/internal/domain/event"
)

// IDAllocator returns the highest id stored in a table, or -1 when it is empty.
type IDAllocator interface {
	MaxID(ctx context.Context, table event.Table) (int64, error)
}

type Transformer struct {
	ids IDAllocator
}

func New(ids IDAllocator) *Transformer {
	return &Transformer{ids: ids}
}

// Split partitions a batch into requests and ratings, keeping relative order.
func Split(batch []event.Event) (requests, ratings []event.Event) {
	for _, e := range batch {
		if e.Category() == event.Request {
			requests = append(requests, e)
		} else {
			ratings = append(ratings, e)
		}
	}
	return requests, ratings
}

// Transform splits the batch and numbers each partition from its table's
// current max id + 1. Empty partitions do not query the allocator.
func (t *Transformer) Transform(ctx context.Context, batch []event.Event) (requests, ratings event.RecordSet, err error) {
	reqEvents, ratEvents := Split(batch)

	requests, err = t.build(ctx, event.RequestTable, reqEvents)
	if err != nil {
		return event.RecordSet{}, event.RecordSet{}, err
	}
	ratings, err = t.build(ctx, event.RatingTable, ratEvents)
	if err != nil {
		return event.RecordSet{}, event.RecordSet{}, err
	}
	return requests, ratings, nil
}

func (t *Transformer) build(ctx context.Context, table event.Table, events []event.Event) (event.RecordSet, error) {
	set := event.RecordSet{Table: table}
	if len(events) == 0 {
		return set, nil
	}

	maxID, err := t.ids.MaxID(ctx, table)
	if err != nil {
		return set, fmt.Errorf("allocate %s ids: %w", table.Name, err)
	}

	set.Records = Records(events, maxID+1)
	return set, nil
}

// Records numbers events from startID upwards. Requests carry their type,
// ratings their val.
func Records(events []event.Event, startID int64) []event.Record {
	records := make([]event.Record, len(events))
	for i, e := range events {
		value := e.Val
		if e.Category() == event.Request {
			value = e.Type
		}
		records[i] = event.Record{
			ID:           startID + int64(i),
			EventAt:      e.At,
			ExhibitionID: e.Site,
			Value:        value,
		}
	}
	return records
}
