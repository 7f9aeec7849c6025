package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kiosk-ingest/internal/domain/event"

	"github.com/google/uuid"
)

// Transformer numbers a batch into the rows of both interaction tables.
type Transformer interface {
	Transform(ctx context.Context, batch []event.Event) (requests, ratings event.RecordSet, err error)
}

// Loader writes one record set to its table as a single atomic unit.
type Loader interface {
	BulkInsert(ctx context.Context, set event.RecordSet) error
}

// FlushReport describes what happened to one batch.
type FlushReport struct {
	BatchID string
	Size    int
	Written map[string]int // rows committed per table
	Errors  []error
}

func (r FlushReport) OK() bool { return len(r.Errors) == 0 }

// Flusher writes full batches. A failed step drops the rows it covered:
// nothing is retried or put back in the buffer.
type Flusher struct {
	transformer Transformer
	loader      Loader
	locker      Locker
	logger      *slog.Logger
}

func NewFlusher(transformer Transformer, loader Loader, locker Locker, logger *slog.Logger) *Flusher {
	if locker == nil {
		locker = &LocalLocker{}
	}
	return &Flusher{
		transformer: transformer,
		loader:      loader,
		locker:      locker,
		logger:      logger,
	}
}

// Flush allocates ids and writes requests and ratings. Each table is its
// own transaction, so a failure on one does not stop the other.
func (f *Flusher) Flush(ctx context.Context, batch []event.Event) FlushReport {
	started := time.Now()
	report := FlushReport{
		BatchID: uuid.NewString(),
		Size:    len(batch),
		Written: make(map[string]int, 2),
	}
	log := f.logger.With("batch_id", report.BatchID, "size", report.Size)
	defer func() { flushDuration.Observe(time.Since(started).Seconds()) }()

	unlock, err := f.locker.Lock(ctx, event.RequestTable.Name, event.RatingTable.Name)
	if err != nil {
		flushFailures.WithLabelValues("lock").Inc()
		log.Error("batch dropped: could not lock tables", "error", err)
		report.Errors = append(report.Errors, fmt.Errorf("lock tables: %w", err))
		return report
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			log.Warn("failed to release table locks", "error", err)
		}
	}()

	requests, ratings, err := f.transformer.Transform(ctx, batch)
	if err != nil {
		flushFailures.WithLabelValues("transform").Inc()
		log.Error("batch dropped: could not allocate ids", "error", err)
		report.Errors = append(report.Errors, err)
		return report
	}
	log.Info("batch transformed", "requests", requests.Len(), "ratings", ratings.Len())

	for _, set := range []event.RecordSet{requests, ratings} {
		if set.Len() == 0 {
			continue
		}
		if err := f.loader.BulkInsert(ctx, set); err != nil {
			flushFailures.WithLabelValues("load").Inc()
			log.Error("rows dropped: bulk insert failed",
				"table", set.Table.Name,
				"rows", set.Len(),
				"first_id", set.Records[0].ID,
				"error", err,
			)
			report.Errors = append(report.Errors, err)
			continue
		}
		rowsWritten.WithLabelValues(set.Table.Name).Add(float64(set.Len()))
		report.Written[set.Table.Name] = set.Len()
		log.Info("copying to database complete", "table", set.Table.Name, "rows", set.Len())
	}

	return report
}
