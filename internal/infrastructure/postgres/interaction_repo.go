package postgres

import (
	"context"
	"errors"
	"fmt"

	"kiosk-ingest/internal/domain/event"

	"github.com/jackc/pgx/v5"
)

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Beginner
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var ErrShortCopy = errors.New("copied fewer rows than supplied")

type InteractionRepository struct {
	db        DB
	txManager Transactor
}

func NewInteractionRepository(db DB) *InteractionRepository {
	return &InteractionRepository{
		db:        db,
		txManager: NewTxManager(db),
	}
}

// MaxID returns the highest id in table, or -1 when the table is empty.
// It is a plain read: nothing ties it to the write that follows.
func (r *InteractionRepository) MaxID(ctx context.Context, table event.Table) (int64, error) {
	sql := fmt.Sprintf("SELECT COALESCE(MAX(%s), -1) FROM %s",
		pgx.Identifier{table.IDColumn}.Sanitize(),
		pgx.Identifier{table.Name}.Sanitize(),
	)

	var maxID int64
	if err := r.db.QueryRow(ctx, sql).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("select max id from %s: %w", table.Name, err)
	}
	return maxID, nil
}

// BulkInsert copies the whole set into its table in one transaction.
// Any failure rolls the transaction back; no rows of the set are kept.
func (r *InteractionRepository) BulkInsert(ctx context.Context, set event.RecordSet) error {
	if set.Len() == 0 {
		return nil
	}

	return r.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		tx := GetTx(txCtx)

		n, err := tx.CopyFrom(txCtx,
			pgx.Identifier{set.Table.Name},
			set.Table.Columns(),
			pgx.CopyFromRows(set.Rows()),
		)
		if err != nil {
			return fmt.Errorf("copy into %s: %w", set.Table.Name, err)
		}
		if n != int64(set.Len()) {
			return fmt.Errorf("copy into %s: %d of %d: %w", set.Table.Name, n, set.Len(), ErrShortCopy)
		}
		return nil
	})
}
