package event

import "time"

// Table describes an interaction table: <name>_id, event_at, exhibition_id, <value>.
type Table struct {
	Name        string
	IDColumn    string
	ValueColumn string
}

var (
	RequestTable = Table{
		Name:        "request_interaction",
		IDColumn:    "request_interaction_id",
		ValueColumn: "request_id",
	}
	RatingTable = Table{
		Name:        "rating_interaction",
		IDColumn:    "rating_interaction_id",
		ValueColumn: "rating_id",
	}
)

// Columns returns the column order used for bulk writes.
func (t Table) Columns() []string {
	return []string{t.IDColumn, "event_at", "exhibition_id", t.ValueColumn}
}

// Record is one row of an interaction table. Value holds request_id or rating_id.
type Record struct {
	ID           int64
	EventAt      time.Time
	ExhibitionID int
	Value        int
}

type RecordSet struct {
	Table   Table
	Records []Record
}

func (s RecordSet) Len() int { return len(s.Records) }

// Rows flattens the set in Columns order.
func (s RecordSet) Rows() [][]any {
	rows := make([][]any, len(s.Records))
	for i, r := range s.Records {
		rows[i] = []any{r.ID, r.EventAt, r.ExhibitionID, r.Value}
	}
	return rows
}
