package event

import (
	"encoding/json"
	"time"
)

// Raw is a kiosk message as it arrives on the topic.
// Fields stay undecoded: "site" may be "3" or 3, and "type" is often absent.
type Raw struct {
	At   json.RawMessage `json:"at"`
	Site json.RawMessage `json:"site"`
	Val  json.RawMessage `json:"val"`
	Type json.RawMessage `json:"type"`
}

// Decode parses one message value. Only malformed JSON is an error;
// missing or badly typed fields are left for validation.
// Keys match exactly: "AT" is not "at".
func Decode(value []byte) (Raw, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(value, &fields); err != nil {
		return Raw{}, err
	}
	return Raw{
		At:   fields["at"],
		Site: fields["site"],
		Val:  fields["val"],
		Type: fields["type"],
	}, nil
}

type Category int

const (
	Rating Category = iota
	Request
)

// RequestVal is the "val" that marks a visitor request instead of a rating.
const RequestVal = -1

func (c Category) String() string {
	switch c {
	case Request:
		return "request"
	case Rating:
		return "rating"
	default:
		return "unknown"
	}
}

// Event is a message that passed every validation check.
type Event struct {
	At   time.Time
	Site int
	Val  int
	Type int // meaningful only for requests
}

func (e Event) Category() Category {
	if e.Val == RequestVal {
		return Request
	}
	return Rating
}
