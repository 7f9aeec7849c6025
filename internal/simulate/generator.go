// Package simulate produces kiosk events for local runs against the topic.
package simulate

import (
	"encoding/json"
	"math/rand"
	"time"
)

// Kind selects which defect, if any, a generated event carries.
type Kind int

const (
	KindRating Kind = iota
	KindRequest
	KindMissingAt
	KindMissingSite
	KindSiteOutOfRange
	KindValNotInteger
	KindRequestWithoutType
	KindOutsideWindow
	kindCount
)

func (k Kind) Valid() bool { return k == KindRating || k == KindRequest }

// Generator builds kiosk payloads. It is not safe for concurrent use.
type Generator struct {
	rng          *rand.Rand
	invalidRatio float64
	loc          *time.Location
}

func NewGenerator(seed int64, invalidRatio float64) *Generator {
	return &Generator{
		rng:          rand.New(rand.NewSource(seed)),
		invalidRatio: invalidRatio,
		loc:          time.FixedZone("BST", 3600),
	}
}

// Next picks a kind and returns its payload stamped on day.
func (g *Generator) Next(day time.Time) (Kind, []byte) {
	kind := KindRating
	switch {
	case g.rng.Float64() < g.invalidRatio:
		kind = Kind(2 + g.rng.Intn(int(kindCount)-2))
	case g.rng.Intn(4) == 0:
		kind = KindRequest
	}
	return kind, g.Build(kind, day)
}

// Build returns the payload for kind. Valid kinds fall inside the opening hours.
func (g *Generator) Build(kind Kind, day time.Time) []byte {
	at := g.openingTime(day)
	ev := map[string]any{
		"at":   at.Format(time.RFC3339),
		"site": g.rng.Intn(6),
		"val":  g.rng.Intn(5),
	}

	switch kind {
	case KindRequest:
		ev["val"] = -1
		ev["type"] = g.rng.Intn(2)
	case KindMissingAt:
		delete(ev, "at")
	case KindMissingSite:
		delete(ev, "site")
	case KindSiteOutOfRange:
		ev["site"] = 6 + g.rng.Intn(10)
	case KindValNotInteger:
		ev["val"] = "excellent"
	case KindRequestWithoutType:
		ev["val"] = -1
	case KindOutsideWindow:
		night := time.Date(day.Year(), day.Month(), day.Day(), 22, g.rng.Intn(60), 0, 0, g.loc)
		ev["at"] = night.Format(time.RFC3339)
	}

	// Kiosks sometimes send numbers as strings.
	if kind.Valid() && g.rng.Intn(3) == 0 {
		ev["site"] = jsonString(ev["site"])
	}

	b, _ := json.Marshal(ev)
	return b
}

func (g *Generator) openingTime(day time.Time) time.Time {
	// 09:00 to 18:00 keeps clear of both window edges.
	offset := time.Duration(g.rng.Intn(9*3600)) * time.Second
	return time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, g.loc).Add(offset)
}

func jsonString(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
