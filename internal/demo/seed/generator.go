package seed

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Event is one synthetic storefront interaction. The same struct drives all
// output formats, so both tag sets live here.
type Event struct {
	EventID    int64   `json:"event_id" parquet:"event_id"`
	UserID     string  `json:"user_id" parquet:"user_id"`
	SessionID  string  `json:"session_id" parquet:"session_id"`
	EventType  string  `json:"event_type" parquet:"event_type"`
	Amount     float64 `json:"amount" parquet:"amount"`
	Currency   string  `json:"currency" parquet:"currency"`
	Country    string  `json:"country" parquet:"country"`
	Device     string  `json:"device" parquet:"device"`
	OccurredAt string  `json:"occurred_at" parquet:"occurred_at"`
}

type Generator struct {
	rnd      *rand.Rand
	users    int
	sequence int64
	now      func() time.Time
}

func NewGenerator(seed int64, users int) *Generator {
	return &Generator{
		rnd:   rand.New(rand.NewSource(seed)),
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (g *Generator) Next() Event {
	g.sequence++
	// Timestamps spread backwards over one day so charts have a spine.
	occurredAt := g.now().Add(-time.Duration(g.rnd.Intn(86400)) * time.Second)
	eventType := g.pickEventType()

	return Event{
		EventID:    g.sequence,
		UserID:     fmt.Sprintf("user-%04d", g.rnd.Intn(g.users)+1),
		SessionID:  fmt.Sprintf("sess-%08x", g.rnd.Uint32()),
		EventType:  eventType,
		Amount:     g.pickAmount(eventType),
		Currency:   "USD",
		Country:    pickOne(g.rnd, []string{"US", "DE", "GB", "IN", "JP", "BR"}),
		Device:     pickOne(g.rnd, []string{"desktop", "mobile", "tablet"}),
		OccurredAt: occurredAt.Format(time.RFC3339),
	}
}

func (g *Generator) pickEventType() string {
	p := g.rnd.Intn(100)
	switch {
	case p < 55:
		return "page_view"
	case p < 75:
		return "search"
	case p < 88:
		return "add_to_cart"
	case p < 97:
		return "checkout"
	default:
		return "purchase"
	}
}

func (g *Generator) pickAmount(eventType string) float64 {
	switch eventType {
	case "purchase":
		return round2(20 + g.rnd.Float64()*280)
	case "checkout":
		return round2(15 + g.rnd.Float64()*240)
	case "add_to_cart":
		return round2(5 + g.rnd.Float64()*120)
	default:
		return 0
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
