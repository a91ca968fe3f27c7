package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Decision outcome statuses.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// DecisionRecord is the audit row written for every decision cycle.
type DecisionRecord struct {
	RunID              uuid.UUID
	Athlete            string
	Day                time.Time
	FinalModifier      decimal.Decimal
	IntensityModifier  decimal.Decimal
	GapModifier        decimal.Decimal
	Confidence         string
	Recovery           string
	IllnessProbability string
	GapInterpretation  string
	Phase              string
	Payload            json.RawMessage
	Status             string
	Error              *string
	CreatedAt          time.Time
}

// AlertRecord captures an emitted alert for de-duplication/auditing.
type AlertRecord struct {
	ID        int64
	Athlete   string
	Day       time.Time
	Kind      string
	Severity  string
	Channels  []string
	CreatedAt time.Time
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
