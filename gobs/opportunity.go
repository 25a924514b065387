// Copyright (c) 2025 BVK Chaitanya

package gobs

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpportunityEvent reports a path whose final quantity exceeds the initial
// quantity. Events are not persisted by the detector itself.
type OpportunityEvent struct {
	ID uuid.UUID

	Path *TriangularPath

	// Trigger is the symbol whose update caused the evaluation, if any.
	Trigger string

	InitialQuantity decimal.Decimal
	FinalQuantity   decimal.Decimal

	Profit      decimal.Decimal
	ProfitAsset string

	DetectedAt time.Time
}
