// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const OpportunitiesPath = "/triarb/opportunities"

type OpportunitiesRequest struct {
	// Limit is the max number of events. Zero returns all retained events.
	Limit int
}

type Opportunity struct {
	ID uuid.UUID

	PathID    int
	Operation string
	Symbols   []string
	Trigger   string

	InitialQuantity decimal.Decimal
	FinalQuantity   decimal.Decimal
	Profit          decimal.Decimal
	ProfitAsset     string

	DetectedAt time.Time
}

type OpportunitiesResponse struct {
	// Opportunities are ordered newest first.
	Opportunities []*Opportunity
}
