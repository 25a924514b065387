// Copyright (c) 2025 BVK Chaitanya

// Package api defines the request and response types served by a running
// detector.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

const StatusPath = "/triarb/status"

type StatusRequest struct {
	// IncludeSessions adds per-symbol stream sessions to the response.
	IncludeSessions bool
}

type SessionStatus struct {
	Symbol string
	State  string

	NumConnects int64
	NumUpdates  int64

	// LastUpdate is zero when the book has never been received.
	LastUpdate time.Time
}

type StatusResponse struct {
	Pid       int
	StartedAt time.Time

	InitialAsset    string
	InitialQuantity decimal.Decimal

	NumPaths     int
	NumSymbols   int
	NumStreaming int
	NumBooks     int

	NumEvaluations   int64
	NumOpportunities int64

	Sinks []string

	// Process resource usage. Zero when unavailable.
	RSS           uint64
	CPUPercent    float64
	NumGoroutines int

	Sessions []*SessionStatus
}
