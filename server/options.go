// Copyright (c) 2023 BVK Chaitanya

package server

import (
	"fmt"
	"time"

	"github.com/bvk/triarb/evaluator"
	"github.com/bvk/triarb/mexc"
	"github.com/bvk/triarb/supervisor"
	"github.com/shopspring/decimal"
)

type Options struct {
	// InitialAsset selects the paths to watch. Empty selects all paths.
	InitialAsset string

	InitialQuantity decimal.Decimal

	// MaxDepth is the number of levels kept per book side.
	MaxDepth int

	// RecentSize is the number of opportunities kept for the status api.
	RecentSize int

	// ReceiveLimit is the max number of undelivered events per sink
	// subscription.
	ReceiveLimit int

	// StatusInterval is the time between status log lines. Zero disables
	// them.
	StatusInterval time.Duration

	Evaluator  evaluator.Options
	Supervisor supervisor.Options

	// Dialer opens the depth stream connections. Default dialer is used when
	// nil.
	Dialer mexc.Dialer
}

func (v *Options) setDefaults() {
	if v.MaxDepth == 0 {
		v.MaxDepth = v.Supervisor.Session.Depth
	}
	if v.RecentSize == 0 {
		v.RecentSize = 100
	}
	if v.ReceiveLimit == 0 {
		v.ReceiveLimit = 1000
	}
	if v.Dialer == nil {
		v.Dialer = mexc.DefaultDialer()
	}
}

func (v *Options) Check() error {
	if !v.InitialQuantity.IsPositive() {
		return fmt.Errorf("initial quantity %s must be positive", v.InitialQuantity)
	}
	if v.MaxDepth < 0 || v.RecentSize < 0 || v.ReceiveLimit < 0 {
		return fmt.Errorf("depth and size limits cannot be negative")
	}
	if v.StatusInterval < 0 {
		return fmt.Errorf("status interval cannot be negative")
	}
	return nil
}
