// Copyright (c) 2025 BVK Chaitanya

// Package sink delivers opportunity events to external systems.
package sink

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bvk/triarb/gobs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/visvasity/topic"
)

type Sink interface {
	Name() string

	Publish(ctx context.Context, ev *gobs.OpportunityEvent) error

	Close() error
}

// Run delivers every event from the receiver to all sinks in order until the
// context is canceled or the receiver is closed. Sink failures are logged and
// ignored.
func Run(ctx context.Context, receiver *topic.Receiver[*gobs.OpportunityEvent], sinks ...Sink) error {
	eventsCh, err := topic.ReceiveCh(receiver)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)

		case ev, ok := <-eventsCh:
			if !ok {
				return nil
			}
			Dispatch(ctx, ev, sinks...)
		}
	}
}

// Dispatch publishes one event to all sinks.
func Dispatch(ctx context.Context, ev *gobs.OpportunityEvent, sinks ...Sink) {
	for _, s := range sinks {
		if err := s.Publish(ctx, ev); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Warn("could not publish opportunity (ignored)", "sink", s.Name(), "path", ev.Path, "err", err)
		}
	}
}

// CloseAll closes all sinks and returns the combined error.
func CloseAll(sinks ...Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Payload is the json form of an opportunity event used by the external
// sinks.
type Payload struct {
	ID uuid.UUID `json:"id"`

	Path *gobs.TriangularPath `json:"path"`

	Trigger string `json:"trigger,omitempty"`

	InitialQuantity decimal.Decimal `json:"initial_quantity"`
	FinalQuantity   decimal.Decimal `json:"final_quantity"`
	Profit          decimal.Decimal `json:"profit"`
	ProfitAsset     string          `json:"profit_asset"`

	DetectedAt time.Time `json:"detected_at"`
}

func PayloadOf(ev *gobs.OpportunityEvent) *Payload {
	return &Payload{
		ID:              ev.ID,
		Path:            ev.Path,
		Trigger:         ev.Trigger,
		InitialQuantity: ev.InitialQuantity,
		FinalQuantity:   ev.FinalQuantity,
		Profit:          ev.Profit,
		ProfitAsset:     ev.ProfitAsset,
		DetectedAt:      ev.DetectedAt,
	}
}

type logSink struct{}

// Log returns a sink that logs every event at info level.
func Log() Sink {
	return logSink{}
}

func (logSink) Name() string { return "log" }

func (logSink) Close() error { return nil }

func (logSink) Publish(ctx context.Context, ev *gobs.OpportunityEvent) error {
	slog.Info("opportunity found", "path", ev.Path, "trigger", ev.Trigger, "initial", ev.InitialQuantity, "final", ev.FinalQuantity, "profit", ev.Profit, "asset", ev.ProfitAsset)
	return nil
}
