// Copyright (c) 2025 BVK Chaitanya

package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bvk/triarb/gobs"
)

// Messenger sends a text message to its configured receivers.
type Messenger interface {
	SendMessage(ctx context.Context, at time.Time, text string) error
}

// Notifier is a sink that formats events as text messages. Messages for the
// same path are sent at most once per interval.
type Notifier struct {
	name string

	messenger Messenger

	interval time.Duration

	mu sync.Mutex

	freezeDeadlineMap map[int]time.Time
}

func NewNotifier(name string, m Messenger, interval time.Duration) *Notifier {
	return &Notifier{
		name:              name,
		messenger:         m,
		interval:          interval,
		freezeDeadlineMap: make(map[int]time.Time),
	}
}

func (n *Notifier) Name() string {
	return n.name
}

func (n *Notifier) Close() error {
	if c, ok := n.messenger.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (n *Notifier) Publish(ctx context.Context, ev *gobs.OpportunityEvent) error {
	if !n.allow(ev.Path.SequenceNumber, ev.DetectedAt) {
		return nil
	}
	return n.messenger.SendMessage(ctx, ev.DetectedAt, FormatText(ev))
}

func (n *Notifier) allow(seq int, now time.Time) bool {
	if n.interval <= 0 {
		return true
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if deadline, ok := n.freezeDeadlineMap[seq]; ok && now.Before(deadline) {
		return false
	}
	n.freezeDeadlineMap[seq] = now.Add(n.interval)
	return true
}

// FormatText returns a one line human readable description of the event.
func FormatText(ev *gobs.OpportunityEvent) string {
	p := ev.Path
	return fmt.Sprintf("Path #%d %s %s -> %s -> %s: %s %s returns %s (profit %s %s)",
		p.SequenceNumber, p.Operation, p.LegA.Symbol, p.LegB.Symbol, p.LegC.Symbol,
		ev.InitialQuantity, ev.ProfitAsset, ev.FinalQuantity, ev.Profit.StringFixed(8), ev.ProfitAsset)
}
