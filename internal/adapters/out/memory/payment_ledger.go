package memory

import (
	"context"
	"sync"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"
)

var _ ports.PaymentPort = (*PaymentLedger)(nil)

// PaymentLedger settles every refund unless a decision function says
// otherwise. Settled refunds are remembered per order so repeats return the
// first result.
type PaymentLedger struct {
	mu      sync.Mutex
	settled map[string]ports.SettlementResult
	decide  func(orderID kernel.UUID, amount kernel.Money) ports.SettlementResult
	calls   int
}

func NewPaymentLedger() *PaymentLedger {
	return &PaymentLedger{settled: make(map[string]ports.SettlementResult)}
}

// SetDecision overrides the provider's answer for orders not yet settled.
func (l *PaymentLedger) SetDecision(decide func(orderID kernel.UUID, amount kernel.Money) ports.SettlementResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decide = decide
}

func (l *PaymentLedger) Refund(_ context.Context, orderID kernel.UUID, amount kernel.Money) (ports.SettlementResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if res, ok := l.settled[orderID.String()]; ok {
		return res, nil
	}

	res := ports.SettlementResult{Status: ports.SettlementSettled, Reference: "mem-" + orderID.String()}
	if l.decide != nil {
		res = l.decide(orderID, amount)
	}
	if res.Status == ports.SettlementSettled {
		l.settled[orderID.String()] = res
	}
	return res, nil
}

// Calls counts Refund invocations, repeats included.
func (l *PaymentLedger) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
