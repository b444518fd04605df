package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kevin07696/subscription-engine/internal/domain/ports"
	"github.com/kevin07696/subscription-engine/pkg/timeutil"
)

// Outcome is the scripted answer to one charge
type Outcome int

const (
	OutcomeApprove Outcome = iota
	OutcomeDecline
	OutcomeError
)

// ParseOutcome maps approve, decline and error to an Outcome
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "approve", "approved", "ok":
		return OutcomeApprove, nil
	case "decline", "declined":
		return OutcomeDecline, nil
	case "error":
		return OutcomeError, nil
	}
	return OutcomeApprove, fmt.Errorf("unknown charge outcome %q", s)
}

// ErrScriptedTransport is the error returned for OutcomeError
var ErrScriptedTransport = errors.New("scripted gateway transport failure")

// ScriptedGateway answers charges from a queue of outcomes, falling back to a default
// once the queue is drained. Like a real gateway it replays the first definitive
// answer, approval or decline, for a repeated idempotency key; transport errors are
// not remembered.
type ScriptedGateway struct {
	mu       sync.Mutex
	clock    timeutil.Clock
	queue    []Outcome
	fallback Outcome
	charges  []ports.ChargeRequest
	answered map[string]*ports.ChargeResult
	seq      int
}

var _ ports.PaymentGateway = (*ScriptedGateway)(nil)

// NewScriptedGateway creates a gateway answering fallback when nothing is queued
func NewScriptedGateway(clock timeutil.Clock, fallback Outcome) *ScriptedGateway {
	return &ScriptedGateway{
		clock:    clock,
		fallback: fallback,
		answered: make(map[string]*ports.ChargeResult),
	}
}

// Queue appends outcomes for the next charges
func (g *ScriptedGateway) Queue(outcomes ...Outcome) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queue = append(g.queue, outcomes...)
}

// Charges returns every charge request received, replays included
func (g *ScriptedGateway) Charges() []ports.ChargeRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ports.ChargeRequest(nil), g.charges...)
}

func (g *ScriptedGateway) Charge(ctx context.Context, req *ports.ChargeRequest) (*ports.ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.charges = append(g.charges, *req)

	if prior, ok := g.answered[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		replay := *prior
		return &replay, nil
	}

	outcome := g.fallback
	if len(g.queue) > 0 {
		outcome = g.queue[0]
		g.queue = g.queue[1:]
	}

	g.seq++
	result := &ports.ChargeResult{
		Timestamp:     g.clock.Now(),
		Amount:        req.Amount,
		TransactionID: fmt.Sprintf("sim-%06d", g.seq),
	}

	switch outcome {
	case OutcomeError:
		return nil, ErrScriptedTransport
	case OutcomeDecline:
		result.ResponseCode = "05"
		result.Message = "Do not honor"
		g.remember(req.IdempotencyKey, result)
		return result, nil
	}

	result.Approved = true
	result.ResponseCode = "00"
	result.Message = "Approved"
	g.remember(req.IdempotencyKey, result)
	return result, nil
}

func (g *ScriptedGateway) remember(key string, result *ports.ChargeResult) {
	if key == "" {
		return
	}
	stored := *result
	g.answered[key] = &stored
}
