// Package ledger adapts an external, eventually-consistent payment service.
// Callers submit a transfer and receive a handle; the adapter polls the
// service until it reaches a terminal status and surfaces exactly one
// settled or failed outcome. Intermediate states never leak to callers.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Status is the upstream service's transaction lifecycle vocabulary.
type Status string

const (
	StatusSubmitted           Status = "submitted"
	StatusPending             Status = "pending"
	StatusProcessing          Status = "processing"
	StatusInitiated           Status = "initiated"
	StatusApproved            Status = "approved"
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusSuccess             Status = "success"
	StatusFailed              Status = "failed"
	StatusRejected            Status = "rejected"
	StatusCancelled           Status = "cancelled"
)

// Class collapses the upstream vocabulary into the three classes the
// game cares about.
type Class int

const (
	NonTerminal Class = iota
	TerminalSuccess
	TerminalFailure
)

// Classify maps a status into its class. Unknown statuses are treated as
// non-terminal so polling continues until the timeout decides.
func Classify(s Status) Class {
	switch s {
	case StatusSuccess:
		return TerminalSuccess
	case StatusFailed, StatusRejected, StatusCancelled:
		return TerminalFailure
	default:
		return NonTerminal
	}
}

// Treasury is the bank-side account for rents to nobody, taxes, purchases
// and salaries.
const Treasury = "treasury"

// Request describes one money movement.
type Request struct {
	From   string
	To     string
	Amount int64
	Reason string
	Trace  map[string]interface{}
}

// Service is the upstream payment interface.
type Service interface {
	Submit(ctx context.Context, req Request) (string, error)
	PollStatus(ctx context.Context, txID string) (Status, error)
}

// ErrTimeout means the payment did not reach a terminal status in time.
// The outcome is UNKNOWN: the transfer may still settle upstream. Callers
// must halt the dependent game step rather than retry or assume failure.
var ErrTimeout = errors.New("ledger: no terminal status before timeout")

// Outcome is the single terminal result of a transfer.
type Outcome struct {
	TxID    string
	Settled bool
	Status  Status
	Reason  string
}

// Pending is the handle for an in-flight transfer.
type Pending struct {
	TxID string
	Req  Request

	done     chan struct{}
	outcome  Outcome
	err      error
	consumed sync.Once
}

// Wait blocks until the transfer reaches a terminal outcome, the adapter
// times out, or ctx is cancelled. It is safe to call repeatedly; the
// outcome is computed once.
func (p *Pending) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-p.done:
		return p.outcome, p.err
	case <-ctx.Done():
		return Outcome{TxID: p.TxID}, ctx.Err()
	}
}

// Consume marks the payment's game-level consequence as applied. The first
// call returns true, every later call false, so a re-observed terminal
// status can never re-apply its consequence.
func (p *Pending) Consume() bool {
	first := false
	p.consumed.Do(func() { first = true })
	return first
}

// Adapter submits transfers and owns the poll loop.
type Adapter struct {
	svc      Service
	interval time.Duration
	timeout  time.Duration
	log      *logrus.Entry
}

// NewAdapter wires a service with the configured poll interval and timeout.
func NewAdapter(svc Service, interval, timeout time.Duration, log *logrus.Entry) *Adapter {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{svc: svc, interval: interval, timeout: timeout, log: log}
}

// Transfer submits the request and starts polling in the background.
// Submission failures surface through the returned handle's Wait, so the
// caller has a single place to observe the result.
func (a *Adapter) Transfer(ctx context.Context, req Request) *Pending {
	p := &Pending{Req: req, done: make(chan struct{})}

	txID, err := a.svc.Submit(ctx, req)
	if err != nil {
		a.log.WithError(err).WithField("reason", req.Reason).Warn("payment submission failed")
		p.outcome = Outcome{Settled: false, Status: StatusRejected, Reason: err.Error()}
		close(p.done)
		return p
	}
	p.TxID = txID

	go a.poll(ctx, p)
	return p
}

func (a *Adapter) poll(ctx context.Context, p *Pending) {
	defer close(p.done)

	deadline := time.NewTimer(a.timeout)
	defer deadline.Stop()
	tick := time.NewTicker(a.interval)
	defer tick.Stop()

	for {
		status, err := a.svc.PollStatus(ctx, p.TxID)
		if err != nil {
			// Transient poll failures keep polling; the timeout decides.
			a.log.WithError(err).WithField("tx", p.TxID).Debug("poll failed")
		} else {
			switch Classify(status) {
			case TerminalSuccess:
				p.outcome = Outcome{TxID: p.TxID, Settled: true, Status: status}
				a.log.WithField("tx", p.TxID).Debug("payment settled")
				return
			case TerminalFailure:
				p.outcome = Outcome{TxID: p.TxID, Settled: false, Status: status, Reason: string(status)}
				a.log.WithFields(logrus.Fields{"tx": p.TxID, "status": status}).Warn("payment failed")
				return
			}
		}

		select {
		case <-tick.C:
		case <-deadline.C:
			p.outcome = Outcome{TxID: p.TxID}
			p.err = ErrTimeout
			a.log.WithField("tx", p.TxID).Error("payment outcome unknown: poll timeout")
			return
		case <-ctx.Done():
			p.outcome = Outcome{TxID: p.TxID}
			p.err = ctx.Err()
			return
		}
	}
}
