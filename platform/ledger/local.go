package ledger

import (
	"context"
	"fmt"
	"sync"

	uuid "github.com/satori/go.uuid"
)

// LocalService is an in-process payment service with the same
// eventually-consistent shape as the remote one: a submitted transaction
// walks submitted → pending → processing → success, one step per poll.
// It backs local runs and the test suite.
type LocalService struct {
	mu       sync.Mutex
	balances map[string]int64
	txs      map[string]*localTx
}

type localTx struct {
	req     Request
	status  Status
	step    int
	settled bool
}

// Settlement sequence a healthy transaction walks through.
var localSequence = []Status{StatusSubmitted, StatusPending, StatusProcessing, StatusSuccess}

// NewLocalService returns an empty bank. Seed accounts before play.
func NewLocalService() *LocalService {
	return &LocalService{
		balances: make(map[string]int64),
		txs:      make(map[string]*localTx),
	}
}

// Seed sets an account balance, creating the account if needed.
func (s *LocalService) Seed(account string, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[account] = amount
}

// Balance reports an account's settled balance.
func (s *LocalService) Balance(account string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[account]
}

// Submit records the transaction in its initial state. Funds are checked
// and moved at settlement time, not here, mirroring the remote service.
func (s *LocalService) Submit(ctx context.Context, req Request) (string, error) {
	if req.Amount <= 0 {
		return "", fmt.Errorf("ledger: non-positive amount %d", req.Amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewV4().String()
	s.txs[id] = &localTx{req: req, status: StatusSubmitted}
	return id, nil
}

// PollStatus advances the transaction one lifecycle step per poll and
// returns its current status. The balance moves exactly once, on the
// transition into success. The treasury is a bottomless counterparty.
func (s *LocalService) PollStatus(ctx context.Context, txID string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[txID]
	if !ok {
		return "", fmt.Errorf("ledger: unknown transaction %s", txID)
	}
	if Classify(tx.status) != NonTerminal {
		return tx.status, nil
	}

	tx.step++
	if tx.step >= len(localSequence)-1 {
		if tx.req.From != Treasury && s.balances[tx.req.From] < tx.req.Amount {
			tx.status = StatusRejected
			return tx.status, nil
		}
		if !tx.settled {
			s.balances[tx.req.From] -= tx.req.Amount
			s.balances[tx.req.To] += tx.req.Amount
			tx.settled = true
		}
		tx.status = StatusSuccess
		return tx.status, nil
	}
	tx.status = localSequence[tx.step]
	return tx.status, nil
}
