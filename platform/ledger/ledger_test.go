package ledger

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scriptedService walks a fixed status sequence, one entry per poll,
// holding the last entry once the script runs out. A non-nil pollErrs
// entry is returned instead of a status for that poll.
type scriptedService struct {
	statuses []Status
	pollErrs []error
	polls    int

	submitErr error
}

func (s *scriptedService) Submit(ctx context.Context, req Request) (string, error) {
	if s.submitErr != nil {
		return "", s.submitErr
	}
	return "tx-1", nil
}

func (s *scriptedService) PollStatus(ctx context.Context, txID string) (Status, error) {
	i := s.polls
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	s.polls++
	if i < len(s.pollErrs) && s.pollErrs[i] != nil {
		return "", s.pollErrs[i]
	}
	return s.statuses[i], nil
}

func testAdapter(svc Service) *Adapter {
	return NewAdapter(svc, time.Millisecond, 500*time.Millisecond, nil)
}

func req() Request {
	return Request{From: "a", To: "b", Amount: 10, Reason: "test"}
}

func TestTransferSettlesThroughFullLifecycle(t *testing.T) {
	svc := &scriptedService{statuses: []Status{
		StatusSubmitted, StatusPending, StatusProcessing, StatusApproved,
		StatusSubmitted, StatusPendingConfirmation, StatusSuccess,
	}}
	p := testAdapter(svc).Transfer(context.Background(), req())

	out, err := p.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !out.Settled || out.Status != StatusSuccess {
		t.Fatalf("outcome = %+v, want settled success", out)
	}
	// Wait is idempotent, the outcome is computed once
	again, err := p.Wait(context.Background())
	if err != nil || again != out {
		t.Fatalf("second wait = %+v, %v", again, err)
	}
}

func TestConsumeIsOneShot(t *testing.T) {
	svc := &scriptedService{statuses: []Status{StatusSuccess}}
	p := testAdapter(svc).Transfer(context.Background(), req())
	if _, err := p.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !p.Consume() {
		t.Fatal("first consume must return true")
	}
	if p.Consume() {
		t.Fatal("second consume must return false")
	}
}

func TestRejectedTransferFails(t *testing.T) {
	svc := &scriptedService{statuses: []Status{StatusPending, StatusRejected}}
	p := testAdapter(svc).Transfer(context.Background(), req())

	out, err := p.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if out.Settled || out.Status != StatusRejected {
		t.Fatalf("outcome = %+v, want unsettled rejection", out)
	}
}

func TestTimeoutLeavesOutcomeUnknown(t *testing.T) {
	svc := &scriptedService{statuses: []Status{StatusPending}}
	a := NewAdapter(svc, time.Millisecond, 20*time.Millisecond, nil)
	p := a.Transfer(context.Background(), req())

	_, err := p.Wait(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestSubmitFailureSurfacesThroughWait(t *testing.T) {
	svc := &scriptedService{submitErr: errors.New("upstream down")}
	p := testAdapter(svc).Transfer(context.Background(), req())

	out, err := p.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if out.Settled || out.Reason != "upstream down" {
		t.Fatalf("outcome = %+v, want immediate failure", out)
	}
}

func TestTransientPollErrorsKeepPolling(t *testing.T) {
	svc := &scriptedService{
		statuses: []Status{StatusPending, StatusPending, StatusSuccess},
		pollErrs: []error{errors.New("flaky"), errors.New("flaky")},
	}
	p := testAdapter(svc).Transfer(context.Background(), req())

	out, err := p.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !out.Settled {
		t.Fatalf("outcome = %+v, want settled after transient errors", out)
	}
}

func TestClassifyUnknownStatusIsNonTerminal(t *testing.T) {
	if Classify(Status("reconciling")) != NonTerminal {
		t.Fatal("unknown statuses must keep the poll loop alive")
	}
	if Classify(StatusInitiated) != NonTerminal {
		t.Fatal("initiated is non-terminal")
	}
	if Classify(StatusCancelled) != TerminalFailure {
		t.Fatal("cancelled is a terminal failure")
	}
}

func TestLocalServiceSettles(t *testing.T) {
	svc := NewLocalService()
	svc.Seed("a", 100)
	svc.Seed("b", 0)

	p := testAdapter(svc).Transfer(context.Background(), Request{From: "a", To: "b", Amount: 40, Reason: "test"})
	out, err := p.Wait(context.Background())
	if err != nil || !out.Settled {
		t.Fatalf("outcome = %+v, %v", out, err)
	}
	if svc.Balance("a") != 60 || svc.Balance("b") != 40 {
		t.Fatalf("balances = %d/%d, want 60/40", svc.Balance("a"), svc.Balance("b"))
	}
}

func TestLocalServiceRejectsInsufficientFunds(t *testing.T) {
	svc := NewLocalService()
	svc.Seed("a", 10)

	p := testAdapter(svc).Transfer(context.Background(), Request{From: "a", To: "b", Amount: 40, Reason: "test"})
	out, err := p.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if out.Settled || out.Status != StatusRejected {
		t.Fatalf("outcome = %+v, want rejection", out)
	}
	if svc.Balance("a") != 10 {
		t.Fatalf("balance moved on a rejected transfer: %d", svc.Balance("a"))
	}
}

func TestLocalServiceTreasuryIsBottomless(t *testing.T) {
	svc := NewLocalService()
	p := testAdapter(svc).Transfer(context.Background(), Request{From: Treasury, To: "a", Amount: 1000, Reason: "salary"})
	out, err := p.Wait(context.Background())
	if err != nil || !out.Settled {
		t.Fatalf("outcome = %+v, %v", out, err)
	}
	if svc.Balance("a") != 1000 {
		t.Fatalf("balance = %d, want 1000", svc.Balance("a"))
	}
}
