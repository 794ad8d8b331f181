package relayer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/auth"
	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
)

const testHash = "0xabc123"

func newTestTokens(t *testing.T) (*auth.TokenManager, func()) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":      "relay-token",
			"expires_in": 3600,
		})
	}))
	tokens := auth.NewTokenManager(auth.TokenConfig{
		AuthURL:  server.URL,
		Username: "relay",
		Password: "secret",
	})
	if !tokens.Authenticate(context.Background()) {
		server.Close()
		t.Fatal("token bootstrap failed")
	}
	return tokens, server.Close
}

// relayStub scripts the status responses returned for successive polls.
type relayStub struct {
	t        *testing.T
	statuses []TxStatus
	polls    atomic.Int64
	submits  atomic.Int64

	lastSubmission map[string]any
	lastRequestID  string
	lastAuthHeader string
}

func (s *relayStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/transactions":
			s.submits.Add(1)
			s.lastRequestID = r.Header.Get("X-Request-ID")
			s.lastAuthHeader = r.Header.Get("Authorization")
			if err := json.NewDecoder(r.Body).Decode(&s.lastSubmission); err != nil {
				s.t.Errorf("decode submission: %v", err)
			}
			_ = json.NewEncoder(w).Encode(Submission{
				TransactionHash: testHash,
				Status:          StatusPending,
			})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/transactions/"):
			index := int(s.polls.Add(1)) - 1
			if index >= len(s.statuses) {
				index = len(s.statuses) - 1
			}
			_ = json.NewEncoder(w).Encode(s.statuses[index])
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestDispatcher(t *testing.T, stub *relayStub, poll PollConfig) *Dispatcher {
	t.Helper()
	tokens, closeTokens := newTestTokens(t)
	t.Cleanup(closeTokens)

	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	d, err := NewDispatcher(Config{URL: server.URL, Poll: poll}, tokens)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return d
}

func TestSubmitRecordsPending(t *testing.T) {
	stub := &relayStub{t: t}
	d := newTestDispatcher(t, stub, PollConfig{})

	submission, err := d.Submit(context.Background(), "0xdeadbeef", "0x1234", "42", 0)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submission.TransactionHash != testHash {
		t.Fatalf("unexpected hash: %q", submission.TransactionHash)
	}
	if d.PendingCount() != 1 {
		t.Fatalf("expected one pending transaction, got %d", d.PendingCount())
	}
	if stub.lastRequestID == "" {
		t.Fatal("expected a request id header")
	}
	if stub.lastAuthHeader != "Bearer relay-token" {
		t.Fatalf("unexpected authorization header: %q", stub.lastAuthHeader)
	}
	if got := stub.lastSubmission["value"]; got != "42" {
		t.Fatalf("value not forwarded: %v", got)
	}
	if got := stub.lastSubmission["gas_limit"]; got != float64(500_000) {
		t.Fatalf("default gas limit not applied: %v", got)
	}
}

func TestWaitConfirmsAfterPendingPolls(t *testing.T) {
	stub := &relayStub{t: t, statuses: []TxStatus{
		{TransactionHash: testHash, Status: StatusPending},
		{TransactionHash: testHash, Status: StatusPending},
		{TransactionHash: testHash, Status: StatusPending},
		{TransactionHash: testHash, Status: StatusPending},
		{TransactionHash: testHash, Status: StatusConfirmed, ConfirmationCount: 2, BlockNumber: 99},
	}}
	d := newTestDispatcher(t, stub, PollConfig{Interval: time.Millisecond, MaxAttempts: 10})

	if _, err := d.Submit(context.Background(), "0xdeadbeef", "0x1234", "", 0); err != nil {
		t.Fatalf("submit: %v", err)
	}

	status, err := d.Wait(context.Background(), testHash, 2)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if status.BlockNumber != 99 {
		t.Fatalf("unexpected block number: %d", status.BlockNumber)
	}
	if got := stub.polls.Load(); got != 5 {
		t.Fatalf("expected 5 polls, got %d", got)
	}
	if d.PendingCount() != 0 {
		t.Fatalf("confirmed transaction still pending: %d", d.PendingCount())
	}
}

func TestWaitKeepsPollingBelowRequestedDepth(t *testing.T) {
	stub := &relayStub{t: t, statuses: []TxStatus{
		{TransactionHash: testHash, Status: StatusConfirmed, ConfirmationCount: 1},
		{TransactionHash: testHash, Status: StatusConfirmed, ConfirmationCount: 3},
	}}
	d := newTestDispatcher(t, stub, PollConfig{Interval: time.Millisecond, MaxAttempts: 10})

	status, err := d.Wait(context.Background(), testHash, 3)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if status.ConfirmationCount != 3 {
		t.Fatalf("returned before requested depth: %d", status.ConfirmationCount)
	}
	if got := stub.polls.Load(); got != 2 {
		t.Fatalf("expected 2 polls, got %d", got)
	}
}

func TestWaitFailedIsTerminal(t *testing.T) {
	stub := &relayStub{t: t, statuses: []TxStatus{
		{
			TransactionHash: testHash,
			Status:          StatusFailed,
			Receipt:         map[string]any{"error": "execution reverted"},
		},
	}}
	d := newTestDispatcher(t, stub, PollConfig{Interval: time.Millisecond, MaxAttempts: 10})

	_, err := d.Wait(context.Background(), testHash, 1)
	if err == nil {
		t.Fatal("expected failed transaction to error")
	}
	if xerrors.CodeOf(err) != xerrors.CodeTransactionFailed {
		t.Fatalf("unexpected error code: %s", xerrors.CodeOf(err))
	}
	if !strings.Contains(err.Error(), "execution reverted") {
		t.Fatalf("relayer error not surfaced: %v", err)
	}
	if got := stub.polls.Load(); got != 1 {
		t.Fatalf("failed status should not be retried, got %d polls", got)
	}
}

func TestWaitExhaustsAttemptBudget(t *testing.T) {
	stub := &relayStub{t: t, statuses: []TxStatus{
		{TransactionHash: testHash, Status: StatusPending},
	}}
	d := newTestDispatcher(t, stub, PollConfig{Interval: time.Millisecond, MaxAttempts: 4})

	_, err := d.Wait(context.Background(), testHash, 1)
	if err == nil {
		t.Fatal("expected exhausted budget to error")
	}
	if xerrors.CodeOf(err) != xerrors.CodeTimeout {
		t.Fatalf("unexpected error code: %s", xerrors.CodeOf(err))
	}
	if got := stub.polls.Load(); got != 4 {
		t.Fatalf("expected 4 polls, got %d", got)
	}
}

func TestWaitHonoursCancellation(t *testing.T) {
	stub := &relayStub{t: t, statuses: []TxStatus{
		{TransactionHash: testHash, Status: StatusPending},
	}}
	d := newTestDispatcher(t, stub, PollConfig{Interval: time.Hour, MaxAttempts: 10})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Wait(ctx, testHash, 1)
	if err == nil {
		t.Fatal("expected cancelled wait to error")
	}
	if xerrors.CodeOf(err) != xerrors.CodeTimeout {
		t.Fatalf("unexpected error code: %s", xerrors.CodeOf(err))
	}
}

type staticEncoder struct {
	data []byte
	to   string
}

func (e staticEncoder) Pack(method string, args ...any) ([]byte, error) { return e.data, nil }
func (e staticEncoder) Target() string                                  { return e.to }

func TestCallContractMethodRoundTrip(t *testing.T) {
	stub := &relayStub{t: t, statuses: []TxStatus{
		{TransactionHash: testHash, Status: StatusConfirmed, ConfirmationCount: 1},
	}}
	d := newTestDispatcher(t, stub, PollConfig{Interval: time.Millisecond, MaxAttempts: 5})

	hash, err := d.CallContractMethod(context.Background(), staticEncoder{
		data: []byte{0xde, 0xad},
		to:   "0xtarget",
	}, "doThing", nil, CallOptions{})
	if err != nil {
		t.Fatalf("call contract method: %v", err)
	}
	if hash != testHash {
		t.Fatalf("unexpected hash: %q", hash)
	}
	if got := stub.lastSubmission["data"]; got != "0xdead" {
		t.Fatalf("call data not hex encoded: %v", got)
	}
	if got := stub.lastSubmission["to"]; got != "0xtarget" {
		t.Fatalf("target not forwarded: %v", got)
	}
	if got := stub.lastSubmission["value"]; got != "0" {
		t.Fatalf("empty value should default to zero: %v", got)
	}
}
