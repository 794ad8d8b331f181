package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/actions"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/agents"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/auth"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/contracts"
	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/relayer"
)

var (
	registryAddr = common.HexToAddress("0x1000000000000000000000000000000000000001")
	ownerAddr    = common.HexToAddress("0x2000000000000000000000000000000000000001")
)

// readStub serves one unrevealed registry token.
type readStub struct {
	reads map[string][]byte
}

func newReadStub(t *testing.T) *readStub {
	t.Helper()
	surface, err := contracts.NewRegistrySurface(registryAddr)
	if err != nil {
		t.Fatalf("registry surface: %v", err)
	}
	stub := &readStub{reads: make(map[string][]byte)}

	add := func(method string, args []any, outs ...any) {
		data, err := surface.Pack(method, args...)
		if err != nil {
			t.Fatalf("pack %s: %v", method, err)
		}
		out, err := surface.ABI.Methods[method].Outputs.Pack(outs...)
		if err != nil {
			t.Fatalf("pack %s outputs: %v", method, err)
		}
		stub.reads[hex.EncodeToString(data)] = out
	}

	add("totalSupply", nil, big.NewInt(1))
	add("tokenByIndex", []any{big.NewInt(0)}, big.NewInt(100))
	add("ownerOf", []any{big.NewInt(100)}, ownerAddr)
	add("getTokenState", []any{big.NewInt(100)}, uint8(0))
	return stub
}

func (r *readStub) CallContract(_ context.Context, msg gethcore.CallMsg, _ *big.Int) ([]byte, error) {
	if out, ok := r.reads[hex.EncodeToString(msg.Data)]; ok {
		return out, nil
	}
	return nil, fmt.Errorf("unexpected call")
}

func (r *readStub) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 0, nil
}

func (r *readStub) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (r *readStub) SendTransaction(context.Context, *coretypes.Transaction) error {
	return fmt.Errorf("unexpected broadcast")
}

func (r *readStub) TransactionReceipt(context.Context, common.Hash) (*coretypes.Receipt, error) {
	return nil, gethcore.NotFound
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gateway, err := contracts.NewGateway(contracts.GatewayConfig{
		ChainID:         big.NewInt(31337),
		RegistryAddress: registryAddr,
		CommAddress:     common.HexToAddress("0x1000000000000000000000000000000000000002"),
		EscrowAddress:   common.HexToAddress("0x1000000000000000000000000000000000000003"),
		Poll:            relayer.PollConfig{Interval: time.Millisecond, MaxAttempts: 3},
	}, newReadStub(t), auth.NewCredentials(), nil)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	sync, err := agents.NewSync(gateway, agents.CacheConfig{})
	if err != nil {
		t.Fatalf("new sync: %v", err)
	}
	t.Cleanup(func() { _ = sync.Close() })

	registry := actions.NewRegistry()
	if err := registry.Register(actions.AgentActions(sync)...); err != nil {
		t.Fatalf("register actions: %v", err)
	}
	return NewServer(":0", registry, sync, nil)
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(t)
	rec := httptest.NewRecorder()
	server.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestHandleAgents(t *testing.T) {
	server := newTestServer(t)
	rec := httptest.NewRecorder()
	server.handleAgents(rec, httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d: %s", rec.Code, rec.Body)
	}
	var agentList []contracts.AgentToken
	if err := json.Unmarshal(rec.Body.Bytes(), &agentList); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(agentList) != 1 || agentList[0].Owner != ownerAddr {
		t.Fatalf("unexpected agent list: %+v", agentList)
	}
}

func TestHandleEligibility(t *testing.T) {
	server := newTestServer(t)

	t.Run("eligible", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/api/v1/agents/eligibility?address="+ownerAddr.Hex(), nil)
		server.handleEligibility(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d: %s", rec.Code, rec.Body)
		}
		var body struct {
			Eligible bool `json:"eligible"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !body.Eligible {
			t.Fatal("owner should be eligible")
		}
	})

	t.Run("bad address", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/agents/eligibility?address=nope", nil)
		server.handleEligibility(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
	})
}

func TestHandleActionsListAndExecute(t *testing.T) {
	server := newTestServer(t)

	rec := httptest.NewRecorder()
	server.handleActions(rec, httptest.NewRequest(http.MethodGet, "/api/v1/actions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "think:getAgentList") {
		t.Fatalf("agent actions not listed: %s", rec.Body)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/actions/think:getAgentList", nil)
	server.handleExecute(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d: %s", rec.Code, rec.Body)
	}
}

func TestHandleExecuteErrorMapping(t *testing.T) {
	server := newTestServer(t)

	t.Run("unknown action", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/actions/think:nope", nil)
		server.handleExecute(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.Error.Code != string(xerrors.CodeNotFound) {
			t.Fatalf("unexpected error code: %s", body.Error.Code)
		}
	})

	t.Run("bad body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/actions/think:getAgentList",
			strings.NewReader("not-json"))
		server.handleExecute(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/actions/think:getAgentList", nil)
		server.handleExecute(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
	})
}

func TestStatusMapping(t *testing.T) {
	cases := map[xerrors.Code]int{
		xerrors.CodeInvalidArgument: http.StatusBadRequest,
		xerrors.CodeAuthentication:  http.StatusUnauthorized,
		xerrors.CodeReadOnly:        http.StatusForbidden,
		xerrors.CodeNoAuthPath:      http.StatusForbidden,
		xerrors.CodeNotFound:        http.StatusNotFound,
		xerrors.CodeTimeout:         http.StatusGatewayTimeout,
		xerrors.CodeRPCFailure:      http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := httpStatus(code); got != want {
			t.Fatalf("code %s: got %d want %d", code, got, want)
		}
	}
}
