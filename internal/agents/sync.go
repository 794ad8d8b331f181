// Package agents enumerates on-chain agent tokens and answers wallet
// eligibility queries for the authentication flow upstream. Reads go through
// the contract gateway; an optional Redis cache absorbs repeated lookups and
// degrades silently to direct chain reads when unavailable.
package agents

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/contracts"
	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/pkg/logger"
)

const agentListCacheKey = "think:agents:list"

// CacheConfig enables the optional registry cache.
type CacheConfig struct {
	Address  string
	Password string
	TTL      time.Duration
}

// listCache is the slice of redis the sync layer needs. A miss is
// reported as redis.Nil.
type listCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

type redisCache struct {
	client *redis.Client
}

func (c redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.client.Get(ctx, key).Bytes()
}

func (c redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c redisCache) Close() error {
	return c.client.Close()
}

// Sync reads the agent registry and merges state-dependent fields.
type Sync struct {
	gateway *contracts.Gateway
	cache   listCache
	ttl     time.Duration
	log     *slog.Logger
}

// NewSync constructs a registry reader. cfg.Address empty disables caching.
func NewSync(gateway *contracts.Gateway, cfg CacheConfig) (*Sync, error) {
	if gateway == nil {
		return nil, xerrors.New(xerrors.CodeConfiguration, "agent sync requires a gateway")
	}
	s := &Sync{
		gateway: gateway,
		ttl:     cfg.TTL,
		log:     logger.Named("agents"),
	}
	if cfg.Address != "" {
		s.cache = redisCache{client: redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
		})}
		if s.ttl <= 0 {
			s.ttl = time.Minute
		}
	}
	return s, nil
}

// Close releases the cache connection if one was opened.
func (s *Sync) Close() error {
	if s.cache != nil {
		return s.cache.Close()
	}
	return nil
}

// List returns every registry token, served from cache when fresh.
func (s *Sync) List(ctx context.Context) ([]contracts.AgentToken, error) {
	if cached, ok := s.cachedList(ctx); ok {
		return cached, nil
	}

	agents, err := s.gateway.AgentList(ctx)
	if err != nil {
		return nil, err
	}
	s.storeList(ctx, agents)
	return agents, nil
}

// VerifyWalletEligibility reports whether the wallet owns an agent token.
// It returns the first owned token, or nil when the wallet owns none —
// callers use nil to refuse agent creation, so absence is a normal outcome,
// not an error.
func (s *Sync) VerifyWalletEligibility(ctx context.Context, wallet common.Address) (*contracts.AgentToken, error) {
	agents, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range agents {
		if agents[i].Owner == wallet {
			s.log.Info("wallet eligible",
				slog.String("wallet", wallet.Hex()),
				slog.String("token_id", agents[i].TokenID.String()))
			clone := agents[i]
			return &clone, nil
		}
	}
	s.log.Debug("wallet owns no agent token", slog.String("wallet", wallet.Hex()))
	return nil, nil
}

// AgentProfile resolves the communication profile for a token id. nil means
// no profile has been set yet.
func (s *Sync) AgentProfile(ctx context.Context, agentID *big.Int) (*contracts.CommProfile, error) {
	return s.gateway.CommProfile(ctx, agentID)
}

func (s *Sync) cachedList(ctx context.Context) ([]contracts.AgentToken, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, agentListCacheKey)
	if err != nil {
		if err != redis.Nil {
			s.log.Warn("agent cache read failed", slog.String("error", err.Error()))
		}
		return nil, false
	}
	var agents []contracts.AgentToken
	if err := json.Unmarshal(raw, &agents); err != nil {
		s.log.Warn("agent cache entry malformed", slog.String("error", err.Error()))
		return nil, false
	}
	return agents, true
}

func (s *Sync) storeList(ctx context.Context, agents []contracts.AgentToken) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(agents)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, agentListCacheKey, raw, s.ttl); err != nil {
		s.log.Warn("agent cache write failed", slog.String("error", err.Error()))
	}
}
