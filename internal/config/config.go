package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
)

// Setting keys understood by the gateway. Required keys abort startup when
// missing; optional keys merely disable the code path they configure.
const (
	KeyRPCURL          = "RPC_URL"
	KeyChainID         = "CHAIN_ID"
	KeyRegistryAddress = "THINK_AGENT_STARTSEED_ADDRESS"
	KeyCommAddress     = "THINK_AGENT_COMM_ADDRESS"
	KeyEscrowAddress   = "THINK_AGENT_ESCROW_ADDRESS"
	KeyAuthMode        = "AUTH_MODE"
	KeyPrivateKey      = "THINK_PROVIDER_PRIVATE_KEY"
	KeyJWTAuthURL      = "JWT_AUTH_URL"
	KeyJWTClientID     = "JWT_CLIENT_ID"
	KeyJWTClientSecret = "JWT_CLIENT_SECRET"
	KeyJWTUsername     = "JWT_USERNAME"
	KeyJWTPassword     = "JWT_PASSWORD"
	KeyJWTRefreshToken = "JWT_REFRESH_TOKEN"
	KeyRelayerURL      = "RELAYER_URL"
	KeyRedisAddress    = "REDIS_ADDRESS"
	KeyRedisPassword   = "REDIS_PASSWORD"
	KeyAgentCacheTTL   = "AGENT_CACHE_TTL_SECONDS"
	KeyAPIAddress      = "API_ADDR"
	KeyLogLevel        = "LOG_LEVEL"
	KeyLogFormat       = "LOG_FORMAT"
	KeyLogOutputs      = "LOG_OUTPUTS"
	KeyConfirmInterval = "CONFIRM_POLL_INTERVAL_SECONDS"
	KeyConfirmAttempts = "CONFIRM_POLL_MAX_ATTEMPTS"
	KeyDefaultGasLimit = "DEFAULT_GAS_LIMIT"
	KeyAlertWebhookURL = "ALERT_WEBHOOK_URL"
)

// AuthMode selects how write operations are authorized.
type AuthMode string

const (
	AuthModePrivateKey AuthMode = "private_key"
	AuthModeJWT        AuthMode = "jwt"
)

// Config is the validated gateway configuration assembled from a Settings
// source.
type Config struct {
	RPCURL          string
	ChainID         *big.Int
	RegistryAddress common.Address
	CommAddress     common.Address
	EscrowAddress   common.Address

	AuthMode   AuthMode
	PrivateKey string

	JWT     JWTConfig
	Relayer RelayerConfig
	Redis   RedisConfig
	API     APIConfig
	Log     LogConfig

	AlertWebhookURL string
}

// JWTConfig holds the delegated-authorization credentials.
type JWTConfig struct {
	AuthURL      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	RefreshToken string
}

// RelayerConfig holds the relayer endpoint and confirmation-poll tuning.
type RelayerConfig struct {
	URL             string
	PollIntervalSec int
	PollMaxAttempts int
	DefaultGasLimit uint64
}

// RedisConfig enables the optional agent registry cache.
type RedisConfig struct {
	Address       string
	Password      string
	CacheTTLSec   int
}

// APIConfig controls the REST surface.
type APIConfig struct {
	Address string
}

// LogConfig feeds pkg/logger.
type LogConfig struct {
	Level   string
	Format  string
	Outputs []string
}

var requiredKeys = []string{
	KeyRPCURL,
	KeyChainID,
	KeyRegistryAddress,
	KeyCommAddress,
	KeyEscrowAddress,
}

// Load reads and validates the gateway configuration from the settings
// source. Missing required keys are fatal; missing optional keys disable the
// code path they would configure.
func Load(settings Settings) (*Config, error) {
	if settings == nil {
		return nil, xerrors.New(xerrors.CodeConfiguration, "settings source is required")
	}

	for _, key := range requiredKeys {
		if settings.GetSetting(key) == "" {
			return nil, xerrors.New(xerrors.CodeConfiguration,
				fmt.Sprintf("required setting %s is missing", key))
		}
	}

	chainID, ok := new(big.Int).SetString(settings.GetSetting(KeyChainID), 10)
	if !ok {
		return nil, xerrors.New(xerrors.CodeConfiguration,
			fmt.Sprintf("setting %s is not a decimal chain id", KeyChainID))
	}

	cfg := &Config{
		RPCURL:     settings.GetSetting(KeyRPCURL),
		ChainID:    chainID,
		AuthMode:   AuthModePrivateKey,
		PrivateKey: settings.GetSetting(KeyPrivateKey),
		JWT: JWTConfig{
			AuthURL:      settings.GetSetting(KeyJWTAuthURL),
			ClientID:     settings.GetSetting(KeyJWTClientID),
			ClientSecret: settings.GetSetting(KeyJWTClientSecret),
			Username:     settings.GetSetting(KeyJWTUsername),
			Password:     settings.GetSetting(KeyJWTPassword),
			RefreshToken: settings.GetSetting(KeyJWTRefreshToken),
		},
		Relayer: RelayerConfig{
			URL:             settings.GetSetting(KeyRelayerURL),
			PollIntervalSec: parsePositiveInt(settings.GetSetting(KeyConfirmInterval), 3),
			PollMaxAttempts: parsePositiveInt(settings.GetSetting(KeyConfirmAttempts), 20),
			DefaultGasLimit: uint64(parsePositiveInt(settings.GetSetting(KeyDefaultGasLimit), 500_000)),
		},
		Redis: RedisConfig{
			Address:     settings.GetSetting(KeyRedisAddress),
			Password:    settings.GetSetting(KeyRedisPassword),
			CacheTTLSec: parsePositiveInt(settings.GetSetting(KeyAgentCacheTTL), 60),
		},
		API: APIConfig{Address: settings.GetSetting(KeyAPIAddress)},
		Log: LogConfig{
			Level:   settings.GetSetting(KeyLogLevel),
			Format:  settings.GetSetting(KeyLogFormat),
			Outputs: splitList(settings.GetSetting(KeyLogOutputs)),
		},
		AlertWebhookURL: settings.GetSetting(KeyAlertWebhookURL),
	}

	for key, target := range map[string]*common.Address{
		KeyRegistryAddress: &cfg.RegistryAddress,
		KeyCommAddress:     &cfg.CommAddress,
		KeyEscrowAddress:   &cfg.EscrowAddress,
	} {
		raw := settings.GetSetting(key)
		if !common.IsHexAddress(raw) {
			return nil, xerrors.New(xerrors.CodeConfiguration,
				fmt.Sprintf("setting %s is not a hex address", key))
		}
		*target = common.HexToAddress(raw)
	}

	if mode := strings.ToLower(settings.GetSetting(KeyAuthMode)); mode != "" {
		switch AuthMode(mode) {
		case AuthModePrivateKey, AuthModeJWT:
			cfg.AuthMode = AuthMode(mode)
		default:
			return nil, xerrors.New(xerrors.CodeConfiguration,
				fmt.Sprintf("unsupported auth mode %q", mode))
		}
	}

	return cfg, nil
}

// HasJWTAuth reports whether the configuration carries enough material for a
// delegated-authorization session: the endpoint, a client id, and either a
// username/password pair or a refresh token.
func (c *Config) HasJWTAuth() bool {
	if c == nil || c.AuthMode != AuthModeJWT {
		return false
	}
	if c.JWT.AuthURL == "" || c.JWT.ClientID == "" {
		return false
	}
	hasPasswordGrant := c.JWT.Username != "" && c.JWT.Password != ""
	return hasPasswordGrant || c.JWT.RefreshToken != ""
}

// HasRelayer reports whether relayed execution is available.
func (c *Config) HasRelayer() bool {
	return c != nil && c.AuthMode == AuthModeJWT && c.Relayer.URL != ""
}

// HasAgentCache reports whether the optional Redis registry cache is enabled.
func (c *Config) HasAgentCache() bool {
	return c != nil && c.Redis.Address != ""
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	var value int
	if _, err := fmt.Sscanf(raw, "%d", &value); err != nil || value <= 0 {
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
