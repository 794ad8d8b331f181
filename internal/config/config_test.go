package config

import (
	"os"
	"path/filepath"
	"testing"

	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
)

func validSettings() MapSettings {
	return MapSettings{
		KeyRPCURL:          "http://localhost:8545",
		KeyChainID:         "31337",
		KeyRegistryAddress: "0x1000000000000000000000000000000000000001",
		KeyCommAddress:     "0x1000000000000000000000000000000000000002",
		KeyEscrowAddress:   "0x1000000000000000000000000000000000000003",
	}
}

func TestLoadValidatesRequiredKeys(t *testing.T) {
	for _, missing := range requiredKeys {
		settings := validSettings()
		delete(settings, missing)
		_, err := Load(settings)
		if xerrors.CodeOf(err) != xerrors.CodeConfiguration {
			t.Fatalf("missing %s: unexpected error code %s", missing, xerrors.CodeOf(err))
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(validSettings())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ChainID.Int64() != 31337 {
		t.Fatalf("unexpected chain id: %s", cfg.ChainID)
	}
	if cfg.AuthMode != AuthModePrivateKey {
		t.Fatalf("default auth mode should be private_key, got %s", cfg.AuthMode)
	}
	if cfg.Relayer.PollIntervalSec != 3 || cfg.Relayer.PollMaxAttempts != 20 {
		t.Fatalf("unexpected poll defaults: %+v", cfg.Relayer)
	}
	if cfg.Relayer.DefaultGasLimit != 500_000 {
		t.Fatalf("unexpected gas limit default: %d", cfg.Relayer.DefaultGasLimit)
	}
	if cfg.HasRelayer() || cfg.HasJWTAuth() || cfg.HasAgentCache() {
		t.Fatal("optional paths should be disabled by default")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("bad chain id", func(t *testing.T) {
		settings := validSettings()
		settings[KeyChainID] = "mainnet"
		if _, err := Load(settings); err == nil {
			t.Fatal("expected non-decimal chain id to be rejected")
		}
	})

	t.Run("bad address", func(t *testing.T) {
		settings := validSettings()
		settings[KeyEscrowAddress] = "0x123"
		if _, err := Load(settings); err == nil {
			t.Fatal("expected short address to be rejected")
		}
	})

	t.Run("bad auth mode", func(t *testing.T) {
		settings := validSettings()
		settings[KeyAuthMode] = "oauth"
		if _, err := Load(settings); err == nil {
			t.Fatal("expected unknown auth mode to be rejected")
		}
	})
}

func TestHasJWTAuth(t *testing.T) {
	settings := validSettings()
	settings[KeyAuthMode] = "jwt"
	settings[KeyJWTAuthURL] = "https://auth.example/token"
	settings[KeyJWTClientID] = "client-1"

	t.Run("no grant material", func(t *testing.T) {
		cfg, err := Load(settings)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if cfg.HasJWTAuth() {
			t.Fatal("endpoint without credentials should not enable jwt")
		}
	})

	t.Run("password grant", func(t *testing.T) {
		s := validSettings()
		for k, v := range settings {
			s[k] = v
		}
		s[KeyJWTUsername] = "alice"
		s[KeyJWTPassword] = "secret"
		cfg, err := Load(s)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if !cfg.HasJWTAuth() {
			t.Fatal("username/password should enable jwt")
		}
	})

	t.Run("refresh grant", func(t *testing.T) {
		s := validSettings()
		for k, v := range settings {
			s[k] = v
		}
		s[KeyJWTRefreshToken] = "refresh-1"
		cfg, err := Load(s)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if !cfg.HasJWTAuth() {
			t.Fatal("refresh token should enable jwt")
		}
	})
}

func TestHasRelayerRequiresJWTMode(t *testing.T) {
	settings := validSettings()
	settings[KeyRelayerURL] = "https://relay.example"

	cfg, err := Load(settings)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HasRelayer() {
		t.Fatal("relayer must not be used outside jwt mode")
	}

	settings[KeyAuthMode] = "jwt"
	cfg, err = Load(settings)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.HasRelayer() {
		t.Fatal("jwt mode with a relayer url should enable relaying")
	}
}

func TestLayeredSettingsPrecedence(t *testing.T) {
	primary := MapSettings{KeyChainID: "1"}
	fallback := MapSettings{KeyChainID: "31337", KeyRPCURL: "http://fallback:8545"}
	layered := Layered{primary, fallback}

	if got := layered.GetSetting(KeyChainID); got != "1" {
		t.Fatalf("primary value not preferred: %q", got)
	}
	if got := layered.GetSetting(KeyRPCURL); got != "http://fallback:8545" {
		t.Fatalf("fallback value not used: %q", got)
	}
	if got := layered.GetSetting(KeyRelayerURL); got != "" {
		t.Fatalf("missing key should be empty: %q", got)
	}
}

func TestEnvSettingsPrefix(t *testing.T) {
	t.Setenv("THINK_RPC_URL", "http://env:8545")
	env := EnvSettings{Prefix: "THINK_"}
	if got := env.GetSetting(KeyRPCURL); got != "http://env:8545" {
		t.Fatalf("prefixed env lookup failed: %q", got)
	}
}

func TestLoadFileSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := "RPC_URL: http://file:8545\nCHAIN_ID: \"31337\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write settings file: %v", err)
	}

	settings, err := LoadFileSettings(path)
	if err != nil {
		t.Fatalf("load file settings: %v", err)
	}
	if got := settings.GetSetting(KeyRPCURL); got != "http://file:8545" {
		t.Fatalf("unexpected value: %q", got)
	}

	if _, err := LoadFileSettings(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file to error")
	}
}
