package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvConfigChainIDs(t *testing.T) {
	cases := map[Env]int64{
		EnvDev:     327,
		EnvStaging: 328,
		EnvTestnet: 326,
		EnvProd:    325,
	}
	for env, want := range cases {
		cfg, err := GetEnvConfig(env)
		require.NoError(t, err, env)
		assert.Equal(t, want, cfg.ChainID, env)
	}
}

func TestGetEnvConfigEndpoints(t *testing.T) {
	prod, err := GetEnvConfig(EnvProd)
	require.NoError(t, err)
	assert.Equal(t, "https://edge.grvt.io", prod.Edge.RPCEndpoint)
	assert.Empty(t, prod.Edge.WSEndpoint)
	assert.Equal(t, "wss://market-data.grvt.io/ws", prod.MarketData.WSEndpoint)

	testnet, err := GetEnvConfig(EnvTestnet)
	require.NoError(t, err)
	assert.Equal(t, "https://edge.testnet.grvt.io", testnet.Edge.RPCEndpoint)
	assert.Equal(t, "wss://trades.testnet.grvt.io/ws", testnet.TradeData.WSEndpoint)

	staging, err := GetEnvConfig(EnvStaging)
	require.NoError(t, err)
	assert.Equal(t, "https://trades.staging.gravitymarkets.io", staging.TradeData.RPCEndpoint)
}

func TestParseEnv(t *testing.T) {
	env, err := ParseEnv(" TestNet ")
	require.NoError(t, err)
	assert.Equal(t, EnvTestnet, env)

	_, err = ParseEnv("mainnet")
	assert.Error(t, err)

	_, err = GetEnvConfig(Env("mainnet"))
	assert.Error(t, err)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("GRVTGATE_GRVT_ENV", "prod")
	t.Setenv("GRVTGATE_GRVT_API_KEY", "key-1")
	t.Setenv("GRVTGATE_SESSION_LOGIN_RETRIES", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "key-1", cfg.Grvt.ApiKey)
	assert.Equal(t, 5, cfg.Session.LoginRetries)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.RateLimitBurst)
	assert.Equal(t, 86400, cfg.Server.IdempotencyTTLSeconds)

	env, envCfg, err := cfg.EnvConfig()
	require.NoError(t, err)
	assert.Equal(t, EnvProd, env)
	assert.Equal(t, int64(325), envCfg.ChainID)
}
