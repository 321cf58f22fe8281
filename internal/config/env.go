package config

import (
	"fmt"
	"strings"
)

type Env string

const (
	EnvDev     Env = "dev"
	EnvStaging Env = "staging"
	EnvTestnet Env = "testnet"
	EnvProd    Env = "prod"
)

type EndpointConfig struct {
	RPCEndpoint string
	WSEndpoint  string // empty when the service has no stream
}

// EnvConfig is the fixed endpoint and chain tuple of one GRVT deployment.
// It is the only place chain IDs are defined; signing reads them from here.
type EnvConfig struct {
	Edge       EndpointConfig
	TradeData  EndpointConfig
	MarketData EndpointConfig
	ChainID    int64
}

func ParseEnv(s string) (Env, error) {
	env := Env(strings.ToLower(strings.TrimSpace(s)))
	switch env {
	case EnvDev, EnvStaging, EnvTestnet, EnvProd:
		return env, nil
	default:
		return "", fmt.Errorf("unknown environment=%q", s)
	}
}

func GetEnvConfig(env Env) (EnvConfig, error) {
	switch env {
	case EnvProd:
		return EnvConfig{
			Edge:       EndpointConfig{RPCEndpoint: "https://edge.grvt.io"},
			TradeData:  EndpointConfig{RPCEndpoint: "https://trades.grvt.io", WSEndpoint: "wss://trades.grvt.io/ws"},
			MarketData: EndpointConfig{RPCEndpoint: "https://market-data.grvt.io", WSEndpoint: "wss://market-data.grvt.io/ws"},
			ChainID:    325,
		}, nil
	case EnvTestnet:
		return hostedEnv(env, "grvt.io", 326), nil
	case EnvDev:
		return hostedEnv(env, "gravitymarkets.io", 327), nil
	case EnvStaging:
		return hostedEnv(env, "gravitymarkets.io", 328), nil
	default:
		return EnvConfig{}, fmt.Errorf("unknown environment=%q", string(env))
	}
}

func hostedEnv(env Env, domain string, chainID int64) EnvConfig {
	host := func(svc string) string { return fmt.Sprintf("%s.%s.%s", svc, env, domain) }
	return EnvConfig{
		Edge:       EndpointConfig{RPCEndpoint: "https://" + host("edge")},
		TradeData:  EndpointConfig{RPCEndpoint: "https://" + host("trades"), WSEndpoint: "wss://" + host("trades") + "/ws"},
		MarketData: EndpointConfig{RPCEndpoint: "https://" + host("market-data"), WSEndpoint: "wss://" + host("market-data") + "/ws"},
		ChainID:    chainID,
	}
}

// ChainID is a shortcut for signers that only need the domain chain.
func (e Env) ChainID() (int64, error) {
	cfg, err := GetEnvConfig(e)
	if err != nil {
		return 0, err
	}
	return cfg.ChainID, nil
}
