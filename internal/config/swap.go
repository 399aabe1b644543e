package config

import "github.com/spf13/pflag"

// SwapConfig holds configuration for the quote and swap commands on top of
// the shared read-side config.
type SwapConfig struct {
	Config
	PrivateKey  string
	Recipient   string
	TokenIn     string
	TokenOut    string
	Amount      string
	ExactOut    bool
	Journal     string
	PostgresDSN string
}

// LoadSwap merges config file, environment variables, and flags into
// SwapConfig. The private key is expected to arrive via SWAPPER_PRIVATE_KEY
// rather than a flag, but both work.
func LoadSwap(cfgFile string, flags *pflag.FlagSet) (SwapConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return SwapConfig{}, err
	}

	cfg := SwapConfig{
		Config: Config{
			RPCURL:          v.GetString("rpc"),
			PoolManager:     v.GetString("pool-manager"),
			PositionManager: v.GetString("position-manager"),
			Router:          v.GetString("router"),
			MaxRetries:      v.GetInt("max-retries"),
			RetryBackoff:    v.GetDuration("retry-backoff"),
			LogLevel:        v.GetString("log-level"),
		},
		PrivateKey:  v.GetString("private-key"),
		Recipient:   v.GetString("recipient"),
		TokenIn:     v.GetString("token-in"),
		TokenOut:    v.GetString("token-out"),
		Amount:      v.GetString("amount"),
		ExactOut:    v.GetBool("exact-out"),
		Journal:     v.GetString("journal"),
		PostgresDSN: v.GetString("pg-dsn"),
	}

	return cfg, nil
}
