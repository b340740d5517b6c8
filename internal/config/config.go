package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"liquidityTx/internal/model"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL         string
	ChainID        string
	Sender         string
	From           string
	KeyringBackend string
	CLIApp         string
	GasPrice       string
	Source         string
	PoolsFile      string
	BalancesFile   string
	PGDSN          string
	Journal        string
	JournalPath    string
	DryRun         bool
	PollInterval   time.Duration
	LogLevel       string
	Currencies     []model.Currency
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TXBUILDER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc", "http://localhost:26657")
	v.SetDefault("chain-id", "osmosis-1")
	v.SetDefault("keyring-backend", "os")
	v.SetDefault("cli-app", "osmosisd")
	v.SetDefault("gas-price", "0.0025uosmo")
	v.SetDefault("source", "jsonl")
	v.SetDefault("pools-file", "./data/pools.jsonl")
	v.SetDefault("balances-file", "./data/balances.jsonl")
	v.SetDefault("journal", "jsonl")
	v.SetDefault("journal-path", "./data/journal.jsonl")
	v.SetDefault("poll-interval", time.Second)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	currencies, err := getCurrencies(v, "currencies")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:         v.GetString("rpc"),
		ChainID:        v.GetString("chain-id"),
		Sender:         v.GetString("sender"),
		From:           v.GetString("from"),
		KeyringBackend: v.GetString("keyring-backend"),
		CLIApp:         v.GetString("cli-app"),
		GasPrice:       v.GetString("gas-price"),
		Source:         v.GetString("source"),
		PoolsFile:      v.GetString("pools-file"),
		BalancesFile:   v.GetString("balances-file"),
		PGDSN:          v.GetString("pg-dsn"),
		Journal:        v.GetString("journal"),
		JournalPath:    v.GetString("journal-path"),
		DryRun:         v.GetBool("dry-run"),
		PollInterval:   v.GetDuration("poll-interval"),
		LogLevel:       v.GetString("log-level"),
		Currencies:     currencies,
	}
	if cfg.From == "" {
		cfg.From = cfg.Sender
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Source {
	case "jsonl", "postgres":
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}
	switch c.Journal {
	case "jsonl", "postgres", "bolt", "none":
	default:
		return fmt.Errorf("unknown journal %q", c.Journal)
	}
	if (c.Source == "postgres" || c.Journal == "postgres") && c.PGDSN == "" {
		return fmt.Errorf("pg-dsn is required for postgres")
	}
	return nil
}

// getCurrencies reads a list of {denom, exponent, symbol} tables from the
// config file, or "denom:exponent[:symbol]" items from a flag or env string.
func getCurrencies(v *viper.Viper, key string) ([]model.Currency, error) {
	if !v.IsSet(key) {
		return nil, nil
	}
	if items, ok := v.Get(key).([]interface{}); ok && len(items) > 0 {
		if _, isMap := items[0].(map[string]interface{}); isMap {
			var out []model.Currency
			if err := v.UnmarshalKey(key, &out); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
			return out, nil
		}
	}

	specs := getStringSlice(v, key)
	out := make([]model.Currency, 0, len(specs))
	for _, spec := range specs {
		currency, err := parseCurrency(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, currency)
	}
	return out, nil
}

func parseCurrency(spec string) (model.Currency, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return model.Currency{}, fmt.Errorf("invalid currency %q, want denom:exponent[:symbol]", spec)
	}
	exponent, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil || exponent < 0 {
		return model.Currency{}, fmt.Errorf("invalid exponent in currency %q", spec)
	}
	currency := model.Currency{Denom: parts[0], Exponent: int32(exponent)}
	if len(parts) == 3 {
		currency.Symbol = parts[2]
	}
	return currency, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
