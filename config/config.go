package config

import (
	"os"
	"path/filepath"

	"bondvault/crypto"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration, persisted as TOML next to the admin
// keystore.
type Config struct {
	RPCAddress           string `toml:"RPCAddress"`
	MetricsAddress       string `toml:"MetricsAddress"`
	DataDir              string `toml:"DataDir"`
	AdminKeystorePath    string `toml:"AdminKeystorePath"`
	BlockIntervalSeconds uint64 `toml:"BlockIntervalSeconds"`
	Environment          string `toml:"Environment"`

	Oracle  Oracle  `toml:"oracle"`
	Tokens  []Token `toml:"tokens"`
	Genesis Genesis `toml:"genesis"`
}

// Oracle selects the price feeds and their freshness window.
type Oracle struct {
	Priority           []string          `toml:"Priority"`
	MaxQuoteAgeSeconds uint64            `toml:"MaxQuoteAgeSeconds"`
	CoinGeckoEndpoint  string            `toml:"CoinGeckoEndpoint"`
	CoinGeckoIDs       map[string]string `toml:"CoinGeckoIDs"`
}

// Token registers a ledger asset at startup. Pool tokens carry both legs.
type Token struct {
	Symbol   string `toml:"Symbol"`
	Name     string `toml:"Name"`
	Decimals uint8  `toml:"Decimals"`
	Token0   string `toml:"Token0,omitempty"`
	Token1   string `toml:"Token1,omitempty"`
}

// Genesis seeds the engines on first boot. Addresses are bech32 strings; the
// big-integer terms are decimal strings so TOML never truncates them.
type Genesis struct {
	Admin       string `toml:"Admin"`
	DAO         string `toml:"DAO"`
	RewardToken string `toml:"RewardToken"`
	Principle   string `toml:"Principle"`
	Terms       Terms  `toml:"terms"`
}

// Terms mirrors the depository bonding terms.
type Terms struct {
	ControlVariable  string `toml:"ControlVariable"`
	VestingTerm      uint64 `toml:"VestingTerm"`
	MinimumPriceRate string `toml:"MinimumPriceRate"`
	MaxPayout        uint64 `toml:"MaxPayout"`
	Fee              uint64 `toml:"Fee"`
	MaxDebt          string `toml:"MaxDebt"`
	InitialDebt      string `toml:"InitialDebt"`
}

// Load reads the configuration from path, creating a default file and admin
// keystore on first run.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.RPCAddress == "" {
		cfg.RPCAddress = ":8080"
	}
	if cfg.MetricsAddress == "" {
		cfg.MetricsAddress = ":9090"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./bondvault-data"
	}
	if cfg.BlockIntervalSeconds == 0 {
		cfg.BlockIntervalSeconds = 5
	}
	if cfg.Environment == "" {
		cfg.Environment = "dev"
	}
	if len(cfg.Oracle.Priority) == 0 {
		cfg.Oracle.Priority = []string{"manual"}
	}
	if cfg.Oracle.MaxQuoteAgeSeconds == 0 {
		cfg.Oracle.MaxQuoteAgeSeconds = 300
	}
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.AdminKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.AdminKeystorePath != keystorePath {
		cfg.AdminKeystorePath = keystorePath
		return persist(configPath, cfg)
	}

	return nil
}

// createDefault creates and saves a default configuration file. The default
// genesis admin is the freshly generated keystore identity.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}
	admin := key.PubKey().Address().String()

	cfg := &Config{
		RPCAddress:           ":8080",
		MetricsAddress:       ":9090",
		DataDir:              "./bondvault-data",
		AdminKeystorePath:    keystorePath,
		BlockIntervalSeconds: 5,
		Environment:          "dev",
		Oracle: Oracle{
			Priority:           []string{"manual"},
			MaxQuoteAgeSeconds: 300,
		},
		Tokens: []Token{
			{Symbol: "BVT", Name: "BondVault Token", Decimals: 9},
			{Symbol: "USDC", Name: "USD Coin", Decimals: 6},
			{Symbol: "BVT-USDC-LP", Name: "BVT/USDC Pool", Decimals: 18, Token0: "BVT", Token1: "USDC"},
		},
		Genesis: Genesis{
			Admin:       admin,
			DAO:         admin,
			RewardToken: "BVT",
			Principle:   "BVT-USDC-LP",
			Terms: Terms{
				ControlVariable:  "1000",
				VestingTerm:      10_000,
				MinimumPriceRate: "0",
				MaxPayout:        10_000,
				Fee:              500,
				MaxDebt:          "10000000000000",
				InitialDebt:      "0",
			},
		},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "admin.keystore")
}
