package config

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	maxPayoutCeiling = 10_000
	feeCeiling       = 10_000
)

// Validate rejects configurations the engines would refuse at runtime, so
// misconfiguration fails at boot instead of on the first deposit.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress is required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir is required")
	}
	if cfg.BlockIntervalSeconds == 0 {
		return fmt.Errorf("config: BlockIntervalSeconds must be positive")
	}

	symbols := make(map[string]bool, len(cfg.Tokens))
	for i, tok := range cfg.Tokens {
		symbol := strings.ToUpper(strings.TrimSpace(tok.Symbol))
		if symbol == "" {
			return fmt.Errorf("config: tokens[%d] missing symbol", i)
		}
		if symbols[symbol] {
			return fmt.Errorf("config: duplicate token %s", symbol)
		}
		symbols[symbol] = true
		if (tok.Token0 == "") != (tok.Token1 == "") {
			return fmt.Errorf("config: pool token %s must name both legs", symbol)
		}
	}

	genesis := cfg.Genesis
	if genesis.RewardToken != "" && !symbols[strings.ToUpper(genesis.RewardToken)] {
		return fmt.Errorf("config: genesis reward token %s not in token list", genesis.RewardToken)
	}
	if genesis.Principle != "" && !symbols[strings.ToUpper(genesis.Principle)] {
		return fmt.Errorf("config: genesis principle %s not in token list", genesis.Principle)
	}
	if genesis.Terms.MaxPayout > maxPayoutCeiling {
		return fmt.Errorf("config: terms MaxPayout above %d", maxPayoutCeiling)
	}
	if genesis.Terms.Fee > feeCeiling {
		return fmt.Errorf("config: terms Fee above %d", feeCeiling)
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"ControlVariable", genesis.Terms.ControlVariable},
		{"MinimumPriceRate", genesis.Terms.MinimumPriceRate},
		{"MaxDebt", genesis.Terms.MaxDebt},
		{"InitialDebt", genesis.Terms.InitialDebt},
	} {
		if _, err := ParseBig(field.value); err != nil {
			return fmt.Errorf("config: terms %s: %w", field.name, err)
		}
	}
	return nil
}

// ParseBig converts a decimal string term into a big integer. Empty strings
// read as zero.
func ParseBig(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", value)
	}
	if parsed.Sign() < 0 {
		return nil, fmt.Errorf("negative value %q", value)
	}
	return parsed, nil
}
