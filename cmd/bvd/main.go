package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bondvault/config"
	"bondvault/core"
	"bondvault/crypto"
	"bondvault/native/bond"
	"bondvault/native/oracle"
	"bondvault/native/staking"
	"bondvault/native/swap"
	"bondvault/native/token"
	"bondvault/native/treasury"
	bvzap "bondvault/native/zap"
	"bondvault/observability/logging"
	"bondvault/rpc"
	"bondvault/state"
	"bondvault/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("BONDVAULT_ENV"))
	logger := logging.Setup("bvd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager := state.NewManager(db)
	ledger := token.NewLedger()
	ledger.SetState(manager)

	feeds, err := buildOracle(cfg)
	if err != nil {
		logger.Error("Failed to build oracle", slog.Any("error", err))
		os.Exit(1)
	}
	prices := oracle.NewSource(feeds)

	bondAddr := crypto.ModuleAddress("bond")
	treasuryAddr := crypto.ModuleAddress("treasury")
	stakingAddr := crypto.ModuleAddress("staking")
	zapAddr := crypto.ModuleAddress("zap")

	treasuryEngine := treasury.NewEngine(treasuryAddr)
	treasuryEngine.SetState(manager)
	treasuryEngine.SetTokens(ledger)

	locker := staking.NewLocker(stakingAddr, cfg.Genesis.RewardToken)
	locker.SetState(manager)
	locker.SetTokens(ledger)
	locker.SetFundingSource(bondAddr)

	bondEngine := bond.NewEngine(bondAddr)
	bondEngine.SetState(manager)
	bondEngine.SetTokens(ledger)
	bondEngine.SetTreasury(treasuryEngine)
	bondEngine.SetOracle(prices)
	bondEngine.SetStaker(locker)

	zapEngine := bvzap.NewEngine(zapAddr)
	zapEngine.SetState(manager)
	zapEngine.SetTokens(ledger)
	zapEngine.SetDepository(bondEngine)

	converter := swap.NewConverter(crypto.ModuleAddress("swap"), cfg.Genesis.Principle)
	converter.SetTokens(ledger)
	converter.SetPrices(prices)
	zapEngine.SetConverter(converter)

	if err := bootstrap(cfg, manager, ledger, treasuryEngine, bondEngine, zapEngine, bondAddr, stakingAddr, treasuryAddr); err != nil {
		logger.Error("Failed to bootstrap state", slog.Any("error", err))
		os.Exit(1)
	}

	node, err := core.NewNode(manager, ledger, bondEngine, treasuryEngine, zapEngine, locker, logger)
	if err != nil {
		logger.Error("Failed to construct node", slog.Any("error", err))
		os.Exit(1)
	}

	go runBlockClock(node, time.Duration(cfg.BlockIntervalSeconds)*time.Second, logger)

	if cfg.MetricsAddress != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("starting metrics server", "addr", cfg.MetricsAddress)
			if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
				logger.Error("metrics server stopped", slog.Any("error", err))
			}
		}()
	}

	server := rpc.NewServer(node)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// buildOracle assembles the price feed stack from configuration: a manual
// feed for operator overrides and CoinGecko when mapped, consulted in the
// configured priority order.
func buildOracle(cfg *config.Config) (*oracle.Aggregator, error) {
	maxAge := time.Duration(cfg.Oracle.MaxQuoteAgeSeconds) * time.Second
	agg := oracle.NewAggregator(cfg.Oracle.Priority, maxAge)
	for _, name := range cfg.Oracle.Priority {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "manual":
			agg.Register("manual", oracle.NewManual())
		case "coingecko":
			agg.Register("coingecko", oracle.NewCoinGecko(nil, cfg.Oracle.CoinGeckoEndpoint, cfg.Oracle.CoinGeckoIDs))
		default:
			return nil, fmt.Errorf("unknown oracle feed %q", name)
		}
	}
	return agg, nil
}

// bootstrap registers the configured tokens and initializes the engines. All
// steps are idempotent so restarts replay them harmlessly.
func bootstrap(cfg *config.Config, manager *state.Manager, ledger *token.Ledger, treasuryEngine *treasury.Engine, bondEngine *bond.Engine, zapEngine *bvzap.Engine, bondAddr, stakingAddr, treasuryAddr crypto.Address) error {
	for _, tok := range cfg.Tokens {
		err := ledger.Register(&token.Info{
			Symbol:   tok.Symbol,
			Name:     tok.Name,
			Decimals: tok.Decimals,
			Token0:   tok.Token0,
			Token1:   tok.Token1,
		})
		if err != nil && !errors.Is(err, token.ErrTokenExists) {
			return fmt.Errorf("register token %s: %w", tok.Symbol, err)
		}
	}

	genesis := cfg.Genesis
	if genesis.Admin == "" {
		return manager.Commit()
	}
	admin, err := crypto.DecodeAddress(genesis.Admin)
	if err != nil {
		return fmt.Errorf("genesis admin: %w", err)
	}
	dao := admin
	if genesis.DAO != "" {
		if dao, err = crypto.DecodeAddress(genesis.DAO); err != nil {
			return fmt.Errorf("genesis dao: %w", err)
		}
	}

	if err := treasuryEngine.Initialize(admin, genesis.RewardToken, dao); err != nil && !errors.Is(err, treasury.ErrAlreadyInitialized) {
		return fmt.Errorf("initialize treasury: %w", err)
	}
	if err := treasuryEngine.Register(admin, genesis.Principle, bondAddr); err != nil && !errors.Is(err, treasury.ErrDepositorExists) {
		return fmt.Errorf("register depository: %w", err)
	}

	if err := bondEngine.Initialize(genesis.RewardToken, genesis.Principle, admin, stakingAddr, treasuryAddr, dao); err != nil && !errors.Is(err, bond.ErrAlreadyInitialized) {
		return fmt.Errorf("initialize depository: %w", err)
	}
	if err := zapEngine.Initialize(admin); err != nil && !errors.Is(err, bvzap.ErrAlreadyInitialized) {
		return fmt.Errorf("initialize zap: %w", err)
	}

	controlVariable, err := config.ParseBig(genesis.Terms.ControlVariable)
	if err != nil {
		return err
	}
	if controlVariable.Sign() > 0 {
		minimumRate, err := config.ParseBig(genesis.Terms.MinimumPriceRate)
		if err != nil {
			return err
		}
		maxDebt, err := config.ParseBig(genesis.Terms.MaxDebt)
		if err != nil {
			return err
		}
		initialDebt, err := config.ParseBig(genesis.Terms.InitialDebt)
		if err != nil {
			return err
		}
		err = bondEngine.InitializeBondTerms(admin, controlVariable, genesis.Terms.VestingTerm, minimumRate, genesis.Terms.MaxPayout, genesis.Terms.Fee, maxDebt, initialDebt)
		if err != nil && !errors.Is(err, bond.ErrTermsInitialized) {
			return fmt.Errorf("initialize bond terms: %w", err)
		}
	}

	return manager.Commit()
}

func runBlockClock(node *core.Node, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if err := node.AdvanceBlock(); err != nil {
			logger.Error("failed to advance block", slog.Any("error", err))
		}
	}
}
