package main

import (
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shahanth4444/multi-tier-treasury-management/pkg/api"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/authority"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/event"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/governance"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/governance/store"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/stake"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/timelock"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/token"
	"github.com/shahanth4444/multi-tier-treasury-management/pkg/treasury"
)

// Config is loaded from the environment with the GOVNODE prefix
type Config struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	AdminAddress    string        `envconfig:"ADMIN_ADDRESS" required:"true"`
	MinStake        int64         `envconfig:"MIN_STAKE" default:"1000"`
	InitialTreasury int64         `envconfig:"INITIAL_TREASURY" default:"0"`
	VotingPeriod    time.Duration `envconfig:"VOTING_PERIOD" default:"72h"`
	Period          time.Duration `envconfig:"PERIOD" default:"24h"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
}

// treasuryRail pays treasury recipients onto the token rail
type treasuryRail struct {
	tokens *token.System
}

func (r *treasuryRail) Transfer(recipient string, amount *big.Int) error {
	return r.tokens.Credit(recipient, amount)
}

func main() {
	var cfg Config
	if err := envconfig.Process("govnode", &cfg); err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		slog.Error("invalid log level", "level", cfg.LogLevel)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	promRegistry := prometheus.NewRegistry()
	events := event.NewBus(promRegistry, logger)

	auth := authority.NewRegistry()
	for _, role := range []authority.Role{
		authority.Admin, authority.Guardian, authority.Executor, authority.Allocator,
	} {
		auth.Grant(cfg.AdminAddress, role)
	}

	tokens := token.NewSystem()
	stakes := stake.NewLedger(tokens, big.NewInt(cfg.MinStake), events)

	govConfig := &governance.Config{
		VotingPeriod: cfg.VotingPeriod,
		Period:       cfg.Period,
	}
	registry := governance.NewRegistry(store.NewMemoryStore(), stakes, auth, events, govConfig)

	treasuryLedger := treasury.NewLedger(&treasuryRail{tokens: tokens}, auth, events)
	if cfg.InitialTreasury > 0 {
		if err := treasuryLedger.Deposit(big.NewInt(cfg.InitialTreasury)); err != nil {
			logger.Error("failed to fund treasury", "error", err)
			os.Exit(1)
		}
	}

	scheduler := timelock.NewScheduler(registry, treasuryLedger, auth, events, govConfig)

	server := api.NewServer(
		registry, scheduler, treasuryLedger, stakes, events,
		promRegistry, logger, cfg.Port,
	)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	if err := server.Shutdown(); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
