// Command aureusd wires the PoW hashing, validation and mempool
// subsystems into a runnable process: load config, build the
// collaborators each subsystem expects (§6), run the prune scheduler,
// and shut down cleanly on signal.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"

	"github.com/aureuschain/aureusd/consensus/difficulty"
	"github.com/aureuschain/aureusd/consensus/randomx"
	"github.com/aureuschain/aureusd/consensus/validator"
	"github.com/aureuschain/aureusd/core"
	"github.com/aureuschain/aureusd/core/memstate"
	"github.com/aureuschain/aureusd/domain"
	"github.com/aureuschain/aureusd/mempool"
)

func main() {
	app := &cli.App{
		Name:  "aureusd",
		Usage: "Aureus node core: PoW validation and mempool",
		Flags: AppFlags,
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		if coder, ok := err.(cli.ExitCoder); ok {
			log.Error(err.Error())
			os.Exit(coder.ExitCode())
		}
		log.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	setupLogging(cfg.LogLevel)
	log.Info("starting aureusd", "dbPath", cfg.DBPath, "miningEnabled", cfg.Mining.Enable)

	params := core.NetworkParams{
		TargetMiningTimeMs:  60_000,
		AsertHalfLifeBlocks: 2048,
		MinDifficulty:       *uint256.NewInt(1),
		MinTxBaseFee:        domain.ZeroWei,
		MinTxByteFee:        domain.ZeroWei,
	}
	store := memstate.New(params)
	bus := core.NewFeedEventBus()

	hasher := randomx.New(randomx.Config{
		EpochLength:   cfg.RandomX.EpochLength,
		GenesisKey:    []byte(cfg.RandomX.GenesisKey),
		MiningEnabled: cfg.Mining.Enable,
		LargePages:    true,
		IsDarwin:      runtime.GOOS == "darwin",
	}, store)
	if err := hasher.EnsureInitializedForHeight(0); err != nil {
		log.Error("randomx hasher initialization failed", "err", err)
		return cli.Exit(err, 1)
	}
	defer hasher.Shutdown()

	diffEngine := difficulty.NewEngine(anchorSourceFrom(store))
	txValidator := validator.NewTxValidator(validator.DefaultLimits)
	blockValidator := validator.NewBlockValidator(hasher, diffEngine, noopCheckpoints{}, txValidator, validator.DefaultLimits)
	_ = blockValidator // held by the future P2P/sync layer (out of scope here); constructed to prove the wiring compiles end to end

	mpCfg := mempool.EngineConfig{
		MaxSize:             cfg.Mempool.MaxSize,
		MaxNonceGap:         cfg.Mempool.MaxNonceGap,
		MinAcceptableFeeWei: domain.NewWeiFromUint64(cfg.Mempool.MinAcceptableFeeWei),
		TxExpireTimeMinutes: cfg.Mempool.TxExpireTimeInMinutes,
		PruneIntervalMs:     cfg.Mempool.PruneIntervalMs,
	}
	engine := mempool.NewEngine(mpCfg, store, store, bus, txValidator, nowMs)

	stop := make(chan struct{})
	go runPruneScheduler(engine, mpCfg, stop)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	close(stop)
	log.Info("shutdown signal received, draining")
	return nil
}

func nowMs() uint64 { return uint64(time.Now().UnixMilli()) }

// runPruneScheduler ticks every PruneIntervalMs and evicts mempool
// entries older than TxExpireTimeInMinutes (§4.7 prune).
func runPruneScheduler(engine *mempool.Engine, cfg mempool.EngineConfig, stop <-chan struct{}) {
	interval := time.Duration(cfg.PruneIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Minute
	}
	expireAfter := time.Duration(cfg.TxExpireTimeMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			cutoff := uint64(time.Now().Add(-expireAfter).UnixMilli())
			engine.Prune(cutoff)
		}
	}
}

// anchorSourceFrom adapts a ChainQuery's stored blocks into the
// difficulty engine's narrow AnchorSource.
func anchorSourceFrom(store *memstate.Store) difficulty.AnchorSource {
	return func(height uint64) (difficulty.Anchor, bool) {
		block, ok := store.StoredBlockByHeight(height)
		if !ok {
			return difficulty.Anchor{}, false
		}
		return difficulty.Anchor{
			Height:      block.Header.Height,
			TimestampMs: block.Header.TimestampMs,
			Difficulty:  block.Header.Difficulty,
		}, true
	}
}

// noopCheckpoints accepts every height/hash pair; a real deployment
// pins a (height -> hash) table (§4.3 step 2), out of scope here
// since checkpoint distribution is a P2P/config concern.
type noopCheckpoints struct{}

func (noopCheckpoints) Verify(height uint64, hash domain.Hash) bool { return true }

func setupLogging(level string) {
	lvl := parseLogLevel(level)
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)
	log.SetDefault(log.NewLogger(handler))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "crit":
		return log.LevelCrit
	case "error":
		return log.LevelError
	case "warn":
		return log.LevelWarn
	case "debug":
		return log.LevelDebug
	case "trace":
		return log.LevelTrace
	default:
		return log.LevelInfo
	}
}
