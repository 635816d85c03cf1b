package main

import (
	"os"
	"reflect"
	"strings"

	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"
)

// tomlSettings mirrors go-ethereum's cmd/geth NameMapper convention:
// struct fields are written in Go-idiomatic PascalCase but the config
// file keys stay lowerCamelCase to match the CLI flag names.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return strings.ToLower(field[:1]) + field[1:]
	},
	MissingField: func(rt reflect.Type, field string) error {
		return nil
	},
}

// mempoolConfig mirrors §4.7/§6's mempool config surface.
type mempoolConfig struct {
	MaxSize                 int
	MaxNonceGap              uint64
	MinAcceptableFeeWei      uint64
	TxExpireTimeInMinutes    uint64
	PruneIntervalMs          uint64
}

// randomxConfig mirrors §4.1's epoch/genesis-key config surface.
type randomxConfig struct {
	EpochLength uint64
	GenesisKey  string
}

// miningConfig mirrors §4.1's mining-enablement toggle.
type miningConfig struct {
	Enable bool
}

// aureusConfig is the full node configuration, loadable from a TOML
// file and overridable by CLI flags (§6).
type aureusConfig struct {
	DBPath   string
	Mempool  mempoolConfig
	Mining   miningConfig
	RandomX  randomxConfig
	LogLevel string
}

func defaultConfig() aureusConfig {
	return aureusConfig{
		DBPath: DataDirFlag.Value,
		Mempool: mempoolConfig{
			MaxSize:               MempoolMaxSizeFlag.Value,
			MaxNonceGap:           MempoolMaxNonceGapFlag.Value,
			MinAcceptableFeeWei:   MempoolMinAcceptableFeeWeiFlag.Value,
			TxExpireTimeInMinutes: MempoolTxExpireTimeInMinutesFlag.Value,
			PruneIntervalMs:       MempoolPruneIntervalMsFlag.Value,
		},
		RandomX: randomxConfig{
			EpochLength: RandomXEpochLengthFlag.Value,
		},
		LogLevel: LogLevelFlag.Value,
	}
}

// loadTOMLFile reads a TOML config file into cfg, following
// tomlSettings' lowerCamelCase key convention.
func loadTOMLFile(path string, cfg *aureusConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return tomlSettings.NewDecoder(f).Decode(cfg)
}

// loadConfig builds the effective configuration: defaults, then an
// optional TOML file, then any CLI flags the operator explicitly set,
// in that precedence order (lowest to highest).
func loadConfig(ctx *cli.Context) (aureusConfig, error) {
	cfg := defaultConfig()

	if ctx.IsSet(ConfigFileFlag.Name) {
		if err := loadTOMLFile(ctx.String(ConfigFileFlag.Name), &cfg); err != nil {
			return cfg, err
		}
	}

	if ctx.IsSet(DataDirFlag.Name) {
		cfg.DBPath = ctx.String(DataDirFlag.Name)
	}
	if ctx.IsSet(MempoolMaxSizeFlag.Name) {
		cfg.Mempool.MaxSize = ctx.Int(MempoolMaxSizeFlag.Name)
	}
	if ctx.IsSet(MempoolMaxNonceGapFlag.Name) {
		cfg.Mempool.MaxNonceGap = ctx.Uint64(MempoolMaxNonceGapFlag.Name)
	}
	if ctx.IsSet(MempoolMinAcceptableFeeWeiFlag.Name) {
		cfg.Mempool.MinAcceptableFeeWei = ctx.Uint64(MempoolMinAcceptableFeeWeiFlag.Name)
	}
	if ctx.IsSet(MempoolTxExpireTimeInMinutesFlag.Name) {
		cfg.Mempool.TxExpireTimeInMinutes = ctx.Uint64(MempoolTxExpireTimeInMinutesFlag.Name)
	}
	if ctx.IsSet(MempoolPruneIntervalMsFlag.Name) {
		cfg.Mempool.PruneIntervalMs = ctx.Uint64(MempoolPruneIntervalMsFlag.Name)
	}
	if ctx.IsSet(MiningEnableFlag.Name) {
		cfg.Mining.Enable = ctx.Bool(MiningEnableFlag.Name)
	}
	if ctx.IsSet(RandomXEpochLengthFlag.Name) {
		cfg.RandomX.EpochLength = ctx.Uint64(RandomXEpochLengthFlag.Name)
	}
	if ctx.IsSet(RandomXGenesisKeyFlag.Name) {
		cfg.RandomX.GenesisKey = ctx.String(RandomXGenesisKeyFlag.Name)
	}
	if ctx.IsSet(LogLevelFlag.Name) {
		cfg.LogLevel = ctx.String(LogLevelFlag.Name)
	}
	return cfg, nil
}
