package main

import "github.com/urfave/cli/v2"

var (
	ConfigFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	DataDirFlag = &cli.StringFlag{
		Name:  "db.path",
		Usage: "Data directory for the node's state",
		Value: "./aureusd-data",
	}
	MempoolMaxSizeFlag = &cli.IntFlag{
		Name:  "mempool.maxSize",
		Usage: "Maximum number of pending transactions held in the mempool",
		Value: 5000,
	}
	MempoolMaxNonceGapFlag = &cli.Uint64Flag{
		Name:  "mempool.maxNonceGap",
		Usage: "Maximum nonce gap ahead of the chain nonce a sender's future transactions may occupy",
		Value: 64,
	}
	MempoolMinAcceptableFeeWeiFlag = &cli.Uint64Flag{
		Name:  "mempool.minAcceptableFeeWei",
		Usage: "Minimum flat fee, in wei, a transaction must carry to be admitted ahead of the network fee floor",
		Value: 0,
	}
	MempoolTxExpireTimeInMinutesFlag = &cli.Uint64Flag{
		Name:  "mempool.txExpireTimeInMinutes",
		Usage: "Minutes a pending transaction may sit in the mempool before prune() evicts it",
		Value: 180,
	}
	MempoolPruneIntervalMsFlag = &cli.Uint64Flag{
		Name:  "mempool.pruneIntervalMs",
		Usage: "Interval, in milliseconds, between mempool prune() sweeps",
		Value: 60_000,
	}
	MiningEnableFlag = &cli.BoolFlag{
		Name:  "mining.enable",
		Usage: "Allocate the RandomX full dataset and permit CreateMiningVM",
	}
	RandomXEpochLengthFlag = &cli.Uint64Flag{
		Name:  "randomx.epochLength",
		Usage: "Number of blocks per RandomX epoch",
		Value: 2048,
	}
	RandomXGenesisKeyFlag = &cli.StringFlag{
		Name:  "randomx.genesisKey",
		Usage: "Seed key for epoch 0 (defaults to the built-in genesis key if unset)",
	}
	LogLevelFlag = &cli.StringFlag{
		Name:  "log.level",
		Usage: "Logging verbosity: crit, error, warn, info, debug, trace",
		Value: "info",
	}
)

var AppFlags = []cli.Flag{
	ConfigFileFlag,
	DataDirFlag,
	MempoolMaxSizeFlag,
	MempoolMaxNonceGapFlag,
	MempoolMinAcceptableFeeWeiFlag,
	MempoolTxExpireTimeInMinutesFlag,
	MempoolPruneIntervalMsFlag,
	MiningEnableFlag,
	RandomXEpochLengthFlag,
	RandomXGenesisKeyFlag,
	LogLevelFlag,
}
