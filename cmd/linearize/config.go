// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/clusterlin/internal/log"
	"github.com/btcsuite/clusterlin/linearizer"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultLogLevel      = "info"
	defaultBenchClusters = 100
	defaultBenchSize     = 40
	defaultBenchSeed     = 1
	minBenchSize         = 1
	maxBenchClusters     = 1000000
)

// config defines the configuration options for linearize.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ClusterFile     string        `short:"c" long:"cluster" description:"JSON file holding the cluster to linearize, - for stdin"`
	Old             string        `long:"old" description:"Comma separated linearization to improve, as cluster indices"`
	MaxIterations   uint64        `short:"i" long:"maxiterations" description:"Max search iterations"`
	TimeLimit       time.Duration `long:"timelimit" description:"Max wall-clock time per cluster, 0 for none"`
	NoPostLinearize bool          `long:"nopostlinearize" description:"Skip the post-linearization passes"`
	AtSize          int32         `long:"atsize" description:"Also report the fee collected by the first N vbytes"`
	Bench           bool          `long:"bench" description:"Linearize random clusters and report statistics"`
	BenchClusters   int           `long:"benchclusters" description:"Number of random clusters to linearize"`
	BenchSize       int           `long:"benchsize" description:"Transactions per random cluster {1-512}"`
	BenchSeed       uint64        `long:"benchseed" description:"Seed of the random cluster generator"`
	LogDir          string        `long:"logdir" description:"Directory to write a rotated log file to"`
	DebugLevel      string        `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	ShowVersion     bool          `short:"V" long:"version" description:"Display version information and exit"`

	// oldLin is the parsed form of Old.
	oldLin []int
}

// linearizerConfig returns the service configuration selected by cfg.
func (cfg *config) linearizerConfig() *linearizer.Config {
	lcfg := linearizer.DefaultConfig()
	lcfg.MaxIterations = cfg.MaxIterations
	lcfg.TimeLimit = cfg.TimeLimit
	lcfg.PostLinearize = !cfg.NoPostLinearize
	return lcfg
}

// parseLinearization parses a comma separated list of cluster indices.
func parseLinearization(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	fields := strings.Split(s, ",")
	lin := make([]int, 0, len(fields))
	for _, field := range fields {
		idx, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("invalid index %q", field)
		}
		lin = append(lin, idx)
	}
	return lin, nil
}

// loadConfig initializes and parses the config using command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Parse CLI options and overwrite/add any specified options
//  3. Take the cluster file from the first positional argument when
//     --cluster is not given
//  4. Validate the combination of options
func loadConfig(args []string) (*config, error) {
	// Default config.
	cfg := config{
		MaxIterations: linearizer.DefaultMaxIterations,
		BenchClusters: defaultBenchClusters,
		BenchSize:     defaultBenchSize,
		BenchSeed:     defaultBenchSeed,
		DebugLevel:    defaultLogLevel,
	}

	// Parse command line options.
	parser := flags.NewParser(&cfg, flags.Default)
	parser.Usage = "[OPTIONS] [cluster.json]"
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, err
	}

	// Show the version and exit if the version flag was specified.
	if cfg.ShowVersion {
		return &cfg, nil
	}

	funcName := "loadConfig"
	usageErr := func(format string, a ...any) (*config, error) {
		err := fmt.Errorf("%s: "+format, append([]any{funcName}, a...)...)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, err
	}

	if cfg.ClusterFile == "" && len(remainingArgs) > 0 {
		cfg.ClusterFile = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}
	if len(remainingArgs) > 0 {
		return usageErr("unexpected arguments %v", remainingArgs)
	}

	// Exactly one mode must be selected.
	switch {
	case cfg.Bench && cfg.ClusterFile != "":
		return usageErr("--bench and a cluster file can't be used " +
			"together -- choose one of the two")
	case !cfg.Bench && cfg.ClusterFile == "":
		return usageErr("no cluster file specified")
	}

	if cfg.Bench {
		if cfg.BenchSize < minBenchSize ||
			cfg.BenchSize > linearizer.MaxClusterSize {

			return usageErr("the specified bench size is out of "+
				"range -- parsed [%v]", cfg.BenchSize)
		}
		if cfg.BenchClusters < 1 || cfg.BenchClusters > maxBenchClusters {
			return usageErr("the specified number of bench clusters "+
				"is out of range -- parsed [%v]", cfg.BenchClusters)
		}
		if cfg.Old != "" {
			return usageErr("--old can't be used with --bench")
		}
	}

	if cfg.TimeLimit < 0 {
		return usageErr("the specified time limit is negative -- "+
			"parsed [%v]", cfg.TimeLimit)
	}
	if cfg.AtSize < 0 {
		return usageErr("the specified size is negative -- parsed [%v]",
			cfg.AtSize)
	}

	cfg.oldLin, err = parseLinearization(cfg.Old)
	if err != nil {
		return usageErr("the specified linearization is invalid: %v",
			err)
	}

	// Parse, validate, and set debug log level(s).
	if err := log.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return usageErr("%v", err)
	}

	return &cfg, nil
}
