// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Linearize computes the mining order of a transaction cluster read as JSON,
// or benchmarks the linearizer on random clusters.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/clusterlin/feefrac"
	"github.com/btcsuite/clusterlin/internal/log"
	"github.com/btcsuite/clusterlin/internal/version"
	"github.com/btcsuite/clusterlin/linearizer"
	flags "github.com/jessevdk/go-flags"
)

const logFilename = "linearize.log"

// chunkJSON is the output form of a chunk.
type chunkJSON struct {
	Txs  []int `json:"txs"`
	Fee  int64 `json:"fee"`
	Size int32 `json:"size"`
}

// pointJSON is the output form of a point of the feerate diagram.
type pointJSON struct {
	Fee  int64 `json:"fee"`
	Size int32 `json:"size"`
}

// resultJSON is the output of a linearization.
type resultJSON struct {
	Linearization []int       `json:"linearization"`
	Chunks        []chunkJSON `json:"chunks"`
	Diagram       []pointJSON `json:"diagram"`
	Optimal       bool        `json:"optimal"`
	Iterations    uint64      `json:"iterations"`
	Fingerprint   string      `json:"fingerprint"`
	FeeAtSize     *int64      `json:"feeatsize,omitempty"`
}

// newResultJSON converts a linearizer result to its output form.
func newResultJSON(res *linearizer.Result, atSize int32) *resultJSON {
	out := &resultJSON{
		Linearization: res.Linearization,
		Chunks:        make([]chunkJSON, len(res.Chunks)),
		Optimal:       res.Optimal,
		Iterations:    res.Iterations,
		Fingerprint:   res.Fingerprint.String(),
	}
	for i, chunk := range res.Chunks {
		out.Chunks[i] = chunkJSON{
			Txs:  chunk.Txs,
			Fee:  chunk.FeeRate.Fee,
			Size: chunk.FeeRate.Size,
		}
	}

	rates := res.ChunkFeeRates()
	for _, point := range feefrac.Diagram(rates) {
		out.Diagram = append(out.Diagram, pointJSON{
			Fee:  point.Fee,
			Size: point.Size,
		})
	}
	if atSize > 0 {
		fee := feefrac.FeeAtSize(rates, atSize)
		out.FeeAtSize = &fee
	}
	return out
}

// readCluster decodes a cluster from path, or from stdin when path is "-".
func readCluster(path string, stdin io.Reader) (linearizer.Cluster, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var cluster linearizer.Cluster
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cluster); err != nil {
		return nil, fmt.Errorf("unable to decode cluster: %w", err)
	}
	return cluster, nil
}

// runLinearize linearizes the configured cluster and writes the result to
// w as JSON.
func runLinearize(cfg *config, stdin io.Reader, w io.Writer) error {
	cluster, err := readCluster(cfg.ClusterFile, stdin)
	if err != nil {
		return err
	}

	l := linearizer.New(cfg.linearizerConfig())
	res, err := l.Relinearize(cluster, cfg.oldLin)
	if err != nil {
		return err
	}

	log.LnrzLog.Infof("Linearized %d transactions into %d chunks "+
		"(optimal=%v, iterations=%d)", len(cluster), len(res.Chunks),
		res.Optimal, res.Iterations)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newResultJSON(res, cfg.AtSize))
}

func realMain() error {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			return nil
		}
		return err
	}

	if cfg.ShowVersion {
		fmt.Printf("%s version %s\n", filepath.Base(os.Args[0]),
			version.String())
		return nil
	}

	if cfg.LogDir != "" {
		err := log.InitLogRotator(filepath.Join(cfg.LogDir, logFilename))
		if err != nil {
			return err
		}
		defer log.LogRotator.Close()
	}

	if cfg.Bench {
		return runBench(cfg, os.Stdout)
	}
	return runLinearize(cfg, os.Stdin, os.Stdout)
}

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
