// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/aclements/go-moremath/stats"
	"github.com/btcsuite/clusterlin/internal/log"
	"github.com/btcsuite/clusterlin/linearizer"
)

// benchQuantiles are the quantiles reported by the benchmark.
var benchQuantiles = []float64{0.50, 0.95, 0.99}

// randomCluster returns a random acyclic cluster of n transactions.  Each
// transaction spends on average two earlier ones, and the indices are
// shuffled so the input order carries no hint.
func randomCluster(rng *rand.Rand, n int) linearizer.Cluster {
	perm := rng.Perm(n)
	cluster := make(linearizer.Cluster, n)
	for i := 0; i < n; i++ {
		tx := linearizer.TxEntry{
			Fee:  rng.Int64N(20000),
			Size: 60 + rng.Int32N(940),
		}
		for j := 0; j < i; j++ {
			if rng.IntN(i) < 2 {
				tx.Parents = append(tx.Parents, perm[j])
			}
		}
		cluster[perm[i]] = tx
	}
	return cluster
}

// distribution accumulates samples in a DDSketch for quantiles and keeps the
// raw values for the moments.
type distribution struct {
	sketch *ddsketch.DDSketch
	sample stats.Sample
}

func newDistribution() *distribution {
	sketch, err := ddsketch.NewDefaultDDSketch(0.01)
	if err != nil {
		panic(err)
	}
	return &distribution{sketch: sketch}
}

func (d *distribution) record(v float64) {
	d.sketch.Add(v)
	d.sample.Xs = append(d.sample.Xs, v)
}

// summary returns the mean, the standard deviation, and benchQuantiles.
func (d *distribution) summary() (mean, stddev float64, quantiles []float64) {
	sort.Float64s(d.sample.Xs)
	d.sample.Sorted = true

	quantiles, err := d.sketch.GetValuesAtQuantiles(benchQuantiles)
	if err != nil {
		panic(err)
	}
	return d.sample.Mean(), d.sample.StdDev(), quantiles
}

// writeSummary prints one line summarizing d.
func writeSummary(w io.Writer, name string, d *distribution) {
	mean, stddev, q := d.summary()
	fmt.Fprintf(w, "%-12s mean %.1f stddev %.1f p50 %.1f p95 %.1f "+
		"p99 %.1f\n", name, mean, stddev, q[0], q[1], q[2])
}

// runBench linearizes random clusters and writes statistics about the
// iterations and time spent to w.
func runBench(cfg *config, w io.Writer) error {
	rng := rand.New(rand.NewPCG(cfg.BenchSeed, cfg.BenchSeed^0x9e3779b97f4a7c15))

	lcfg := cfg.linearizerConfig()
	lcfg.CacheSize = 0
	l := linearizer.New(lcfg)

	iterations := newDistribution()
	latency := newDistribution()
	chunks := newDistribution()
	optimal := 0

	log.LnrzLog.Infof("Linearizing %d random clusters of %d transactions",
		cfg.BenchClusters, cfg.BenchSize)

	for i := 0; i < cfg.BenchClusters; i++ {
		cluster := randomCluster(rng, cfg.BenchSize)

		start := time.Now()
		res, err := l.Linearize(cluster)
		if err != nil {
			return fmt.Errorf("cluster %d: %w", i, err)
		}
		elapsed := time.Since(start)

		iterations.record(float64(res.Iterations))
		latency.record(float64(elapsed.Microseconds()))
		chunks.record(float64(len(res.Chunks)))
		if res.Optimal {
			optimal++
		}
	}

	fmt.Fprintf(w, "clusters %d size %d optimal %d\n", cfg.BenchClusters,
		cfg.BenchSize, optimal)
	writeSummary(w, "iterations", iterations)
	writeSummary(w, "latency(us)", latency)
	writeSummary(w, "chunks", chunks)

	return nil
}
