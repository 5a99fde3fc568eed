// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package linearizer

import (
	"time"

	"github.com/btcsuite/clusterlin/clusterlin"
)

const (
	// DefaultMaxIterations is the default search budget per request.  It
	// is enough to linearize most clusters of a few dozen transactions
	// optimally.
	DefaultMaxIterations = 100000

	// DefaultCacheSize is the default number of optimal linearizations
	// remembered.
	DefaultCacheSize = 1000

	// MaxClusterSize is the largest cluster accepted.
	MaxClusterSize = 512
)

// Config holds the tunables of a Linearizer.
type Config struct {
	// MaxIterations bounds the search steps spent on one request.
	MaxIterations uint64

	// TimeLimit, when non-zero, bounds the wall-clock time spent on one
	// request.  Results then depend on machine speed.
	TimeLimit time.Duration

	// PostLinearize enables the post-processing passes on every result.
	PostLinearize bool

	// CacheSize is the number of cluster fingerprints remembered as
	// optimally linearized.  Zero disables the cache.
	CacheSize uint
}

// DefaultConfig returns the default linearizer configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxIterations: DefaultMaxIterations,
		PostLinearize: true,
		CacheSize:     DefaultCacheSize,
	}
}

// budget returns the search budget for a request starting now.
func (c *Config) budget(now time.Time) clusterlin.Budget {
	b := clusterlin.IterationBudget(c.MaxIterations)
	if c.TimeLimit > 0 {
		b.Deadline = now.Add(c.TimeLimit)
	}
	return b
}
