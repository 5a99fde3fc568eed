// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/clusterlin/linearizer"
	"github.com/stretchr/testify/require"
)

const testCluster = `[
	{"fee": 1, "size": 10},
	{"fee": 500, "size": 10, "parents": [0]},
	{"fee": 40, "size": 10}
]`

func writeCluster(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cluster.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeCluster(t, testCluster)

	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, cfg *config)
		wantErr bool
	}{
		{
			name: "defaults",
			args: []string{path},
			check: func(t *testing.T, cfg *config) {
				require.Equal(t, path, cfg.ClusterFile)
				require.Equal(t, uint64(linearizer.DefaultMaxIterations),
					cfg.MaxIterations)
				lcfg := cfg.linearizerConfig()
				require.True(t, lcfg.PostLinearize)
				require.Nil(t, cfg.oldLin)
			},
		},
		{
			name: "options",
			args: []string{"--cluster", path, "-i", "10",
				"--timelimit", "2s", "--nopostlinearize",
				"--old", "2, 0,1", "--atsize", "15"},
			check: func(t *testing.T, cfg *config) {
				lcfg := cfg.linearizerConfig()
				require.Equal(t, uint64(10), lcfg.MaxIterations)
				require.Equal(t, 2*time.Second, lcfg.TimeLimit)
				require.False(t, lcfg.PostLinearize)
				require.Equal(t, []int{2, 0, 1}, cfg.oldLin)
				require.Equal(t, int32(15), cfg.AtSize)
			},
		},
		{
			name: "bench",
			args: []string{"--bench", "--benchsize", "70"},
			check: func(t *testing.T, cfg *config) {
				require.True(t, cfg.Bench)
				require.Equal(t, 70, cfg.BenchSize)
			},
		},
		{
			name: "version",
			args: []string{"-V"},
			check: func(t *testing.T, cfg *config) {
				require.True(t, cfg.ShowVersion)
			},
		},
		{name: "no input", args: nil, wantErr: true},
		{name: "two modes", args: []string{"--bench", path}, wantErr: true},
		{name: "extra args", args: []string{path, path}, wantErr: true},
		{
			name:    "bench too large",
			args:    []string{"--bench", "--benchsize", "513"},
			wantErr: true,
		},
		{
			name:    "bench empty",
			args:    []string{"--bench", "--benchclusters", "0"},
			wantErr: true,
		},
		{name: "bad old", args: []string{"--old", "1,x", path}, wantErr: true},
		{
			name:    "bad debug level",
			args:    []string{"-d", "loud", path},
			wantErr: true,
		},
		{name: "unknown flag", args: []string{"--nope"}, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg, err := loadConfig(test.args)
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			test.check(t, cfg)
		})
	}
}

func TestRunLinearize(t *testing.T) {
	path := writeCluster(t, testCluster)
	cfg, err := loadConfig([]string{"--old", "2,0,1", "--atsize", "15",
		path})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runLinearize(cfg, nil, &out))

	var res resultJSON
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	require.Equal(t, []int{0, 1, 2}, res.Linearization)
	require.Equal(t, []chunkJSON{
		{Txs: []int{0, 1}, Fee: 501, Size: 20},
		{Txs: []int{2}, Fee: 40, Size: 10},
	}, res.Chunks)
	require.Equal(t, []pointJSON{
		{Fee: 0, Size: 0}, {Fee: 501, Size: 20}, {Fee: 541, Size: 30},
	}, res.Diagram)
	require.True(t, res.Optimal)
	require.Len(t, res.Fingerprint, 64)

	// The first 15 vbytes collect three quarters of the first chunk.
	require.NotNil(t, res.FeeAtSize)
	require.Equal(t, int64(375), *res.FeeAtSize)
}

func TestRunLinearizeStdin(t *testing.T) {
	cfg, err := loadConfig([]string{"-"})
	require.NoError(t, err)

	var out bytes.Buffer
	err = runLinearize(cfg, strings.NewReader(testCluster), &out)
	require.NoError(t, err)
	require.Contains(t, out.String(), `"linearization"`)
	require.NotContains(t, out.String(), `"feeatsize"`)
}

func TestRunLinearizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		cluster string
		args    []string
		wantErr error
	}{
		{
			name:    "unknown field",
			cluster: `[{"fee": 1, "size": 1, "weight": 4}]`,
		},
		{
			name:    "invalid old",
			cluster: testCluster,
			args:    []string{"--old", "1,0,2"},
			wantErr: linearizer.ErrInvalidLinearization,
		},
		{
			name:    "too large",
			cluster: strings.Repeat(`{"fee": 1, "size": 1},`, 513),
			wantErr: linearizer.ErrClusterTooLarge,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			contents := test.cluster
			if strings.HasSuffix(contents, ",") {
				contents = "[" + strings.TrimSuffix(contents, ",") + "]"
			}
			path := writeCluster(t, contents)
			cfg, err := loadConfig(append(test.args, path))
			require.NoError(t, err)

			err = runLinearize(cfg, nil, &bytes.Buffer{})
			require.Error(t, err)
			if test.wantErr != nil {
				require.ErrorIs(t, err, test.wantErr)
			}
		})
	}

	cfg, err := loadConfig([]string{filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)
	require.ErrorIs(t, runLinearize(cfg, nil, &bytes.Buffer{}), os.ErrNotExist)
}

func TestRandomCluster(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for _, n := range []int{1, 5, 64, 200} {
		cluster := randomCluster(rng, n)
		require.Len(t, cluster, n)

		// Every cluster produced must be accepted by the linearizer.
		res, err := linearizer.New(&linearizer.Config{}).Linearize(cluster)
		require.NoError(t, err)
		require.Len(t, res.Linearization, n)
	}
}

func TestRunBench(t *testing.T) {
	cfg, err := loadConfig([]string{"--bench", "--benchclusters", "5",
		"--benchsize", "12", "-i", "1000"})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runBench(cfg, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	require.True(t, strings.HasPrefix(lines[0], "clusters 5 size 12 "))
	require.True(t, strings.HasPrefix(lines[1], "iterations"))
	require.True(t, strings.HasPrefix(lines[2], "latency(us)"))
	require.True(t, strings.HasPrefix(lines[3], "chunks"))

	// The same seed gives the same clusters.
	var again bytes.Buffer
	require.NoError(t, runBench(cfg, &again))
	require.Equal(t, lines[0], strings.Split(again.String(), "\n")[0])
	require.Equal(t, lines[1], strings.Split(again.String(), "\n")[1])
}
