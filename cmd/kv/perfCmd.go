package kv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vivskv/vivs/cmd/util"
	"github.com/vivskv/vivs/rpc/common"
)

var (
	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for vivs nodes",
		Long: `Runs a set of benchmarks against the configured endpoint and reports
latency percentiles and throughput per benchmark.

Benchmarks: set, set-large, set-ttl, get, get-miss, ttl, delete, mixed`,
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__perf"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfOps              = 10_000
	perfSkip             = make([]string, 0)
	perfPercentiles      = []float64{0.5, 0.95, 0.99}
)

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, perfNumThreads, util.WrapString("Number of concurrent workers per benchmark"))
	key = "ops"
	perfTestCmd.Flags().Int(key, perfOps, util.WrapString("Number of operations per benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, perfLargeValueSizeKB, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, perfKeySpread, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfOps = max(viper.GetInt("ops"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// --------------------------------------------------------------------------
// Benchmarks
// --------------------------------------------------------------------------

// benchmark is one workload. setup runs once before the timed operations.
type benchmark struct {
	name  string
	setup func(ctx context.Context, keys []string) error
	op    func(ctx context.Context, i int, key string) error
}

// perfResult summarizes the timer of one benchmark
type perfResult struct {
	name        string
	skipped     bool
	ops         int64
	errors      int64
	elapsed     time.Duration
	mean        time.Duration
	percentiles []time.Duration
}

func (r perfResult) opsPerSec() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.ops) / r.elapsed.Seconds()
}

func benchmarks() []benchmark {
	largeValue := strings.Repeat("x", perfLargeValueSizeKB*1024)
	fill := func(ctx context.Context, keys []string) error {
		for _, k := range keys {
			if err := rpcClient.Set(ctx, k, "test"); err != nil {
				return err
			}
		}
		return nil
	}

	return []benchmark{
		{name: "set", op: func(ctx context.Context, _ int, key string) error {
			return rpcClient.Set(ctx, key, "test")
		}},
		{name: "set-large", op: func(ctx context.Context, _ int, key string) error {
			return rpcClient.Set(ctx, key, largeValue)
		}},
		{name: "set-ttl", op: func(ctx context.Context, _ int, key string) error {
			return rpcClient.SetWithTTL(ctx, key, "test", 3600)
		}},
		{name: "get", setup: fill, op: func(ctx context.Context, _ int, key string) error {
			_, _, err := rpcClient.Get(ctx, key)
			return err
		}},
		{name: "get-miss", op: func(ctx context.Context, _ int, key string) error {
			_, _, err := rpcClient.Get(ctx, key+"-missing")
			return err
		}},
		{name: "ttl", setup: fill, op: func(ctx context.Context, _ int, key string) error {
			_, err := rpcClient.TTL(ctx, key)
			return err
		}},
		{name: "delete", setup: fill, op: func(ctx context.Context, _ int, key string) error {
			_, err := rpcClient.Delete(ctx, key)
			return err
		}},
		{name: "mixed", setup: fill, op: func(ctx context.Context, i int, key string) error {
			var err error
			switch i % 4 {
			case 0:
				err = rpcClient.Set(ctx, key, "test")
			case 1:
				_, _, err = rpcClient.Get(ctx, key)
			case 2:
				_, err = rpcClient.TTL(ctx, key)
			case 3:
				_, err = rpcClient.Delete(ctx, key)
			}
			return err
		}},
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	config := rpcClient.Config()

	fmt.Println("Performance testing tool for vivs nodes")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d, Operations: %d, Keys: %d\n", perfNumThreads, perfOps, perfKeySpread)
	fmt.Println()
	fmt.Println("starting tests...")

	registry := metrics.NewRegistry()
	var results []perfResult
	for _, b := range benchmarks() {
		if ctx.Err() != nil {
			break
		}
		result := runBenchmark(ctx, registry, b)
		results = append(results, result)
		printResult(result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return ctx.Err()
}

// runBenchmark spreads perfOps operations over perfNumThreads workers and
// times every single operation
func runBenchmark(ctx context.Context, registry metrics.Registry, b benchmark) perfResult {
	if shouldSkip(b.name) {
		return perfResult{name: b.name, skipped: true}
	}

	getKey, keys := getKeys(b.name)
	defer cleanup(b.name, keys)

	if b.setup != nil {
		if err := b.setup(ctx, keys); err != nil {
			fmt.Printf("(%s) - setup failed: %v\n", b.name, err)
			return perfResult{name: b.name, skipped: true}
		}
	}

	timer := metrics.GetOrRegisterTimer(b.name, registry)
	errCount := metrics.GetOrRegisterCounter(b.name+".errors", registry)

	var next sync.Mutex
	issued := 0
	take := func() (int, bool) {
		next.Lock()
		defer next.Unlock()
		if issued >= perfOps || ctx.Err() != nil {
			return 0, false
		}
		issued++
		return issued - 1, true
	}

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < perfNumThreads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i, ok := take()
				if !ok {
					return
				}
				opStart := time.Now()
				err := b.op(ctx, i, getKey(i))
				timer.UpdateSince(opStart)
				if err != nil {
					errCount.Inc(1)
					if errCount.Count() == 1 {
						fmt.Printf("(%s) - first error: %v\n", b.name, err)
					}
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	snapshot := timer.Snapshot()
	result := perfResult{
		name:    b.name,
		ops:     snapshot.Count(),
		errors:  errCount.Count(),
		elapsed: elapsed,
		mean:    time.Duration(snapshot.Mean()),
	}
	for _, p := range snapshot.Percentiles(perfPercentiles) {
		result.percentiles = append(result.percentiles, time.Duration(p))
	}
	return result
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// getKeys creates the test keys of a benchmark and a function to pick one by index (with wraparound)
func getKeys(prefix string) (func(int) string, []string) {
	keys := make([]string, perfKeySpread)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}
	return func(i int) string { return keys[i%len(keys)] }, keys
}

// cleanup deletes all keys a benchmark may have written
func cleanup(name string, keys []string) {
	ctx := context.Background()
	for _, k := range keys {
		if _, err := rpcClient.Delete(ctx, k); err != nil {
			fmt.Printf("(%s) - error deleting key %s: %v\n", name, k, err)
			return
		}
	}
}

// printResult prints the result of a benchmark in a formatted way
func printResult(r perfResult) {
	if r.skipped {
		fmt.Printf("%-12sskipped\n", r.name)
		return
	}

	var percentiles []string
	for i, p := range perfPercentiles {
		percentiles = append(percentiles, fmt.Sprintf("p%.0f=%s", p*100, r.percentiles[i]))
	}
	fmt.Printf("%-12smean=%s %s\t%.0f ops/sec", r.name, r.mean, strings.Join(percentiles, " "), r.opsPerSec())
	if r.errors > 0 {
		fmt.Printf("\t(%d errors)", r.errors)
	}
	fmt.Println()
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult, config common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "Skipped", "Ops", "Errors", "OpsPerSec", "MeanNs",
		"P50Ns", "P95Ns", "P99Ns",
		"Endpoint", "TimeoutSec", "MaxRedirects",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, r := range results {
		row := []string{
			r.name,
			strconv.FormatBool(r.skipped),
			strconv.FormatInt(r.ops, 10),
			strconv.FormatInt(r.errors, 10),
			fmt.Sprintf("%.0f", r.opsPerSec()),
			strconv.FormatInt(int64(r.mean), 10),
		}
		for i := range perfPercentiles {
			if r.skipped {
				row = append(row, "0")
			} else {
				row = append(row, strconv.FormatInt(int64(r.percentiles[i]), 10))
			}
		}
		row = append(row,
			config.Endpoint,
			strconv.FormatInt(config.TimeoutSecond, 10),
			strconv.Itoa(config.MaxRedirects),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		)

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.name, err)
		}
	}

	return nil
}
