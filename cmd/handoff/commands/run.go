package commands

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/haivivi/handoff/cmd/handoff/internal/config"
	"github.com/haivivi/handoff/pkg/buffer"
	"github.com/haivivi/handoff/pkg/cli"
	"github.com/haivivi/handoff/pkg/metrics"
	"github.com/haivivi/handoff/pkg/session"
)

var (
	runFile          string
	runCapacity      int
	runProducers     int
	runConsumers     int
	runCount         int
	runProducerDelay string
	runConsumerDelay string
	runJitter        string
	runSentinel      string
	runTimeout       string
	runNoHistory     bool
	runMetricsFile   string
)

var runCmd = &cobra.Command{
	Use:   "run [items...]",
	Short: "Run a hand-off session",
	Long: `Run items through a bounded buffer and print the session report.

Settings are layered: profile.yaml in the data directory, then the -f
profile, then flags. Positional items replace the profile items.

With several producers the items are dealt round-robin, so each producer
keeps its own order. With --sentinel the single-pair poison-pill protocol
is used and an item equal to the sentinel fails the session.

Examples:
  handoff run a b c --capacity 1
  handoff run --count 100 --producers 4 --consumers 2 --format json
  handoff run -f profile.yaml --metrics-file /tmp/handoff.prom`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildProfile(cmd, args)
		if err != nil {
			return err
		}
		r, err := p.Resolve()
		if err != nil {
			return err
		}
		return runSession(cmd.Context(), r)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFile, "file", "f", "", "session profile YAML (use '-' for stdin)")
	f.IntVar(&runCapacity, "capacity", 0, "buffer capacity (default 10)")
	f.IntVar(&runProducers, "producers", 0, "number of producers (default 1)")
	f.IntVar(&runConsumers, "consumers", 0, "number of consumers (default 1)")
	f.IntVar(&runCount, "count", 0, "generate the items 1..N")
	f.StringVar(&runProducerDelay, "producer-delay", "", "simulated work per produced item, e.g. 100ms")
	f.StringVar(&runConsumerDelay, "consumer-delay", "", "simulated work per consumed item, e.g. 200ms")
	f.StringVar(&runJitter, "jitter", "", "random extra delay per item")
	f.StringVar(&runSentinel, "sentinel", "", "end-of-stream value (single pair only)")
	f.StringVar(&runTimeout, "timeout", "", "abort the session after this duration")
	f.BoolVar(&runNoHistory, "no-history", false, "do not record the session report")
	f.StringVar(&runMetricsFile, "metrics-file", "", "write prometheus metrics to this file")
	rootCmd.AddCommand(runCmd)
}

func buildProfile(cmd *cobra.Command, args []string) (*config.Profile, error) {
	p := &config.Profile{}
	if cfg, err := GetConfig(); err == nil {
		base, err := cfg.DefaultProfile()
		if err != nil {
			return nil, err
		}
		p.Merge(base)
	}
	if runFile != "" {
		fp, err := config.LoadProfile(runFile)
		if err != nil {
			return nil, err
		}
		p.Merge(fp)
	}

	flags := &config.Profile{
		Items:         args,
		Count:         runCount,
		Capacity:      runCapacity,
		Producers:     runProducers,
		Consumers:     runConsumers,
		ProducerDelay: runProducerDelay,
		ConsumerDelay: runConsumerDelay,
		Jitter:        runJitter,
		Timeout:       runTimeout,
		NoHistory:     runNoHistory,
	}
	if cmd.Flags().Changed("sentinel") {
		s := runSentinel
		flags.Sentinel = &s
	}
	// An explicit capacity of zero or below must reach the session so it
	// can be rejected rather than defaulted.
	if cmd.Flags().Changed("capacity") && runCapacity < 1 {
		return nil, fmt.Errorf("%w: %d", buffer.ErrInvalidCapacity, runCapacity)
	}
	if runCount > 0 {
		p.Items = nil
	}
	p.Merge(flags)
	return p, nil
}

// runResult is what `handoff run` prints.
type runResult struct {
	Report *session.Report `json:"report" yaml:"report"`
	Sinks  [][]string      `json:"sinks,omitempty" yaml:"sinks,omitempty"`
}

func (r runResult) TableHeader() []string { return cli.KV{}.TableHeader() }

func (r runResult) TableRows() [][]string {
	kv := reportKV(r.Report)
	for i, sink := range r.Sinks {
		kv = append(kv, [2]string{"sink-" + strconv.Itoa(i), strings.Join(sink, " ")})
	}
	return kv.TableRows()
}

func runSession(ctx context.Context, r *config.Resolved) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	if err != nil {
		return err
	}

	s, err := session.New(session.Config{
		Capacity:       r.Capacity,
		Producers:      r.Producers,
		Consumers:      r.Consumers,
		ProducerPacing: r.ProducerPacing,
		ConsumerPacing: r.ConsumerPacing,
		Hooks:          []buffer.Hook{rec.Hook()},
		OnFinish:       rec.ObserveReport,
		Logger:         slog.Default(),
	})
	if err != nil {
		return err
	}

	var res *session.Result[string]
	if r.Sentinel != nil {
		res, err = session.TransferSentinel(ctx, s, slices.Values(r.Items), *r.Sentinel)
	} else {
		res, err = session.Transfer(ctx, s, deal(r.Items, r.Producers)...)
	}
	if res == nil {
		return err
	}

	if !r.NoHistory {
		if herr := saveReport(ctx, res.Report); herr != nil {
			slog.Warn("session report not recorded", "session", res.Report.ID, "error", herr)
		}
	}
	if runMetricsFile != "" {
		if merr := metrics.WriteTextfile(reg, runMetricsFile); merr != nil {
			return merr
		}
	}
	if perr := printResult(runResult{Report: res.Report, Sinks: res.Sinks}); perr != nil {
		return perr
	}
	return err
}

// deal splits items round-robin into n sources.
func deal(items []string, n int) []iter.Seq[string] {
	parts := make([][]string, n)
	for i, it := range items {
		parts[i%n] = append(parts[i%n], it)
	}
	sources := make([]iter.Seq[string], n)
	for i := range parts {
		sources[i] = slices.Values(parts[i])
	}
	return sources
}

func saveReport(ctx context.Context, rep *session.Report) error {
	store, closeStore, err := openHistory()
	if err != nil {
		return err
	}
	defer closeStore()
	return store.Save(context.WithoutCancel(ctx), rep)
}
