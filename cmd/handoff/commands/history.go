package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/handoff/pkg/cli"
	"github.com/haivivi/handoff/pkg/history"
	"github.com/haivivi/handoff/pkg/session"
)

// testHistoryOverride replaces the badger store in tests.
var testHistoryOverride history.Store

func openHistory() (history.Store, func(), error) {
	if testHistoryOverride != nil {
		return testHistoryOverride, func() {}, nil
	}
	cfg, err := GetConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := history.NewBadger(history.BadgerOptions{Dir: cfg.HistoryDir()})
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Recorded session reports",
	Long: `List, show and delete the reports of past sessions.

Examples:
  handoff history list --limit 5
  handoff history get <id> --format yaml
  handoff history delete <id>`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openHistory()
		if err != nil {
			return err
		}
		defer closeStore()
		reports, err := store.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		return printResult(reportList(reports))
	},
}

var historyGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openHistory()
		if err != nil {
			return err
		}
		defer closeStore()
		rep, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(reportView{rep})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openHistory()
		if err != nil {
			return err
		}
		defer closeStore()
		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		cli.PrintSuccess(os.Stdout, "deleted %s", args[0])
		return nil
	},
}

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of reports (0 for all)")
	historyCmd.AddCommand(historyListCmd, historyGetCmd, historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

// reportList renders as one row per report.
type reportList []*session.Report

func (l reportList) TableHeader() []string {
	return []string{"ID", "STATE", "CAP", "P/C", "DELIVERED", "ELAPSED", "STARTED"}
}

func (l reportList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		rows = append(rows, []string{
			r.ID,
			string(r.State),
			strconv.Itoa(r.Capacity),
			fmt.Sprintf("%d/%d", r.Producers, r.Consumers),
			strconv.Itoa(r.Delivered),
			cli.FormatDuration(r.ElapsedMS),
			r.StartedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}

// reportView renders a single report as key/value rows. json and yaml
// output are those of the report itself.
type reportView struct {
	*session.Report
}

func (v reportView) MarshalJSON() ([]byte, error) { return json.Marshal(v.Report) }
func (v reportView) MarshalYAML() (any, error)    { return v.Report, nil }

func (v reportView) TableHeader() []string { return cli.KV{}.TableHeader() }
func (v reportView) TableRows() [][]string { return reportKV(v.Report).TableRows() }

func reportKV(r *session.Report) cli.KV {
	kv := cli.KV{
		{"id", r.ID},
		{"state", string(r.State)},
		{"capacity", strconv.Itoa(r.Capacity)},
		{"producers", strconv.Itoa(r.Producers)},
		{"consumers", strconv.Itoa(r.Consumers)},
		{"delivered", strconv.Itoa(r.Delivered)},
		{"puts/takes", fmt.Sprintf("%d/%d", r.Puts, r.Takes)},
		{"put/take waits", fmt.Sprintf("%d/%d", r.PutWaits, r.TakeWaits)},
		{"max occupancy", strconv.Itoa(r.MaxOccupancy)},
		{"elapsed", cli.FormatDuration(r.ElapsedMS)},
	}
	if len(r.Transitions) > 0 {
		path := []string{string(r.Transitions[0].From)}
		for _, t := range r.Transitions {
			path = append(path, string(t.To))
		}
		kv = append(kv, [2]string{"states", strings.Join(path, " > ")})
	}
	if r.FailedTask != "" {
		kv = append(kv, [2]string{"failed task", r.FailedTask})
	}
	if r.Error != "" {
		kv = append(kv, [2]string{"error", r.Error})
	}
	return kv
}
