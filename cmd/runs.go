package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/carlot/internal/model"
	"github.com/sells-group/carlot/internal/money"
	"github.com/sells-group/carlot/internal/monitoring"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect ingest and inquiry history",
	Long:  "Commands for listing ingest runs, submitted inquiries, and per-car price history.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inventory ingest runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListIngestRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate ingest statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		runs, err := st.ListIngestRuns(ctx, 10000)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, computeRunStats(runs, time.Now().Add(-since)))
		return nil
	},
}

// -- runs inquiries --

var runsInquiriesCmd = &cobra.Command{
	Use:   "inquiries",
	Short: "List submitted buyer inquiries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		inqs, err := st.ListInquiries(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs inquiries")
		}
		if len(inqs) == 0 {
			fmt.Fprintln(os.Stderr, "No inquiries found.")
			return nil
		}
		formatInquiries(os.Stdout, inqs)
		return nil
	},
}

// -- runs prices --

var runsPricesCmd = &cobra.Command{
	Use:   "prices <car-id|listing-key>",
	Short: "Show the recorded price history of a car",
	Long: `Show the recorded price history of a car. A car ID such as car_3 is
resolved against the current feed to its listing key, which stays stable
when rows above it are added or removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		key := args[0]
		if strings.HasPrefix(key, "car_") {
			batch, err := newLoader(cfg.Feed, nil).Load(ctx)
			if err != nil {
				return eris.Wrap(err, "runs prices: load inventory")
			}
			v, ok := batch.Find(key)
			if !ok {
				return eris.Errorf("runs prices: car %q not found", key)
			}
			key = v.ListingKey()
		}

		limit, _ := cmd.Flags().GetInt("limit")
		points, err := st.PriceHistory(ctx, key, limit)
		if err != nil {
			return eris.Wrap(err, "runs prices")
		}
		if len(points) == 0 {
			fmt.Fprintln(os.Stderr, "No price history recorded.")
			return nil
		}
		formatPriceHistory(os.Stdout, points, newRates(cfg.Rates).Table(ctx), defaultCurrency(cfg.Rates))
		return nil
	},
}

// -- runs health --

var runsHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Evaluate feed and relay health from the recorded history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		send, _ := cmd.Flags().GetBool("send")
		format, _ := cmd.Flags().GetString("format")

		snap, err := monitoring.NewCollector(st).Collect(ctx, cfg.Monitoring.LookbackWindowHours)
		if err != nil {
			return eris.Wrap(err, "runs health")
		}
		alerter := monitoring.NewAlerter(cfg.Monitoring)
		alerts := alerter.Evaluate(snap)
		if send {
			alerter.SendAlerts(ctx, alerts)
		}

		return writeStructured(os.Stdout, format, healthReport{Snapshot: snap, Alerts: alerts})
	},
}

type healthReport struct {
	Snapshot *monitoring.Snapshot `json:"snapshot" yaml:"snapshot"`
	Alerts   []monitoring.Alert   `json:"alerts" yaml:"alerts"`
}

func init() {
	runsHealthCmd.Flags().Bool("send", false, "post triggered alerts to the configured webhook")
	runsHealthCmd.Flags().String("format", formatYAML, "output format (json, yaml)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h)")
	runsInquiriesCmd.Flags().Int("limit", 50, "max number of inquiries to display")
	runsPricesCmd.Flags().Int("limit", 20, "max number of price points to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsStatsCmd)
	runsCmd.AddCommand(runsInquiriesCmd)
	runsCmd.AddCommand(runsPricesCmd)
	runsCmd.AddCommand(runsHealthCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total      int
	OK         int
	Empty      int
	Failed     int
	Records    int
	Skipped    int
	AvgDurSecs float64
}

// computeRunStats aggregates runs started at or after since.
func computeRunStats(runs []model.IngestRun, since time.Time) runStats {
	var s runStats
	var totalDur time.Duration

	for _, r := range runs {
		if r.StartedAt.Before(since) {
			continue
		}
		s.Total++
		totalDur += r.Duration()
		switch r.Status {
		case model.IngestStatusOK:
			s.OK++
			s.Records += r.Records
			s.Skipped += r.Skipped
		case model.IngestStatusEmpty:
			s.Empty++
		case model.IngestStatusFailed:
			s.Failed++
		}
	}

	if s.Total > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(s.Total)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.IngestRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tRECORDS\tSKIPPED\tSTARTED\tDURATION\tERROR")
	_, _ = fmt.Fprintln(w, "--\t------\t-------\t-------\t-------\t--------\t-----")

	for _, r := range runs {
		errText := r.Error
		if len(errText) > 40 {
			errText = errText[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Status,
			r.Records,
			r.Skipped,
			r.StartedAt.Format("2006-01-02 15:04"),
			r.Duration().Round(time.Millisecond),
			errText,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "OK:\t%d\n", s.OK)
	_, _ = fmt.Fprintf(w, "Empty:\t%d\n", s.Empty)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Records loaded:\t%d\n", s.Records)
	_, _ = fmt.Fprintf(w, "Rows skipped:\t%d\n", s.Skipped)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

func formatInquiries(out io.Writer, inqs []model.StoredInquiry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCAR\tUSER\tMETHOD\tSTATUS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t---\t----\t------\t------\t-------")
	for _, q := range inqs {
		user := "-"
		if q.UserID != nil {
			user = fmt.Sprintf("%d", *q.UserID)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(q.ID), q.CarID, user, q.ContactMethod, q.Status,
			q.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

func formatPriceHistory(out io.Writer, points []model.PricePoint, table money.Table, cur money.Currency) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RECORDED\tRUN\tPRICE")
	for _, p := range points {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
			p.RecordedAt.Format("2006-01-02 15:04"), truncateID(p.RunID), table.FormatPtr(p.Price, cur))
	}
	_ = w.Flush()
}
