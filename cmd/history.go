package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/homecoming/config"
	"github.com/kilianp07/homecoming/infra/journal"
	"github.com/kilianp07/homecoming/infra/logger"
)

var (
	historyUser  string
	historyKind  string
	historySince time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print journal records as JSON lines",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyUser, "user", "", "only records of this user")
	historyCmd.Flags().StringVar(&historyKind, "kind", "", "schedule or job")
	historyCmd.Flags().DurationVar(&historySince, "since", 24*time.Hour, "how far back to look; 0 for everything")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	switch historyKind {
	case "", journal.KindSchedule, journal.KindJob:
	default:
		return fmt.Errorf("unknown record kind %q", historyKind)
	}
	cfg, err := config.Read(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	j, err := journal.New(cfg.Journal, logger.New("journal"))
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	defer j.Close()

	q := journal.Query{Kind: historyKind, UserID: historyUser}
	if historySince > 0 {
		q.Start = time.Now().Add(-historySince)
	}
	recs, err := j.Query(q)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
