package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/homecoming/config"
	"github.com/kilianp07/homecoming/core/model"
	"github.com/kilianp07/homecoming/core/scheduler"
	"github.com/kilianp07/homecoming/infra/store"
)

var (
	jobsFormat string
	jobsUser   string
	jobsAll    bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List trigger jobs from the job store",
	RunE:  runJobs,
}

func init() {
	jobsCmd.Flags().StringVarP(&jobsFormat, "format", "f", "yaml", "output format: yaml or json")
	jobsCmd.Flags().StringVar(&jobsUser, "user", "", "only jobs of this user")
	jobsCmd.Flags().BoolVar(&jobsAll, "all", false, "include fired, failed and cancelled jobs")
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Read(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Store.Validate(); err != nil {
		return err
	}
	st, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("job store: %w", err)
	}
	defer st.Close()

	f := scheduler.Filter{UserID: jobsUser}
	if !jobsAll {
		f.State = model.JobPending
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	jobs, err := st.List(ctx, f)
	if err != nil {
		return err
	}
	return scheduler.EncodeJobs(cmd.OutOrStdout(), jobs, jobsFormat)
}
