package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/homecoming/app"
	"github.com/kilianp07/homecoming/config"
	"github.com/kilianp07/homecoming/core/model"
	"github.com/kilianp07/homecoming/core/scheduler"
	"github.com/kilianp07/homecoming/infra/logger"
	"github.com/kilianp07/homecoming/infra/trigger"
)

var (
	estimateWait     bool
	estimateUser     string
	estimateActivity time.Duration
)

var estimateCmd = &cobra.Command{
	Use:   "estimate <station>",
	Short: "Estimate the arrival from a station and print the light schedule",
	Long: "Fetch the route search once and print the schedule. With --wait the " +
		"schedule is planned and the command blocks until both triggers have fired.",
	Args: cobra.ExactArgs(1),
	RunE: runEstimate,
}

func init() {
	estimateCmd.Flags().BoolVar(&estimateWait, "wait", false, "plan the triggers and wait until they fire")
	estimateCmd.Flags().StringVar(&estimateUser, "user", "cli", "user id the jobs are planned for")
	estimateCmd.Flags().DurationVar(&estimateActivity, "activity", 0, "how long the lights stay on (default from config)")
	rootCmd.AddCommand(estimateCmd)
}

// consoleNotifier prints messages instead of sending them to a chat user.
type consoleNotifier struct{ w io.Writer }

func (n consoleNotifier) Reply(_ context.Context, _ string, text string) error {
	_, err := fmt.Fprintln(n.w, text)
	return err
}

func (n consoleNotifier) Push(_ context.Context, _ string, text string) error {
	_, err := fmt.Fprintln(n.w, text)
	return err
}

func runEstimate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Read(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Transit.Validate(); err != nil {
		return fmt.Errorf("transit: %w", err)
	}
	if cfg.Destination == "" {
		return errors.New("destination station is required")
	}
	activity := estimateActivity
	if activity <= 0 {
		activity = cfg.Activity()
	}
	station := model.StationName(args[0])
	out := cmd.OutOrStdout()

	if !estimateWait {
		return printEstimate(ctx, out, cfg, station, activity)
	}

	if err := trigger.Validate(cfg.Trigger); err != nil {
		return fmt.Errorf("trigger: %w", err)
	}
	// Jobs stay in memory: the shared store belongs to the serving process.
	svc, err := app.New(cfg,
		app.WithNotifier(consoleNotifier{w: out}),
		app.WithStore(scheduler.NewMemoryStore()),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("estimate").Errorf("service close: %v", err)
		}
	}()
	if err := svc.Start(ctx); err != nil {
		return err
	}
	sched, err := svc.Engine().RunBlocking(ctx, estimateUser, station, activity)
	if err != nil {
		return err
	}
	if sched != nil {
		_, err = fmt.Fprintf(out, "triggers fired for %s\n", sched.Station)
	}
	return err
}

func printEstimate(ctx context.Context, out io.Writer, cfg *config.Config, station model.StationName, activity time.Duration) error {
	est, err := app.NewEstimator(cfg, nil)
	if err != nil {
		return err
	}
	res, err := est.Estimate(ctx, station.Normalize())
	if err != nil {
		return err
	}
	sched, ok := model.NewSchedule(estimateUser, station.Normalize(), res.At, res.Estimate, activity)
	if !ok {
		_, err = fmt.Fprintf(out, "%s -> %s: %s\n", station, est.Destination(), res.Estimate)
		return err
	}
	_, err = fmt.Fprintf(out, "%s -> %s: %s, lights %s-%s\n",
		sched.Station, est.Destination(), res.Estimate, sched.StartClock(), sched.EndClock())
	return err
}
