package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/virtualzone/landroid-bridge/app"
	"github.com/virtualzone/landroid-bridge/config"
)

var planForce bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the upcoming schedule without applying it",
	RunE:  plan,
}

func init() {
	planCmd.Flags().BoolVar(&planForce, "force", false, "bypass the weather cache")
	rootCmd.AddCommand(planCmd)
}

func plan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	week, err := svc.Next7Days(ctx, planForce)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(week)
}
