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

var applyForce bool

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Compute, persist and push the upcoming schedule once",
	RunE:  apply,
}

func init() {
	applyCmd.Flags().BoolVar(&applyForce, "force", false, "bypass the weather cache")
	rootCmd.AddCommand(applyCmd)
}

func apply(cmd *cobra.Command, args []string) error {
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

	week, err := svc.Apply(ctx, applyForce)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(week)
}
