// Package main provides the plaudit command line entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"plaudit/internal/app"
	"plaudit/internal/config"
	apperrors "plaudit/internal/errors"
	"plaudit/internal/schema"
	"plaudit/pkg/contracts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "plaudit",
		Short: "Audit a P&L workbook",
		Long: `plaudit ingests the P&L workbook, normalizes every sheet under checked
invariants, reconciles detail sheets against the P&L summary and writes a
register of flagged anomalies.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file (default: plaudit.yaml if present)")

	rootCmd.AddCommand(newRunCmd(&configPath), newInspectCmd(&configPath), newVersionCmd())
	return rootCmd
}

func newRunCmd(configPath *string) *cobra.Command {
	var pnl, roles string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full audit pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, func(cfg *config.Config) {
				if pnl != "" {
					cfg.Inputs.PnLWorkbook = pnl
				}
				if roles != "" {
					cfg.Inputs.FinanceRolesWorkbook = roles
				}
			})
			if err != nil {
				return err
			}

			application, err := app.NewApplication(cfg, nil)
			if err != nil {
				return err
			}
			defer application.Shutdown(context.Background())

			resp, err := application.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("audit run %s failed: %w", resp.ID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "audit run %s %s in %s\n", resp.ID, resp.Status, resp.Duration)
			return nil
		},
	}
	cmd.Flags().StringVar(&pnl, "pnl", "", "P&L workbook path (overrides configuration)")
	cmd.Flags().StringVar(&roles, "finance-roles", "", "finance roles workbook path (overrides configuration)")
	return cmd
}

func newInspectCmd(configPath *string) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "inspect <workbook.xlsx>",
		Short: "Print inferred header rows and column names as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, func(cfg *config.Config) {
				cfg.Inputs.PnLWorkbook = args[0]
			})
			if err != nil {
				return err
			}

			sheets, err := app.Inspect(cmd.Context(), args[0], cfg.Layout, schema.OptionsFrom(cfg.Analysis))
			if err != nil {
				return fmt.Errorf("inspection failed: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), sheets, pretty)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print JSON output")
	return cmd
}

func newVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), contracts.GetVersionInfo(), true)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), contracts.GetFullVersionString())
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print version information as JSON")
	return cmd
}

// loadConfig loads the configuration, applies command line overrides and
// validates the result again.
func loadConfig(path string, override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to load configuration", err)
	}
	override(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfigError("config validation failed", err)
	}
	return cfg, nil
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
