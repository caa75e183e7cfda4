// cmd/codebundle/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	current    *app
)

var rootCmd = &cobra.Command{
	Use:   "codebundle",
	Short: "Bundle a source tree into one flat file and back",
	Long: `codebundle merges every text file under a source directory into a single
flat archive plus a syntax highlighted HTML page, lists trees, and restores
archives back into directories.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(configPath, logLevel, os.Stdout)
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil {
			current.close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (JSON or YAML); defaults to config/config.$CODEBUNDLE_ENV.json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		newArchiveCmd(),
		newRestoreCmd(),
		newListCmd(),
		newMenuCmd(),
		newWatchCmd(),
		newVerifyCmd(),
		newHistoryCmd(),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if current != nil {
		current.close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, newConsole(os.Stderr, os.Stderr).failure(err))
		os.Exit(1)
	}
}
