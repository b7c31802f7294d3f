// Package cmd provides the CLI commands for acpctl.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/acplabs/acp-go/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "acpctl",
	Short: "acpctl - Agent Client Protocol demo agent and client",
	Long: `acpctl runs both sides of the Agent Client Protocol over stdio.

Commands:
  agent       Run as the agent side on this process's own stdio
  client      Spawn an agent subprocess and drive one prompt turn
  version     Print version information

Configuration is loaded from acpctl.yaml in the current directory,
$HOME/.acpctl/, or /etc/acpctl/. Environment variables override config
values with the ACPCTL_ prefix, e.g. ACPCTL_AGENT_PATH=/path/to/agent.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./acpctl.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
