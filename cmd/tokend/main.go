package main

import (
	"os"

	"github.com/airchains-network/token-ledger/cmd/tokend/commands"
	"github.com/spf13/cobra"
)

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:   "tokend",
		Short: "A minimal fungible-token ledger daemon",
		Long: `A minimal fungible-token ledger with owner-gated mint, transfer and burn.
The daemon serves signed JSON-RPC requests over HTTP and WebSocket and keeps its state in LevelDB.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("home", "", "Daemon home directory (default ~/.tokend)")

	// Add commands
	rootCmd.AddCommand(commands.InitCmd)
	rootCmd.AddCommand(commands.StartCmd)
	rootCmd.AddCommand(commands.CreateAccountCmd)
	rootCmd.AddCommand(commands.CallCmd)

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
