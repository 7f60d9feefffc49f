package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/airchains-network/token-ledger/auth"
	"github.com/airchains-network/token-ledger/config"
	"github.com/spf13/cobra"
)

// InitCmd represents the init command
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the token daemon",
	Long: `Initialize the token daemon with the required configuration.
This command creates the home directory, the data directory and config.toml.
The owner address is the principal that creates the ledger and the only one allowed to mint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(cmd)
	},
}

func init() {
	InitCmd.Flags().String("owner", "", "Owner address (0x...), or the name of a key created with create-account")
	InitCmd.Flags().String("rpc.port", ":11111", "JSON-RPC listen address")
	InitCmd.Flags().String("ws.port", ":11112", "WebSocket listen address")
	InitCmd.Flags().String("log.level", "info", "Log level")

	InitCmd.MarkFlagRequired("owner")
}

func initCommand(cmd *cobra.Command) error {
	home := homeDir(cmd)
	ownerFlag, _ := cmd.Flags().GetString("owner")
	rpcPort, _ := cmd.Flags().GetString("rpc.port")
	wsPort, _ := cmd.Flags().GetString("ws.port")
	logLevel, _ := cmd.Flags().GetString("log.level")

	log := newLogger(logLevel)

	owner, err := resolveOwner(home, ownerFlag)
	if err != nil {
		return err
	}

	cfgFile := configPath(home)
	if _, err := os.Stat(cfgFile); err == nil {
		return fmt.Errorf("config file already exists at %s", cfgFile)
	}

	cfg := config.DefaultConfig(home)
	cfg.Token.Owner = string(owner)
	cfg.General.RPCPort = rpcPort
	cfg.General.WSPort = wsPort
	cfg.General.LogLevel = logLevel

	if err := os.MkdirAll(filepath.Dir(cfg.Database.StatePath), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %v", err)
	}
	if err := cfg.Save(cfgFile); err != nil {
		return fmt.Errorf("failed to create config file: %v", err)
	}
	log.Infof("Created config file at: %s", cfgFile)

	fmt.Println("\n=== Configuration Summary ===")
	fmt.Printf("Owner: %s\n", cfg.Token.Owner)
	fmt.Printf("RPC Port: %s\n", cfg.General.RPCPort)
	fmt.Printf("WebSocket Port: %s\n", cfg.General.WSPort)
	fmt.Printf("State DB: %s\n", cfg.Database.StatePath)
	fmt.Printf("Config File: %s\n", cfgFile)

	log.Info("Initialization completed successfully!")
	log.Info("You can start the daemon using: tokend start")
	return nil
}

// resolveOwner accepts an address or the name of a local key
func resolveOwner(home, owner string) (string, error) {
	if account, err := auth.Normalize(owner); err == nil {
		return string(account), nil
	}
	key, err := auth.LoadKeyFile(keyPath(home, owner))
	if err != nil {
		return "", fmt.Errorf("--owner %q is neither an address nor a known key: %v", owner, err)
	}
	return string(auth.AddressOf(key.PublicKey)), nil
}
