package commands

import (
	"fmt"

	"github.com/airchains-network/token-ledger/auth"
	"github.com/spf13/cobra"
)

// CreateAccountCmd creates a signing key for a ledger account
var CreateAccountCmd = &cobra.Command{
	Use:   "create-account [name]",
	Short: "Create a new ledger account key",
	Long:  `Create a new secp256k1 key stored under <home>/keys/<name>.key and print its address`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		path := keyPath(homeDir(cmd), name)

		key, err := auth.GenerateKeyFile(path)
		if err != nil {
			return err
		}

		fmt.Printf("Account created successfully!\n")
		fmt.Printf("Name: %s\n", name)
		fmt.Printf("Address: %s\n", auth.AddressOf(key.PublicKey))
		fmt.Printf("Key File: %s\n", path)
		fmt.Println("\nIMPORTANT: Back up the key file in a secure place!")
		return nil
	},
}
