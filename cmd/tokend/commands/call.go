package commands

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strconv"
	"time"

	"github.com/airchains-network/token-ledger/auth"
	"github.com/airchains-network/token-ledger/client"
	"github.com/airchains-network/token-ledger/ledger"
	"github.com/airchains-network/token-ledger/types"
	"github.com/spf13/cobra"
)

// CallCmd sends one request to a running daemon
var CallCmd = &cobra.Command{
	Use:   "call <mint|transfer|burn|balance-of|my-balance|info|owner|balances|state-root> [args...]",
	Short: "Call the token daemon",
	Long: `Call the token daemon's JSON-RPC endpoint.

  mint <to> <amount>       (signed, owner only)
  transfer <to> <amount>   (signed)
  burn <amount>            (signed)
  my-balance               (signed)
  balance-of <account>
  info | owner | balances | state-root

Amounts are in base units.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		keyName, _ := cmd.Flags().GetString("key")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		var key *ecdsa.PrivateKey
		if keyName != "" {
			var err error
			key, err = auth.LoadKeyFile(keyPath(homeDir(cmd), keyName))
			if err != nil {
				return err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return runCall(ctx, client.NewClient(url, key), args[0], args[1:])
	},
}

func init() {
	CallCmd.Flags().String("url", "http://127.0.0.1:11111", "Daemon JSON-RPC URL")
	CallCmd.Flags().String("key", "", "Name of the key used to sign the request")
	CallCmd.Flags().Duration("timeout", 30*time.Second, "Request timeout")
}

func runCall(ctx context.Context, c *client.Client, method string, args []string) error {
	want := map[string]int{
		"mint": 2, "transfer": 2, "burn": 1, "balance-of": 1,
		"my-balance": 0, "info": 0, "owner": 0, "balances": 0, "state-root": 0,
	}
	n, ok := want[method]
	if !ok {
		return fmt.Errorf("unknown method %q", method)
	}
	if len(args) != n {
		return fmt.Errorf("%s expects %d arguments, got %d", method, n, len(args))
	}
	if c.Key == nil && (method == "mint" || method == "transfer" || method == "burn" || method == "my-balance") {
		return fmt.Errorf("%s must be signed: pass --key", method)
	}

	switch method {
	case "mint", "transfer":
		amount, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[1])
		}
		call := c.Mint
		if method == "transfer" {
			call = c.Transfer
		}
		msg, err := call(ctx, args[0], amount)
		if err != nil {
			return err
		}
		fmt.Println(msg)
	case "burn":
		amount, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[0])
		}
		msg, err := c.Burn(ctx, amount)
		if err != nil {
			return err
		}
		fmt.Println(msg)
	case "balance-of", "my-balance":
		var b types.BalanceResult
		var err error
		if method == "balance-of" {
			b, err = c.BalanceOf(ctx, args[0])
		} else {
			b, err = c.MyBalance(ctx)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s %d (%s)\n", b.Account, b.Balance, b.Display)
	case "info":
		info, err := c.TokenInfo(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Name: %s\n", info.Name)
		fmt.Printf("Symbol: %s\n", info.Symbol)
		fmt.Printf("Decimals: %d\n", info.Decimals)
		fmt.Printf("Total Supply: %d (%s %s)\n", info.TotalSupply,
			ledger.FormatAmount(info.TotalSupply, info.Decimals), info.Symbol)
	case "owner":
		owner, err := c.Owner(ctx)
		if err != nil {
			return err
		}
		if owner == "" {
			owner = "(none)"
		}
		fmt.Println(owner)
	case "balances":
		balances, err := c.AllBalances(ctx)
		if err != nil {
			return err
		}
		for _, b := range balances {
			fmt.Printf("%s %d\n", b.Account, b.Amount)
		}
	case "state-root":
		root, err := c.StateRoot(ctx)
		if err != nil {
			return err
		}
		fmt.Println(root)
	}
	return nil
}

