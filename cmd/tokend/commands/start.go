package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/airchains-network/token-ledger/auth"
	"github.com/airchains-network/token-ledger/config"
	"github.com/airchains-network/token-ledger/ledger"
	"github.com/airchains-network/token-ledger/proxy"
	"github.com/airchains-network/token-ledger/state"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// StartCmd represents the start command
var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the token daemon",
	Long: `Start the token daemon with the configuration from <home>/config.toml.
The ledger is restored from the state database, or created with the configured owner on first start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startCommand(homeDir(cmd))
	},
}

func startCommand(home string) error {
	// Load configuration
	cfg, err := config.LoadConfig(configPath(home))
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	log := newLogger(cfg.General.LogLevel)

	maxSkew, err := cfg.MaxSkewDuration()
	if err != nil {
		return err
	}

	store, err := state.Open(cfg.Database.StatePath)
	if err != nil {
		log.Fatalf("Failed to initialize state database: %v", err)
	}
	defer store.Close()

	tokenLedger, err := openLedger(cfg, store, log)
	if err != nil {
		log.Fatalf("Failed to initialize ledger: %v", err)
	}

	persister := state.NewPersister(store, log)
	defer persister.Close()

	dispatcher := proxy.NewDispatcher(tokenLedger, auth.NewVerifier(maxSkew).WithJournal(store), persister, log)
	server := proxy.NewServer(dispatcher, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infof("Starting token daemon (RPC %s, WebSocket %s)", cfg.General.RPCPort, cfg.General.WSPort)
	if err := server.Start(ctx, cfg.General.RPCPort, cfg.General.WSPort); err != nil {
		return fmt.Errorf("proxy server failed: %v", err)
	}

	persister.Flush()
	log.Info("Token daemon stopped")
	return nil
}

// openLedger restores the stored ledger or creates a fresh one for the configured owner
func openLedger(cfg config.Config, store *state.Store, log *logrus.Logger) (*ledger.Ledger, error) {
	snap, found, err := store.Load()
	if err != nil {
		return nil, err
	}

	if found {
		l, err := ledger.Restore(snap)
		if err != nil {
			return nil, err
		}
		if owner, _ := l.Owner(); cfg.Token.Owner != "" && !sameAccount(owner, cfg.Token.Owner) {
			log.Warnf("Configured owner %s differs from the stored owner %s; the stored owner is kept", cfg.Token.Owner, owner)
		}
		root, err := state.Root(snap)
		if err != nil {
			return nil, err
		}
		log.Infof("Restored ledger v%d with %d accounts, state root 0x%s", snap.Version, len(snap.Balances), root)
		return l, nil
	}

	owner, err := auth.Normalize(cfg.Token.Owner)
	if err != nil {
		return nil, fmt.Errorf("token.owner: %v", err)
	}
	l := ledger.New(owner)
	if _, err := store.Save(l.Snapshot()); err != nil {
		return nil, err
	}
	log.Infof("Created ledger owned by %s", owner)
	return l, nil
}

func sameAccount(a ledger.Account, addr string) bool {
	b, err := auth.Normalize(addr)
	return err == nil && a == b
}
