package commands

import (
	"path/filepath"

	"github.com/airchains-network/token-ledger/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// homeDir resolves the --home flag
func homeDir(cmd *cobra.Command) string {
	home, _ := cmd.Flags().GetString("home")
	if home == "" {
		return config.DefaultHome()
	}
	return home
}

func configPath(home string) string {
	return filepath.Join(home, "config.toml")
}

func keyPath(home, name string) string {
	return filepath.Join(home, "keys", name+".key")
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceColors:     true,
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
