package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"parley/internal/app"
)

var (
	home       string
	passphrase string
	relayURL   string
	username   string

	wire *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:   "parley",
		Short: "End-to-end encrypted messaging CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".parley")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			var err error
			wire, err = app.NewWire(app.Config{Home: home, RelayURL: relayURL})
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.parley)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect keys")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:9090)")
	root.PersistentFlags().StringVarP(&username, "username", "u", "", "your username on the relay")

	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		safetyNumberCmd(),
		registerCmd(),
		sessionCmd(),
		sendCmd(),
		recvCmd(),
		groupCmd(),
	)
	return root.Execute()
}

func requirePassphrase() error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	return nil
}

func requireRelayAndUser() error {
	if relayURL == "" {
		return fmt.Errorf("no relay configured. use --relay")
	}
	if username == "" {
		return fmt.Errorf("--username required")
	}
	return nil
}
