package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"parley/internal/crypto"
)

// session <peer>: run the key agreement against the peer's bundle and persist
// the resulting ratchet state.
func sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session <peer>",
		Short: "Establish a secure session with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if err := requireRelayAndUser(); err != nil {
				return err
			}
			peer := args[0]

			st, err := wire.Sessions.Initiate(cmd.Context(), passphrase, username, peer)
			if err != nil {
				return fmt.Errorf("starting session with %q: %w", peer, err)
			}
			fmt.Printf("Session created with %s. Ratchet key: %s\n", peer, crypto.Fingerprint(st.DHPub.Slice()))
			return nil
		},
	}
}
