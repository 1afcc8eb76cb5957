package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"parley/internal/crypto"
	"parley/internal/domain"
)

// safety-number <peer>: fetch the peer's bundle and print the comparison code.
// Both parties read each other the same twelve groups out of band.
func safetyNumberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "safety-number <peer>",
		Short: "Print the safety number shared with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if relayURL == "" {
				return fmt.Errorf("no relay configured. use --relay")
			}
			peer := args[0]

			bundle, err := wire.Relay.FetchBundle(cmd.Context(), peer)
			if err != nil {
				return err
			}
			raw, err := crypto.B64Key(bundle.IdentityKey)
			if err != nil {
				return fmt.Errorf("peer identity key: %w", err)
			}

			sn, err := wire.IDs.SafetyNumber(passphrase, domain.X25519Public(raw))
			if err != nil {
				return err
			}
			fmt.Println(sn)
			return nil
		},
	}
}
