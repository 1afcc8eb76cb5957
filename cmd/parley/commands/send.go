package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// send <peer> <message>: encrypt and send a message to <peer>. First contact
// establishes the session implicitly.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and send a message to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if err := requireRelayAndUser(); err != nil {
				return err
			}
			peer := args[0]

			if err := wire.Messages.Send(cmd.Context(), passphrase, username, peer, args[1]); err != nil {
				return err
			}
			fmt.Println("sent")
			return nil
		},
	}
}
