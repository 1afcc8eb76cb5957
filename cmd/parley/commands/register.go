package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Publish your prekey bundle to the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if err := requireRelayAndUser(); err != nil {
				return err
			}
			if _, err := wire.Prekeys.GenerateAndRegister(cmd.Context(), passphrase, username); err != nil {
				return err
			}
			fmt.Println("Registered prekey bundle with relay")
			return nil
		},
	}
}
