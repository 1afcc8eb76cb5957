package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// group create|send: sender-key group messaging. Membership is an argument,
// not server state; every member must name the same set.
func groupCmd() *cobra.Command {
	var members []string

	create := &cobra.Command{
		Use:   "create <group>",
		Short: "Create a group and distribute your sender key to members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if err := requireRelayAndUser(); err != nil {
				return err
			}
			if err := wire.Groups.Create(cmd.Context(), passphrase, username, args[0], members); err != nil {
				return err
			}
			fmt.Printf("Group %s created; sender key distributed to %d members\n", args[0], len(members))
			return nil
		},
	}

	send := &cobra.Command{
		Use:   "send <group> <message>",
		Short: "Encrypt a message once and fan it out to the group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRelayAndUser(); err != nil {
				return err
			}
			if err := wire.Groups.Send(cmd.Context(), username, args[0], members, args[1]); err != nil {
				return err
			}
			fmt.Println("sent")
			return nil
		},
	}

	cmd := &cobra.Command{
		Use:   "group",
		Short: "Sender-key group messaging",
	}
	cmd.PersistentFlags().StringSliceVar(&members, "members", nil, "group member usernames (comma separated)")
	_ = cmd.MarkPersistentFlagRequired("members")
	cmd.AddCommand(create, send)
	return cmd
}
