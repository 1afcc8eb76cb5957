package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"parley/internal/domain"
)

// recv: fetch and decrypt queued messages; with --follow, keep streaming.
func recvCmd() *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Fetch and decrypt your queued messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if err := requireRelayAndUser(); err != nil {
				return err
			}

			if follow {
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return wire.Messages.Follow(ctx, passphrase, username, printInbound)
			}

			msgs, err := wire.Messages.Receive(cmd.Context(), passphrase, username, 0)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				printInbound(m)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep the connection open and print messages as they arrive")
	return cmd
}

func printInbound(m domain.Inbound) {
	switch {
	case m.Err != nil:
		fmt.Printf("[%s] <unavailable: %v>\n", m.From, m.Err)
	case m.GroupID != "" && m.Plaintext == nil:
		fmt.Printf("[%s] joined you to group %s\n", m.From, m.GroupID)
	case m.GroupID != "":
		fmt.Printf("[%s@%s] %s\n", m.From, m.GroupID, m.Plaintext)
	default:
		fmt.Printf("[%s] %s\n", m.From, m.Plaintext)
	}
}
