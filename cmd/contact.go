package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/itrack/internal/contact"
)

var contactMsg contact.Message

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Send a message to the maintainers",
	Long: `Send a contact message to the webhook configured in contact.webhook_url.

Name and email default to the configured user.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return contactRun(cmd.Context(), contactMsg)
	},
}

func init() {
	contactCmd.Flags().StringVar(&contactMsg.Name, "name", "", "Your name (default user.email)")
	contactCmd.Flags().StringVar(&contactMsg.Email, "email", "", "Reply address (default user.email)")
	contactCmd.Flags().StringVarP(&contactMsg.Message, "message", "m", "", "Message text (required)")
	_ = contactCmd.MarkFlagRequired("message")
	rootCmd.AddCommand(contactCmd)
}

func newRelay() (*contact.Relay, error) {
	url := viper.GetString("contact.webhook_url")
	if url == "" {
		return nil, contact.ErrNotConfigured
	}
	return contact.NewRelay(url, viper.GetDuration("contact.timeout")), nil
}

func contactRun(ctx context.Context, m contact.Message) error {
	user := configuredUser()
	if m.Email == "" {
		m.Email = user.Email
	}
	if m.Name == "" {
		m.Name = user.Email
	}

	relay, err := newRelay()
	if err != nil {
		return err
	}

	if dryRun {
		if err := m.Validate(); err != nil {
			return err
		}
		ui.DryRunMsg("Would send message from %s to %s", m.Email, relay.URL)
		return nil
	}

	if err := relay.Send(ctx, m); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	ui.Success("Message sent")
	return nil
}
