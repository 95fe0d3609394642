package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"escrowgate/internal/passwordless/link"
	"escrowgate/internal/platform/config"
)

type linkOutput struct {
	Link      string `json:"link"`
	Email     string `json:"email"`
	ExpiresIn string `json:"expires_in"`
}

// newLinkCommand mints sign-in links with the configured signing key, for
// local testing without a mail server.
func newLinkCommand(root *rootOptions) *cobra.Command {
	var (
		email  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Print a sign-in link for an email address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			return issueLink(cmd, cfg, email, asJSON)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address the link signs in")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func issueLink(cmd *cobra.Command, cfg *config.Config, email string, asJSON bool) error {
	links, err := link.New(cfg.Passwordless.SigningKey, cfg.Passwordless.ContinueURL,
		link.WithTTL(cfg.Passwordless.LinkTTL))
	if err != nil {
		return err
	}
	signed, err := links.Issue(cmd.Context(), email)
	if err != nil {
		return err
	}
	return writeLink(cmd.OutOrStdout(), linkOutput{
		Link:      signed,
		Email:     link.NormalizeEmail(email),
		ExpiresIn: links.TTL().Round(time.Second).String(),
	}, asJSON)
}

func writeLink(w io.Writer, out linkOutput, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	_, err := fmt.Fprintf(w, "%s\n\nSigns in %s, expires in %s.\n", out.Link, out.Email, out.ExpiresIn)
	return err
}
