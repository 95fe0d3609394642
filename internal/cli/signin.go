package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"escrowgate/internal/passwordless/client"
	"escrowgate/internal/passwordless/emailstore"
	"escrowgate/internal/passwordless/flow"
)

const defaultServer = "http://localhost:8080"

type signInOptions struct {
	server    string
	storePath string
}

func (o *signInOptions) store() (*emailstore.File, error) {
	path := o.storePath
	if path == "" {
		var err error
		if path, err = emailstore.DefaultFilePath(); err != nil {
			return nil, fmt.Errorf("locate sign-in state: %w", err)
		}
	}
	return emailstore.NewFile(path), nil
}

func newSignInCommand() *cobra.Command {
	opts := &signInOptions{}
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with an email link from the terminal",
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", defaultServer, "escrowgate base URL")
	cmd.PersistentFlags().StringVar(&opts.storePath, "state-file", "", "where the requesting email is remembered")

	cmd.AddCommand(newSignInSendCommand(opts), newSignInCompleteCommand(opts))
	return cmd
}

func newSignInSendCommand(opts *signInOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Email a sign-in link and remember the address on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := opts.store()
			if err != nil {
				return err
			}
			email = strings.TrimSpace(email)
			api := client.New(opts.server)
			if err := flow.SendLink(cmd.Context(), api, email); err != nil {
				return err
			}
			if err := store.Save(email, api.LinkTTL()); err != nil {
				return fmt.Errorf("remember email: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sign-in link sent to %s. Open it or run `escrowgate signin complete --link <url>`.\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address to send the link to")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSignInCompleteCommand(opts *signInOptions) *cobra.Command {
	var (
		rawLink string
		email   string
	)
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Complete sign-in with the link from the email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := opts.store()
			if err != nil {
				return err
			}
			var emails flow.EmailStore = file
			if email != "" {
				emails = emailstore.Static(email)
			}

			api := client.New(opts.server)
			view, err := completeSignIn(cmd.Context(), flow.New(api, emails, api), rawLink,
				cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if view.State != flow.StateSuccess {
				return errors.New(view.Message)
			}
			_ = file.Clear()
			return nil
		},
	}
	cmd.Flags().StringVar(&rawLink, "link", "", "sign-in link from the email")
	cmd.Flags().StringVar(&email, "email", "", "email the link was sent to, when signing in on another device")
	_ = cmd.MarkFlagRequired("link")
	return cmd
}

// completeSignIn drives f from rawLink to a terminal state, prompting on in
// whenever the flow needs the email address.
func completeSignIn(ctx context.Context, f *flow.Flow, rawLink string, in io.Reader, out io.Writer) (flow.View, error) {
	view, err := f.Start(ctx, rawLink)
	if err != nil {
		return view, err
	}

	scanner := bufio.NewScanner(in)
	for view.State == flow.StateNeedEmail {
		if view.ValidationError != "" {
			fmt.Fprintln(out, view.ValidationError)
		}
		fmt.Fprint(out, "Email used to request the link: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return view, err
			}
			return view, errors.New("sign-in cancelled: no email entered")
		}
		if view, err = f.SubmitEmail(ctx, scanner.Text()); err != nil {
			return view, err
		}
	}

	printView(out, view)
	return view, nil
}

func printView(out io.Writer, view flow.View) {
	if view.State == flow.StateSuccess {
		fmt.Fprintf(out, "Signed in as %s.\n", view.Email)
		return
	}
	fmt.Fprintf(out, "%s: %s\n", view.Title, view.Message)
	switch view.NextAction {
	case flow.ActionRequestNewLink:
		fmt.Fprintln(out, "Run `escrowgate signin send --email <address>` for a new link.")
	case flow.ActionRetryEmail:
		fmt.Fprintln(out, "Run `escrowgate signin complete` again with the email that requested the link.")
	}
}
