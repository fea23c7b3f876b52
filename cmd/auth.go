package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"healthdesk/internal/api"
	"healthdesk/internal/model"
)

func newLoginCmd(f *flags) *cobra.Command {
	var creds model.LoginRequest

	c := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Long: `Sign in with email and password and store the access token for the
interactive interface. The password is read from stdin when --password
is omitted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), f, false)
			if err != nil {
				return err
			}
			defer e.Close()

			if creds.Password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				pw, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				creds.Password = pw
			}
			creds.Email = strings.TrimSpace(creds.Email)
			if errs, ok := creds.Ok(); !ok {
				for _, field := range []string{"email", "password"} {
					if msg, found := errs[field]; found {
						return errors.New(msg)
					}
				}
			}

			resp, err := api.NewAuth(e.client).Login(cmd.Context(), creds)
			if err != nil {
				e.logger.Info("login failed", zap.Error(err))
				return errors.New(api.MessageOr(err, "Invalid email or password"))
			}
			if err := e.session.Begin(cmd.Context(), resp); err != nil {
				return err
			}
			e.logger.Info("signed in from cli", zap.String("org_id", e.session.OrgID()))

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", resp.User.DisplayName())
			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard: %s\n", e.session.DashboardPath())
			return nil
		},
	}
	c.Flags().StringVarP(&creds.Email, "email", "e", "", "account email")
	c.Flags().StringVarP(&creds.Password, "password", "p", "", "account password (read from stdin when empty)")
	return c
}

func newLogoutCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token, user and organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), f, false)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.session.Teardown(cmd.Context()); err != nil {
				return err
			}
			e.cache.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(f *flags) *cobra.Command {
	var remote bool

	c := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), f, false)
			if err != nil {
				return err
			}
			defer e.Close()

			if !e.session.IsAuthenticated() {
				return errors.New("not signed in, run healthdesk login")
			}
			out := cmd.OutOrStdout()

			if remote {
				ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.RequestTimeout)
				defer cancel()
				u, err := api.NewAuth(e.client).Me(ctx)
				if err != nil {
					if errors.Is(err, api.ErrUnauthorized) {
						return errors.New("session expired, run healthdesk login")
					}
					return err
				}
				printAccount(out, u.DisplayName(), u.Email, u.Role, u.OrgID, u.OrgName)
			} else {
				name := e.session.Email()
				if u, ok := e.session.User(); ok {
					name = u.DisplayName()
				}
				printAccount(out, name, e.session.Email(), e.session.Role(), e.session.OrgID(), e.session.OrgName())
			}

			fmt.Fprintf(out, "%-14s %s\n", "Dashboard", e.session.DashboardPath())
			if exp := e.session.ExpiresAt(); !exp.IsZero() {
				fmt.Fprintf(out, "%-14s %s (in %s)\n", "Expires", exp.Local().Format(time.RFC1123), time.Until(exp).Round(time.Minute))
			}
			return nil
		},
	}
	c.Flags().BoolVar(&remote, "remote", false, "ask the API instead of reading the stored token")
	return c
}

func printAccount(w io.Writer, name, email, role, orgID, orgName string) {
	fmt.Fprintf(w, "%-14s %s\n", "Name", name)
	fmt.Fprintf(w, "%-14s %s\n", "Email", email)
	fmt.Fprintf(w, "%-14s %s\n", "Role", role)
	fmt.Fprintf(w, "%-14s %s\n", "Organization", orgName)
	fmt.Fprintf(w, "%-14s %s\n", "Org ID", orgID)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
