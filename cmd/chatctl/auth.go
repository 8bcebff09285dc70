package main

import (
	"context"
	"net/http"

	"chatdesk-backend/internal/auth"
	"chatdesk-backend/internal/client"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newClient builds an API client from the configured server and token
func newClient() (*client.Client, error) {
	return client.New(viper.GetString("server"), client.WithToken(viper.GetString("token")))
}

// requireSession fails early when no token is configured
func requireSession() (*client.Client, error) {
	if viper.GetString("token") == "" {
		return nil, errors.New("not logged in, run chatctl login first")
	}
	return newClient()
}

func newLoginCmd() *cobra.Command {
	var opts struct {
		Email    string
		Username string
		Password string
		Admin    bool
	}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}

			var result *auth.Result
			if opts.Admin {
				result, err = c.AdminLogin(cmd.Context(), opts.Username, opts.Password)
			} else {
				result, err = c.Login(cmd.Context(), opts.Email, opts.Password)
			}
			if err != nil {
				return err
			}
			if err := saveToken(result.Token); err != nil {
				return errors.Wrap(err, "saving token")
			}

			if result.IsAdmin {
				success("logged in as admin, session valid until %s", result.ExpiresAt.Local().Format("2006-01-02 15:04"))
			} else {
				success("logged in as %s", result.Profile.Email)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&opts.Username, "username", "u", "", "Admin username")
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "Password")
	cmd.Flags().BoolVar(&opts.Admin, "admin", false, "Log in to the admin account")
	cobra.CheckErr(cmd.MarkFlagRequired("password"))
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var in auth.RegisterInput

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.ConfirmPassword == "" {
				in.ConfirmPassword = in.Password
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			result, err := c.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			if err := saveToken(result.Token); err != nil {
				return errors.Wrap(err, "saving token")
			}
			success("welcome %s", result.Profile.FullName)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&in.FullName, "name", "n", "", "Full name")
	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "Password")
	cmd.Flags().StringVar(&in.ConfirmPassword, "confirm-password", "", "Password again (defaults to --password)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession()
			if err != nil {
				return err
			}
			if err := c.Logout(cmd.Context()); err != nil && client.StatusOf(err) != http.StatusUnauthorized {
				return err
			}
			return saveToken("")
		},
	}
}

// whoami resolves the profile behind the session, used by commands that filter by owner
func whoami(ctx context.Context, c *client.Client) (*client.Session, error) {
	session, err := c.Me(ctx)
	if err != nil {
		return nil, err
	}
	if session.Profile == nil {
		return nil, errors.New("this command needs a user session, not an admin one")
	}
	return session, nil
}
