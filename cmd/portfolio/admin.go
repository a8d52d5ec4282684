package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"portfolio-site/internal/auth"
)

func adminCmd(logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	var username, password string
	addFlags := func(c *cobra.Command) {
		c.Flags().StringVarP(&username, "username", "u", "", "Admin username")
		c.Flags().StringVarP(&password, "password", "p", "", "Password (falls back to ADMIN_PASSWORD, then stdin)")
		_ = c.MarkFlagRequired("username")
	}

	create := &cobra.Command{
		Use:   "create-user",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := openAuthenticator(cmd, *logLevel)
			if err != nil {
				return err
			}
			defer done()
			pw, err := resolvePassword(password, cmd.InOrStdin())
			if err != nil {
				return err
			}
			user, err := a.CreateUser(cmd.Context(), username, pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
	addFlags(create)

	setPassword := &cobra.Command{
		Use:   "set-password",
		Short: "Replace the password of an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := openAuthenticator(cmd, *logLevel)
			if err != nil {
				return err
			}
			defer done()
			pw, err := resolvePassword(password, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := a.SetPassword(cmd.Context(), username, pw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", username)
			return nil
		},
	}
	addFlags(setPassword)

	cmd.AddCommand(create, setPassword)
	return cmd
}

func openAuthenticator(cmd *cobra.Command, logLevel string) (*auth.Authenticator, func(), error) {
	cfg, logger, err := setup(logLevel)
	if err != nil {
		return nil, nil, err
	}
	st, closeStore, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return auth.NewAuthenticator(st, slog.Default()), closeStore, nil
}

// resolvePassword prefers the flag, then ADMIN_PASSWORD, then the first line of in.
func resolvePassword(flag string, in io.Reader) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("ADMIN_PASSWORD"); env != "" {
		return env, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no password given: use --password, ADMIN_PASSWORD or stdin")
	}
	return line, nil
}
