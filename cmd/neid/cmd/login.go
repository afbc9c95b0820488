package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(flags *rootFlags) *cobra.Command {
	var (
		userid     string
		password   string
		cookiePath string
	)

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				fmt.Fprint(os.Stderr, "Password: ")
				raw, err := term.ReadPassword(int(syscall.Stdin))
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return fmt.Errorf("reading password: %w", err)
				}
				password = string(raw)
			}

			a, err := flags.buildArchive()
			if err != nil {
				return err
			}

			if err := a.Login(cmd.Context(), userid, password, cookiePath); err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout, "Successfully login as", userid)
			if cookiePath != "" {
				fmt.Fprintln(os.Stdout, "Session saved to", cookiePath)
			}
			return nil
		},
	}

	loginCmd.Flags().StringVarP(&userid, "user", "u", "", "archive user ID")
	loginCmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	loginCmd.Flags().StringVar(&cookiePath, "save-cookies", "", "write session cookies to this file")
	_ = loginCmd.MarkFlagRequired("user")

	return loginCmd
}
