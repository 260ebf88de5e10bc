package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var tokenEmail string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue or revoke API tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a bearer token for an owner",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, cleanup, err := newApp(cfg)
		if err != nil {
			return fmt.Errorf("init app: %w", err)
		}
		defer cleanup()

		token, err := a.JWT.Issue(ownerID, tokenEmail)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke <token>",
	Short: "Revoke a token until it expires (requires redis)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp(cfg)
		if err != nil {
			return fmt.Errorf("init app: %w", err)
		}
		defer cleanup()

		if a.Blacklist == nil {
			return errors.New("redis is disabled (BOOKSHELF_REDIS_ENABLED=true)")
		}

		// 已过期的Token无需吊销，ParseToken直接返回错误
		claims, err := a.JWT.ParseToken(args[0])
		if err != nil {
			return err
		}
		ttl := claims.TokenTTL(time.Now())
		if err := a.Blacklist.Revoke(cmd.Context(), args[0], ttl); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "revoked token for owner %d (%s remaining)\n", claims.OwnerID, ttl.Round(time.Second))
		return err
	},
}

func init() {
	tokenIssueCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	requireOwner(tokenIssueCmd)
	tokenCmd.AddCommand(tokenIssueCmd, tokenRevokeCmd)
	rootCmd.AddCommand(tokenCmd)
}
