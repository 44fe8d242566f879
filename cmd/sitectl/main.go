// Package main provides sitectl, a command line client for the site
// provisioning server.
//
// Usage:
//
//	sitectl token mint --key <64-hex> --upn user@tenant
//	sitectl --api-url http://localhost:8080 --token <t> sites list
//	sitectl --api-url http://localhost:8080 --token <t> sites request -f request.json
//	sitectl --api-url http://localhost:8080 --token <t> alias check finance-team
package main

import (
	"encoding/json/v2"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/eumtools/siteprov-server/internal/auth"
	"github.com/eumtools/siteprov-server/internal/client"
)

var (
	apiURL string
	token  string
)

func main() {
	root := &cobra.Command{
		Use:           "sitectl",
		Short:         "Command line client for the site provisioning server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&apiURL, "api-url", envOr("SITEPROV_API_URL", "http://localhost:8080"), "Provisioning server base URL")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("SITEPROV_TOKEN"), "Identity token")

	root.AddCommand(newTokenCmd(), newSitesCmd(), newAliasCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newClient() *client.Client {
	return client.New(client.Config{BaseURL: apiURL, Token: token})
}

func newTokenCmd() *cobra.Command {
	var (
		keyHex   string
		upn      string
		duration time.Duration
	)

	mint := &cobra.Command{
		Use:   "mint",
		Short: "Mint an identity token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keyHex == "" {
				keyHex = os.Getenv("SITEPROV_TOKEN_KEY")
			}
			if keyHex == "" {
				return fmt.Errorf("a token key is required (--key or SITEPROV_TOKEN_KEY)")
			}
			if upn == "" {
				return fmt.Errorf("a UPN is required (--upn)")
			}

			tokens, err := auth.NewTokenService(keyHex, duration)
			if err != nil {
				return err
			}
			minted, err := tokens.GenerateToken(upn)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), minted)
			return nil
		},
	}
	mint.Flags().StringVar(&keyHex, "key", "", "PASETO v4 symmetric key (64 hex chars)")
	mint.Flags().StringVar(&upn, "upn", "", "Caller UPN, e.g. i:0#.f|membership|user@tenant")
	mint.Flags().DurationVar(&duration, "duration", 12*time.Hour, "Token lifetime")

	tokenCmd := &cobra.Command{Use: "token", Short: "Identity token operations"}
	tokenCmd.AddCommand(mint)
	return tokenCmd
}

func newSitesCmd() *cobra.Command {
	var parentURL string

	list := &cobra.Command{
		Use:   "list",
		Short: "List created sites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sites, err := newClient().ListSites(cmd.Context(), parentURL)
			if err != nil {
				return err
			}

			out, err := json.Marshal(sites)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	list.Flags().StringVar(&parentURL, "parent-url", "", "Only list sites under this parent URL")

	var requestFile string
	request := &cobra.Command{
		Use:   "request",
		Short: "Submit a site request from a JSON field file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if requestFile == "" {
				return fmt.Errorf("a request file is required (-f)")
			}
			raw, err := os.ReadFile(requestFile)
			if err != nil {
				return err
			}

			var fields map[string]any
			if err := json.Unmarshal(raw, &fields); err != nil {
				return fmt.Errorf("parse request file: %w", err)
			}

			if err := newClient().SubmitSiteRequest(cmd.Context(), fields); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Site request submitted.")
			return nil
		},
	}
	request.Flags().StringVarP(&requestFile, "file", "f", "", "JSON file holding the request fields")

	sites := &cobra.Command{Use: "sites", Short: "Site listing and requests"}
	sites.AddCommand(list, request)
	return sites
}

func newAliasCmd() *cobra.Command {
	check := &cobra.Command{
		Use:   "check <alias>",
		Short: "Check alias availability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			available, err := newClient().CheckAlias(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if available {
				fmt.Fprintf(cmd.OutOrStdout(), "Alias %q is available.\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Alias %q is already in use.\n", args[0])
			}
			return nil
		},
	}

	alias := &cobra.Command{Use: "alias", Short: "Alias operations"}
	alias.AddCommand(check)
	return alias
}
