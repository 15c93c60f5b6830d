package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alexlup06-authgate/signin-go/signin"
)

var resolveMarker string

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the configuration a gate marker resolves to",
	Long: `Merges the base settings with the overrides carried by a marker, e.g.

  signin-gate resolve --marker '[sign_in_require_auth region="eu-west-1"]'`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		base, err := newSettings(newLogger()).Settings(cmd.Context())
		if err != nil {
			return err
		}

		cfg := base
		if m, ok := signin.ExtractMarker(resolveMarker); ok {
			cfg = base.WithOverrides(m.Attributes())
		} else if resolveMarker != "" {
			return fmt.Errorf("no %q marker found in %q", signin.GatePrefix, resolveMarker)
		}

		printConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveMarker, "marker", "", "marker text, including brackets")
	RootCmd.AddCommand(resolveCmd)
}

func printConfig(w io.Writer, cfg signin.Config) {
	fmt.Fprintf(w, "profile:          %s\n", cfg.Profile)
	fmt.Fprintf(w, "region:           %s\n", cfg.Region)
	fmt.Fprintf(w, "client id:        %s\n", cfg.ClientID)
	fmt.Fprintf(w, "user pool id:     %s\n", cfg.UserPoolID)
	fmt.Fprintf(w, "credentials path: %s\n", cfg.CredentialsPath)
	fmt.Fprintf(w, "api version:      %s\n", cfg.APIVersion)
	if p := cfg.Problem(); p != signin.MessageNone {
		fmt.Fprintf(w, "problem:          %s\n", p)
	}
}
