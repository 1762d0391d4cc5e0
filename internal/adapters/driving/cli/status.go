package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusProfile string

var tokenStatusCmd = &cobra.Command{
	Use:   "token-status",
	Short: "Show how long the stored tokens remain valid",
	Long: `Show the expiry of the stored access and refresh tokens for a profile.

This reads the token file only; it never contacts the authorization server.`,
	RunE: runTokenStatus,
}

func init() {
	tokenStatusCmd.Flags().StringVar(&statusProfile, "profile", "", "profile to inspect (default: active profile)")
	rootCmd.AddCommand(tokenStatusCmd)
}

func runTokenStatus(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), appOptions{configDir: configDir})
	if err != nil {
		return err
	}
	defer a.shutdown()

	profile, err := selectProfile(a, statusProfile)
	if err != nil {
		return err
	}
	st, err := a.tokens.Status(profile.Identity())
	if err != nil {
		return fmt.Errorf("read token status: %w", err)
	}

	cmd.Println(titleStyle.Render(fmt.Sprintf("%s (NIP %s, %s)", profile.Name, profile.NIP, profile.Environment)))
	printStatus(cmd, st)
	return nil
}
