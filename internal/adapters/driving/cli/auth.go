package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/ksef-desk/internal/adapters/driven/oauth"
	"github.com/custodia-labs/ksef-desk/internal/core/domain"
)

var authProfile string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate the active profile",
	Long: `Discard any stored token for the profile and authenticate again.

Profiles using the device grant print a verification link and code; confirm
them in a browser within two minutes.

Examples:
  ksef-desk auth
  ksef-desk auth --profile branch`,
	RunE: runAuth,
}

func init() {
	authCmd.Flags().StringVar(&authProfile, "profile", "", "profile to authenticate (default: active profile)")
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{configDir: configDir, prompt: devicePrompt(cmd)})
	if err != nil {
		return err
	}
	defer a.shutdown()

	profile, err := selectProfile(a, authProfile)
	if err != nil {
		return err
	}

	cmd.Printf("Authenticating %s (NIP %s, %s)...\n", profile.Name, profile.NIP, profile.Environment)
	cred, err := a.tokens.Reauthenticate(ctx, profile)
	if err != nil {
		cmd.Println(errStyle.Render("Authentication failed"))
		return fmt.Errorf("authenticate %s: %w", profile.Name, err)
	}

	cmd.Println(okStyle.Render("Authenticated"))
	printStatus(cmd, cred.Status())
	return nil
}

// selectProfile returns the named profile, or the active one when name is empty.
func selectProfile(a *app, name string) (domain.Profile, error) {
	if name == "" {
		return a.activeProfile()
	}
	profiles, err := a.settings.Profiles()
	if err != nil {
		return domain.Profile{}, err
	}
	for _, p := range profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return domain.Profile{}, fmt.Errorf("%w: %s", domain.ErrUnknownProfile, name)
}

// devicePrompt prints device authorization instructions to the command output.
func devicePrompt(cmd *cobra.Command) oauth.DevicePrompt {
	return func(profile domain.Profile, resp *oauth2.DeviceAuthResponse) {
		uri := resp.VerificationURIComplete
		if uri == "" {
			uri = resp.VerificationURI
		}
		body := titleStyle.Render("Confirm sign-in for "+profile.Name) + "\n\n" +
			field("Open", uri) + "\n" +
			field("Code", activeStyle.Render(resp.UserCode)) + "\n" +
			field("Expires in", oauth.DeviceTimeout.String())
		if isTerminal() {
			body = boxStyle.Render(body)
		}
		cmd.Println(body)
	}
}

func printStatus(cmd *cobra.Command, st domain.TokenStatus) {
	cmd.Println(field("Access token", describeExpiry(st.AccessTokenValidUntil, time.Now())))
	cmd.Println(field("Refresh token", describeExpiry(st.RefreshTokenValidUntil, time.Now())))
}

// describeExpiry renders an expiry time relative to now.
func describeExpiry(t *time.Time, now time.Time) string {
	if t == nil {
		return warnStyle.Render("none")
	}
	left := t.Sub(now)
	when := t.Local().Format("2006-01-02 15:04:05")
	if left <= 0 {
		return errStyle.Render("expired " + when)
	}
	return okStyle.Render(fmt.Sprintf("valid until %s (%s left)", when, left.Round(time.Second)))
}
