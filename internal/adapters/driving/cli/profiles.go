package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List configured profiles",
	RunE:  runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), appOptions{configDir: configDir})
	if err != nil {
		return err
	}
	defer a.shutdown()

	profiles, err := a.settings.Profiles()
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		cmd.Println("No profiles configured.")
		cmd.Printf("Add a [[profiles]] table to %s\n", a.configPath)
		return nil
	}

	active := a.orch.Profile().Name
	for _, p := range profiles {
		line := fmt.Sprintf("%-20s NIP %s  %s", p.Name, p.NIP, p.Environment)
		if p.Name == active {
			cmd.Println(activeStyle.Render("* " + line))
			continue
		}
		cmd.Println("  " + line)
	}
	return nil
}
