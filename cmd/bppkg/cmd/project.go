package cmd

import (
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Create a new BetterPython project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, _, err := newInstaller()
		if err != nil {
			return err
		}
		if err := inst.Init(args[0]); err != nil {
			return err
		}
		cmd.Printf("Initialized %s\n", args[0])
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <name>...",
	Short: "Remove dependencies from the project",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, _, err := newInstaller()
		if err != nil {
			return err
		}
		if err := inst.Uninstall(args); err != nil {
			return err
		}
		cmd.Printf("Uninstalled %d package(s)\n", len(args))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List declared dependencies and locked versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, _, err := newInstaller()
		if err != nil {
			return err
		}
		m, lf, err := inst.List()
		if err != nil {
			return err
		}

		printSection := func(title string, deps []depRow) {
			if len(deps) == 0 {
				return
			}
			cmd.Printf("%s:\n", title)
			for _, d := range deps {
				if d.locked != "" {
					cmd.Printf("  %s %s (locked %s)\n", d.name, d.spec, d.locked)
				} else {
					cmd.Printf("  %s %s\n", d.name, d.spec)
				}
			}
		}

		var regular, dev []depRow
		for _, d := range m.Dependencies.Pairs() {
			regular = append(regular, depRow{d.Name, d.Spec, lf.Packages[d.Name].Version})
		}
		for _, d := range m.DevDependencies.Pairs() {
			dev = append(dev, depRow{d.Name, d.Spec, lf.Packages[d.Name].Version})
		}

		cmd.Printf("%s %s\n", m.Name, m.Version)
		if len(regular) == 0 && len(dev) == 0 {
			cmd.Println("No dependencies declared")
			return nil
		}
		printSection("Dependencies", regular)
		printSection("Dev-dependencies", dev)
		return nil
	},
}

type depRow struct {
	name, spec, locked string
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Validate the project for publication",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, cfg, err := newInstaller()
		if err != nil {
			return err
		}
		m, err := inst.Publish()
		if err != nil {
			return err
		}
		cmd.Printf("%s %s is ready to publish\n", m.Name, m.Version)
		cmd.Printf("Submit the package through the registry at %s\n", cfg.RegistryURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd, uninstallCmd, listCmd, publishCmd)
}
