package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the package registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newRegistryClient()
		if err != nil {
			return err
		}
		results, err := client.Search(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(results) == 0 {
			cmd.Println("No packages found")
			return nil
		}
		for _, r := range results {
			if r.Description != "" {
				cmd.Printf("  %s %s - %s\n", r.Name, r.Version, r.Description)
			} else {
				cmd.Printf("  %s %s\n", r.Name, r.Version)
			}
		}
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clear the artifact cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, _, err := newInstaller()
		if err != nil {
			return err
		}
		removed, err := inst.Clean()
		if err != nil {
			return err
		}
		cmd.Printf("Removed %d cached item(s)\n", removed)
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check locked dependencies against the advisory database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, cfg, err := newInstaller()
		if err != nil {
			return err
		}
		report, err := inst.Audit()
		if err != nil {
			return err
		}
		if report.DatabaseMissing {
			cmd.Printf("No vulnerability database at %s; nothing to audit against\n", cfg.AdvisoryFile)
			return nil
		}
		if len(report.Findings) == 0 {
			cmd.Printf("Checked %d package(s), no known vulnerabilities\n", report.Checked)
			return nil
		}
		for _, f := range report.Findings {
			adv := f.Advisory
			cmd.Printf("  %s: %s %s affected by %s (%s)\n",
				adv.ID, adv.Package, f.Version, adv.Affected, adv.Severity)
			if adv.FixedIn != "" {
				cmd.Printf("    fixed in %s\n", adv.FixedIn)
			}
		}
		return fmt.Errorf("%d vulnerable package(s) found", len(report.Findings))
	},
}

func init() {
	rootCmd.AddCommand(searchCmd, cleanCmd, auditCmd)
}
