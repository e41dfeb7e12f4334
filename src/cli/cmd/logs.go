package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sofmeright/rebuildkit/src/logscan"
	"github.com/sofmeright/rebuildkit/src/output"
)

var lsPolicy string

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Build log commands",
}

var logsScanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Scan build logs for leaked secrets",
	Long: `Scan runs the gitleaks rule set over every file under dir. With --policy fail
the command exits non-zero when anything is found.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogsScan,
}

func init() {
	logsScanCmd.Flags().StringVar(&lsPolicy, "policy", "", "off, warn or fail (default from config)")

	logsCmd.AddCommand(logsScanCmd)
	rootCmd.AddCommand(logsCmd)
}

func runLogsScan(cmd *cobra.Command, args []string) error {
	name := cfg.Deploy.LogSecrets
	if cmd.Flags().Changed("policy") {
		name = lsPolicy
	}
	policy, err := logscan.ParsePolicy(name)
	if err != nil {
		return err
	}
	if policy == logscan.PolicyOff {
		return nil
	}

	var findings []logscan.Finding
	elapsed, _ := runPhase(cmd, "logs_scan", "Scanning build logs", func() error {
		var err error
		findings, err = logscan.NewScanner(logger).Scan(cmd.Context(), args[0])
		if err != nil {
			logger.Warn().Err(err).Msg("Log scan incomplete")
		}
		return err
	})

	color := output.UseColor()
	sec := output.NewSection(cmd.OutOrStdout(), "Log Secrets", elapsed, color)
	output.SectionFindings(sec, findings, color)
	sec.Close()

	if len(findings) > 0 && policy == logscan.PolicyFail {
		return fmt.Errorf("%d possible secret(s) in %s", len(findings), args[0])
	}
	return nil
}
