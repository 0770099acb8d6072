package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/marketing-reports/internal/model"
)

var reportConfigFile string

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Generate and manage marketing reports",
}

var reportsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a report from a config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		var reportCfg model.ReportConfig
		if err := readRequestFile(reportConfigFile, &reportCfg); err != nil {
			return err
		}

		rep, err := env.generator.Generate(cmd.Context(), reportCfg)
		if err != nil {
			return err
		}
		return printJSON(cmd, rep)
	},
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		reports, err := env.store.ListReports()
		if err != nil {
			return err
		}
		return printJSON(cmd, reports)
	},
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		return env.store.DeleteReport(args[0])
	},
}

func init() {
	reportsGenerateCmd.Flags().StringVarP(&reportConfigFile, "file", "f", "", "report config file (YAML or JSON)")
	reportsGenerateCmd.MarkFlagRequired("file")

	reportsCmd.AddCommand(reportsGenerateCmd, reportsListCmd, reportsDeleteCmd)
	rootCmd.AddCommand(reportsCmd)
}
