package main

import (
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage stored attribution models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored attribution models",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		models, err := env.store.ListModels()
		if err != nil {
			return err
		}
		return printJSON(cmd, models)
	},
}

var modelsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one attribution model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		m, err := env.store.GetModel(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, m)
	},
}

var modelsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an attribution model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		return env.store.DeleteModel(args[0])
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd, modelsGetCmd, modelsDeleteCmd)
	rootCmd.AddCommand(modelsCmd)
}
