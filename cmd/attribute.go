package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/marketing-reports/internal/model"
)

var attributeFile string

var attributeCmd = &cobra.Command{
	Use:   "attribute",
	Short: "Build an attribution model from a request file",
	Long:  "Reads an attribution request (YAML or JSON), runs the allocation, persists the model, and prints it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		var req model.AttributionRequest
		if err := readRequestFile(attributeFile, &req); err != nil {
			return err
		}

		m, err := env.attribution.CreateModel(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(cmd, m)
	},
}

// readRequestFile decodes a YAML or JSON request file into out.
func readRequestFile(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(raw, out); err != nil {
			return eris.Wrapf(err, "parse %s", path)
		}
		return nil
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return eris.Wrapf(err, "parse %s", path)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal output")
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return nil
}

func init() {
	attributeCmd.Flags().StringVarP(&attributeFile, "file", "f", "", "attribution request file (YAML or JSON)")
	attributeCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(attributeCmd)
}
