package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/marketing-reports/internal/meridian"
	"github.com/sells-group/marketing-reports/internal/model"
)

var (
	meridianDataFile   string
	meridianOutputFile string
	meridianDateCol    string
	meridianTargetCol  string
	meridianWeekly     bool
)

var meridianCmd = &cobra.Command{
	Use:   "meridian",
	Short: "Prepare data for marketing mix modeling",
}

var meridianExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert fetched records into a Meridian-ready dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(meridianDataFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", meridianDataFile)
		}
		var records []model.ConversionRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return eris.Wrapf(err, "parse %s", meridianDataFile)
		}

		ds, err := meridian.Process(records, meridian.Options{
			DateColumn:   meridianDateCol,
			TargetColumn: meridianTargetCol,
			Weekly:       meridianWeekly,
		})
		if err != nil {
			return err
		}

		if meridianOutputFile != "" {
			out, err := json.MarshalIndent(ds, "", "  ")
			if err != nil {
				return eris.Wrap(err, "marshal dataset")
			}
			if err := os.WriteFile(meridianOutputFile, out, 0644); err != nil {
				return eris.Wrapf(err, "write %s", meridianOutputFile)
			}
			return nil
		}
		return printJSON(cmd, ds)
	},
}

func init() {
	meridianExportCmd.Flags().StringVarP(&meridianDataFile, "file", "f", "", "input records file (JSON array)")
	meridianExportCmd.Flags().StringVarP(&meridianOutputFile, "output", "o", "", "output file (default stdout)")
	meridianExportCmd.Flags().StringVar(&meridianDateCol, "date-column", "", "date column name (default \"date\")")
	meridianExportCmd.Flags().StringVar(&meridianTargetCol, "target-column", "", "target KPI column (guessed when unset)")
	meridianExportCmd.Flags().BoolVar(&meridianWeekly, "weekly", false, "aggregate rows into weekly buckets")
	meridianExportCmd.MarkFlagRequired("file")

	meridianCmd.AddCommand(meridianExportCmd)
	rootCmd.AddCommand(meridianCmd)
}
