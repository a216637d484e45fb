package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/banktools/bankml/dataset"
	"github.com/banktools/bankml/quality"
)

var (
	qualityDataPath  string
	qualityRulesPath string
	qualityJSON      bool
)

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Assess the quality of a CSV dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, loaded, err := dataset.LoadCSV(qualityDataPath)
		if err != nil {
			return err
		}
		reportSkipped(cmd, loaded)

		rules := quality.RuleSet{}
		rulesPath := qualityRulesPath
		if rulesPath == "" {
			rulesPath = cfg.RulesFile
		}
		if rulesPath != "" {
			if rules, err = quality.LoadRules(rulesPath); err != nil {
				return err
			}
		}

		report := quality.NewAssessor().GenerateQualityReport(ds, rules)
		if qualityJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		cmd.Printf("Overall: %.1f (%s)\n", report.Overall.Score, report.Overall.Grade)
		cmd.Printf("  completeness %.1f  consistency %.1f  validity %.1f  uniqueness %.1f\n",
			report.Completeness.Percentage, report.Consistency.Score,
			report.Validity.Percentage, report.Uniqueness.Percentage)
		for _, rec := range report.Overall.Recommendations {
			cmd.Printf("  - %s\n", rec)
		}
		return nil
	},
}

func init() {
	qualityCmd.Flags().StringVar(&qualityDataPath, "data", "", "CSV file to assess (required)")
	qualityCmd.Flags().StringVar(&qualityRulesPath, "rules", "", "YAML validation rules file")
	qualityCmd.Flags().BoolVar(&qualityJSON, "json", false, "emit the full report as JSON")
	_ = qualityCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(qualityCmd)
}
