package cli

import (
	"github.com/spf13/cobra"

	"github.com/banktools/bankml/churn"
	"github.com/banktools/bankml/core/model"
	"github.com/banktools/bankml/dataset"
)

var (
	analyzeModelPath string
	analyzeDataPath  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run batch churn analysis over a CSV of customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		predictor := churn.NewPredictor()
		if err := model.LoadModel(predictor, analyzeModelPath); err != nil {
			return err
		}
		ds, loaded, err := dataset.LoadCSV(analyzeDataPath)
		if err != nil {
			return err
		}
		reportSkipped(cmd, loaded)

		records := make([]dataset.Record, ds.NumRows())
		for i := range records {
			rec := dataset.Record{}
			for _, col := range ds.Columns() {
				rec[col] = ds.At(i, col)
			}
			records[i] = rec
		}

		result, err := predictor.AnalyzeBatch(records)
		if err != nil {
			return err
		}

		cmd.Printf("Run %s: analyzed %d of %d rows (%d skipped)\n",
			result.RunID, result.Analyzed, result.TotalRows, result.Skipped)
		cmd.Printf("Average churn probability: %.4f\n", result.AverageProbability)
		cmd.Printf("Risk distribution: High=%d Medium=%d Low=%d\n",
			result.RiskDistribution["High"], result.RiskDistribution["Medium"], result.RiskDistribution["Low"])
		for geo, stats := range result.ByGeography {
			cmd.Printf("  %-10s customers=%d avg=%.4f high-risk=%d\n",
				geo, stats.Count, stats.AverageProbability, stats.HighRisk)
		}
		for _, sample := range result.SkipSamples {
			cmd.PrintErrf("  skipped: %s\n", sample)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeModelPath, "model", "", "trained churn model file (required)")
	analyzeCmd.Flags().StringVar(&analyzeDataPath, "data", "", "customer CSV file (required)")
	_ = analyzeCmd.MarkFlagRequired("model")
	_ = analyzeCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(analyzeCmd)
}
