package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banktools/bankml/churn"
	"github.com/banktools/bankml/core/model"
	"github.com/banktools/bankml/dataset"
	"github.com/banktools/bankml/loan"
	"github.com/banktools/bankml/metrics"
	"github.com/banktools/bankml/pipeline"
)

var (
	trainDataPath  string
	trainModelPath string
	trainPlotPath  string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a prediction model from a CSV dataset",
}

var trainChurnCmd = &cobra.Command{
	Use:   "churn",
	Short: "Train the customer churn model",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, loaded, err := dataset.LoadCSV(trainDataPath)
		if err != nil {
			return err
		}
		reportSkipped(cmd, loaded)

		predictor := churn.NewPredictor(
			churn.WithSeed(cfg.Seed),
			churn.WithAggressiveCleaningScore(cfg.AggressiveCleaningScore),
		)
		result, err := predictor.Train(ds)
		if err != nil {
			return err
		}
		printTraining(cmd, result.Quality.Overall.Score, result.Quality.Overall.Grade,
			result.Iterations, result.Train, result.Validation, result.Test)
		return finishTraining(cmd, predictor, predictor.CostHistory(), "Churn Training Loss", "churn")
	},
}

var trainLoanCmd = &cobra.Command{
	Use:   "loan",
	Short: "Train the loan approval model",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, loaded, err := dataset.LoadCSV(trainDataPath)
		if err != nil {
			return err
		}
		reportSkipped(cmd, loaded)

		predictor := loan.NewPredictor(
			loan.WithSeed(cfg.Seed),
			loan.WithAggressiveCleaningScore(cfg.AggressiveCleaningScore),
		)
		result, err := predictor.Train(ds)
		if err != nil {
			return err
		}
		printTraining(cmd, result.Quality.Overall.Score, result.Quality.Overall.Grade,
			result.Iterations, result.Train, result.Validation, result.Test)
		return finishTraining(cmd, predictor, predictor.CostHistory(), "Loan Training Loss", "loan")
	},
}

func init() {
	for _, c := range []*cobra.Command{trainChurnCmd, trainLoanCmd} {
		c.Flags().StringVar(&trainDataPath, "data", "", "training CSV file (required)")
		c.Flags().StringVar(&trainModelPath, "out", "", "output model file (default <models_dir>/<name>.gob)")
		c.Flags().StringVar(&trainPlotPath, "plot", "", "PNG path for the loss curve (default <plots_dir>/<name>_loss.png)")
		_ = c.MarkFlagRequired("data")
		trainCmd.AddCommand(c)
	}
	rootCmd.AddCommand(trainCmd)
}

func reportSkipped(cmd *cobra.Command, loaded *dataset.LoadResult) {
	if loaded.SkippedRows > 0 {
		cmd.PrintErrf("Warning: skipped %d malformed rows while loading\n", loaded.SkippedRows)
	}
}

func printTraining(cmd *cobra.Command, score float64, grade string, iterations int, train, val, test metrics.Metrics) {
	cmd.Printf("Data quality: %.1f (%s)\n", score, grade)
	cmd.Printf("Converged after %d iterations\n", iterations)
	for _, split := range []struct {
		name string
		m    metrics.Metrics
	}{{"train", train}, {"validation", val}, {"test", test}} {
		cmd.Printf("%-11s accuracy=%.4f precision=%.4f recall=%.4f f1=%.4f log-loss=%.4f auc=%.4f\n",
			split.name, split.m.Accuracy, split.m.Precision, split.m.Recall,
			split.m.F1, split.m.LogLoss, split.m.AUC)
	}
}

func finishTraining(cmd *cobra.Command, p model.Persistable, history []float64, plotTitle, name string) error {
	out := trainModelPath
	if out == "" {
		if err := os.MkdirAll(cfg.ModelsDir, 0o755); err != nil {
			return fmt.Errorf("mkdir models dir: %w", err)
		}
		out = filepath.Join(cfg.ModelsDir, name+".gob")
	}
	if err := model.SaveModel(p, out); err != nil {
		return err
	}
	cmd.Printf("Model saved to %s\n", out)

	plotPath := trainPlotPath
	if plotPath == "" {
		if err := os.MkdirAll(cfg.PlotsDir, 0o755); err != nil {
			return fmt.Errorf("mkdir plots dir: %w", err)
		}
		plotPath = filepath.Join(cfg.PlotsDir, name+"_loss.png")
	}
	if err := pipeline.SaveCostHistory(history, plotTitle, plotPath); err != nil {
		return err
	}
	cmd.Printf("Loss curve saved to %s\n", plotPath)
	return nil
}
