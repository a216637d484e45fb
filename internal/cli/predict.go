package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/banktools/bankml/churn"
	"github.com/banktools/bankml/core/model"
	"github.com/banktools/bankml/loan"
)

var (
	predictModelPath string
	predictInputPath string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Score a single customer or application from a JSON file",
}

var predictChurnCmd = &cobra.Command{
	Use:   "churn",
	Short: "Score one customer's churn risk",
	RunE: func(cmd *cobra.Command, args []string) error {
		predictor := churn.NewPredictor()
		if err := model.LoadModel(predictor, predictModelPath); err != nil {
			return err
		}
		var customer churn.Customer
		if err := readJSON(predictInputPath, &customer); err != nil {
			return err
		}
		pred, err := predictor.Predict(customer)
		if err != nil {
			return err
		}
		return writeJSON(cmd, pred)
	},
}

var predictLoanCmd = &cobra.Command{
	Use:   "loan",
	Short: "Score one loan application",
	RunE: func(cmd *cobra.Command, args []string) error {
		predictor := loan.NewPredictor()
		if err := model.LoadModel(predictor, predictModelPath); err != nil {
			return err
		}
		var app loan.Application
		if err := readJSON(predictInputPath, &app); err != nil {
			return err
		}
		pred, err := predictor.Predict(app)
		if err != nil {
			return err
		}
		return writeJSON(cmd, pred)
	},
}

func init() {
	for _, c := range []*cobra.Command{predictChurnCmd, predictLoanCmd} {
		c.Flags().StringVar(&predictModelPath, "model", "", "trained model file (required)")
		c.Flags().StringVar(&predictInputPath, "input", "", "JSON input file (required)")
		_ = c.MarkFlagRequired("model")
		_ = c.MarkFlagRequired("input")
		predictCmd.AddCommand(c)
	}
	rootCmd.AddCommand(predictCmd)
}

func readJSON(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
