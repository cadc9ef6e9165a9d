package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Harshanhkp24/KrishiMitra/internal/models"

	"github.com/spf13/cobra"
)

func newPredictCmd(configPath *string) *cobra.Command {
	var (
		req    models.PredictionRequest
		record bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score one request and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			var result *models.PredictionResult
			if record {
				result, err = a.predictor.PredictAndRecord(cmd.Context(), req)
			} else {
				result, err = a.predictor.Predict(req)
			}
			if result == nil {
				return err
			}
			if err != nil && errors.Is(err, models.ErrPersistence) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&req.SoilType, "soil", "", "soil type (e.g. Loamy)")
	cmd.Flags().StringVar(&req.Rainfall, "rainfall", "", "rainfall in mm")
	cmd.Flags().StringVar(&req.Temperature, "temperature", "", "temperature in °C")
	cmd.Flags().BoolVar(&record, "record", false, "append the prediction to history")
	_ = cmd.MarkFlagRequired("soil")
	_ = cmd.MarkFlagRequired("rainfall")
	_ = cmd.MarkFlagRequired("temperature")
	return cmd
}
