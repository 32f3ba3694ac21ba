package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/adfharrison1/go-analytics/pkg/aggregation"
	"github.com/adfharrison1/go-analytics/pkg/domain"
)

func newAggregateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate <collection> <pipeline.json|->",
		Short: "Run an aggregation pipeline against a collection and print the results",
		Example: `  go-analytics aggregate sales pipeline.json
  echo '[{"$group":{"_id":"$item","n":{"$sum":1}}}]' | go-analytics aggregate sales -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			data, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			pipeline, err := aggregation.ParsePipelineJSON(data)
			if err != nil {
				return err
			}

			b, err := openBackend(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := b.close(); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			results, err := aggregation.NewEvaluator(b.store).Run(cmd.Context(), args[0], pipeline)
			if err != nil {
				return err
			}
			return printDocuments(cmd.OutOrStdout(), results)
		},
	}
}

// readInput reads a file, or standard input when name is "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline: %w", err)
	}
	return data, nil
}

func printDocuments(w io.Writer, docs []domain.Document) error {
	if docs == nil {
		docs = []domain.Document{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}
