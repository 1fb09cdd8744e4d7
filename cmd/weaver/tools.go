package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenthands/weaver/internal/core"
	"github.com/agenthands/weaver/internal/server"
	"github.com/agenthands/weaver/internal/tools"
)

// readInput returns the contents of path, or of in when path is "-".
func readInput(path string, in io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(in)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func (a *app) toolkit(w *core.Weaver) *tools.Toolkit {
	return tools.New(w, a.logger.Named("tools"),
		tools.WithSearchDefaults(a.cfg.Retrieval.TopK, a.cfg.Retrieval.Threshold))
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a graph bundle from a JSON file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return a.withWeaver(cmd.Context(), func(w *core.Weaver) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.toolkit(w).ImportGraph(cmd.Context(), server.BundleBody(raw)))
				return nil
			})
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var topK int
	var threshold float64

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Find nodes similar to a text with their neighborhood",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			searchArgs := tools.SimilarityArgs{TextContent: strings.Join(args, " ")}
			if cmd.Flags().Changed("top-k") {
				searchArgs.TopK = &topK
			}
			if cmd.Flags().Changed("threshold") {
				searchArgs.SimilarityThreshold = &threshold
			}
			return a.withWeaver(cmd.Context(), func(w *core.Weaver) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.toolkit(w).FindSimilarNodes(cmd.Context(), searchArgs))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "maximum number of similar nodes (default retrieval.top_k)")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "minimum similarity (default retrieval.threshold)")
	return cmd
}

func newCypherCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cypher <query>",
		Short: "Execute a Cypher statement and print the rows as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return a.withWeaver(cmd.Context(), func(w *core.Weaver) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.toolkit(w).ExecuteCypher(cmd.Context(), query))
				return nil
			})
		},
	}
}

func newWeaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "weave <file|->",
		Short: "Extract a graph from free text with the LLM and import it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return a.withWeaver(cmd.Context(), func(w *core.Weaver) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.toolkit(w).WeaveText(cmd.Context(), string(text)))
				return nil
			})
		},
	}
}
