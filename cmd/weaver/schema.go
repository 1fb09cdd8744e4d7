package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenthands/weaver/internal/core"
)

func newSchemaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect or apply the graph schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Create the uniqueness constraints and vector indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWeaver(cmd.Context(), func(w *core.Weaver) error {
				applied, err := w.ApplySchema(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d schema statements\n", applied)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "print",
		Short: "Print the schema as read_graph_schema reports it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			data, err := reg.MarshalJSON()
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := json.Indent(&buf, data, "", "  "); err != nil {
				return err
			}
			buf.WriteByte('\n')
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		},
	})

	var dims int
	statements := &cobra.Command{
		Use:   "statements",
		Short: "Print the schema statements without connecting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			if dims <= 0 {
				dims = a.cfg.Embedding.Dimensions
			}
			for _, stmt := range reg.BootstrapStatements(dims) {
				if strings.HasPrefix(stmt, "//") {
					fmt.Fprintln(cmd.OutOrStdout(), stmt)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s;\n", stmt)
			}
			return nil
		},
	}
	statements.Flags().IntVar(&dims, "dimensions", 0, "vector dimensions (default embedding.dimensions)")
	cmd.AddCommand(statements)

	return cmd
}
