package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
)

func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask a question answered from the stored transcripts",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runQuery,
	}

	cmd.Flags().IntP("k", "k", 0, "Number of chunks to retrieve (default from config)")
	cmd.Flags().String("scope", "", "Restrict retrieval to a single source ID")
	cmd.Flags().String("backend", "", "Generation backend: external or none")
	cmd.Flags().Bool("show-context", false, "Print the retrieved chunks with scores")
	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	k, _ := cmd.Flags().GetInt("k")
	scope, _ := cmd.Flags().GetString("scope")
	backend, _ := cmd.Flags().GetString("backend")
	showContext, _ := cmd.Flags().GetBool("show-context")

	ans, err := a.query.Query(cmd.Context(), entities.QueryRequest{
		Query:   strings.Join(args, " "),
		K:       k,
		Scope:   scope,
		Backend: entities.GenerationBackend(backend),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ans.Text)

	if len(ans.Sources) > 0 {
		fmt.Fprintf(out, "\nSources: %s\n", strings.Join(ans.Sources, ", "))
	}
	if ans.Warning != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", ans.Warning)
	}
	if showContext {
		fmt.Fprintln(out)
		for _, res := range ans.Results {
			fmt.Fprintf(out, "--- %s #%d (score %.4f)\n%s\n", res.Chunk.SourceID, res.Chunk.Index, res.Score, res.Chunk.Text)
		}
	}
	return nil
}
