package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ingested sources in insertion order",
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sources, err := a.ingest.ListSources(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sources) == 0 {
		fmt.Fprintln(out, "No sources ingested yet.")
		return nil
	}
	for _, src := range sources {
		line := src.ID
		if title := src.Metadata["title"]; title != "" {
			line += "\t" + title
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
