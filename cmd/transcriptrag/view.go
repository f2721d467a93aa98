package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <source-id>",
		Short: "Print the reassembled transcript of a source",
		Args:  cobra.ExactArgs(1),
		RunE:  runView,
	}

	cmd.Flags().StringP("save", "o", "", "Write the transcript to a file instead of stdout")
	return cmd
}

func runView(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	src, text, err := a.ingest.GetTranscript(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetString("save"); save != "" {
		if err := os.WriteFile(save, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", save, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", src.ID, save)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
