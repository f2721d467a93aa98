package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
)

func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Ingest transcript files",
		Long:  `Parse transcript files (.txt, .srt, .vtt, .json), chunk them and store embeddings. Reads from stdin when no file is given.`,
		RunE:  runIngest,
	}

	cmd.Flags().String("id", "", "Source ID (default: file name without extension; required for stdin)")
	cmd.Flags().String("title", "", "Title stored in the source metadata")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	id, _ := cmd.Flags().GetString("id")
	title, _ := cmd.Flags().GetString("title")

	if len(args) == 0 {
		if id == "" {
			return entities.NewError(entities.KindConfiguration, "--id is required when reading from stdin")
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		return ingestOne(cmd, a, id, string(data), title, "")
	}

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		text, err := a.parser.Parse(data, path)
		if err != nil {
			return err
		}
		sourceID := id
		if sourceID == "" || len(args) > 1 {
			sourceID = sourceIDFromPath(path)
		}
		if err := ingestOne(cmd, a, sourceID, text, title, path); err != nil {
			return err
		}
	}
	return nil
}

func ingestOne(cmd *cobra.Command, a *app, sourceID, text, title, path string) error {
	metadata := map[string]string{}
	if title != "" {
		metadata["title"] = title
	}
	if path != "" {
		metadata["file"] = filepath.Base(path)
	}

	res, err := a.ingest.Ingest(cmd.Context(), sourceID, text, metadata)
	if err != nil {
		return err
	}

	switch res.Status {
	case entities.IngestUnchanged:
		fmt.Fprintf(cmd.OutOrStdout(), "%s: unchanged, skipped\n", res.SourceID)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%s: stored %d chunks\n", res.SourceID, res.ChunkCount)
	}
	return nil
}

func sourceIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
