package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/goodanalysis/transcriptrag/internal/adapters/filewatcher"
	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
	"github.com/goodanalysis/transcriptrag/internal/domain/ports"
)

func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a directory and ingest transcript files as they appear",
		Long:  `Monitor a drop directory. New and modified transcript files are ingested automatically; removed files are deleted from the store.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWatch,
	}
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	dir := a.cfg.WatchDir
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		return entities.NewError(entities.KindConfiguration, "no watch directory given: pass one or set watch_dir in the config")
	}

	watcher, err := filewatcher.NewFSNotifyWatcher(a.parser.SupportedExtensions())
	if err != nil {
		return err
	}
	defer watcher.Stop()

	events, err := watcher.Watch(cmd.Context(), dir)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (ctrl-c to stop)\n", dir)
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			handleFileEvent(cmd, a, ev)
		}
	}
}

func handleFileEvent(cmd *cobra.Command, a *app, ev ports.FileEvent) {
	sourceID := sourceIDFromPath(ev.Path)

	if ev.Operation == ports.FileDeleted {
		if err := a.ingest.Delete(cmd.Context(), sourceID); err != nil && !entities.IsNotFound(err) {
			log.Printf("[ERROR] Failed to delete %s: %v", sourceID, err)
		}
		return
	}

	data, err := os.ReadFile(ev.Path)
	if err != nil {
		log.Printf("[ERROR] Failed to read %s: %v", ev.Path, err)
		return
	}
	text, err := a.parser.Parse(data, ev.Path)
	if err != nil {
		log.Printf("[ERROR] Failed to parse %s: %v", ev.Path, err)
		return
	}
	if err := ingestOne(cmd, a, sourceID, text, "", ev.Path); err != nil {
		log.Printf("[ERROR] Failed to ingest %s: %v", ev.Path, err)
	}
}
