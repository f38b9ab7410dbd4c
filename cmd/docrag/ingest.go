package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docrag/internal/config"
	"docrag/internal/service"
	"docrag/internal/source"
	"docrag/internal/vectorstore/jsonfile"
)

func newIngestCmd(appConfig func() *config.AppConfig) *cobra.Command {
	var restart bool
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "chunk, embed and store a document, resuming an interrupted run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appConfig()
			ctx := cmd.Context()

			text, err := source.Load(args[0])
			if err != nil {
				return err
			}
			ch, err := newChunker(cfg.Chunker)
			if err != nil {
				return err
			}
			emb, err := newIngestEmbedder(ctx, cfg)
			if err != nil {
				return err
			}
			store, err := jsonfile.Load(cfg.Store.Path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			opts := service.Options{
				CheckpointEvery: cfg.Ingest.CheckpointEvery,
				InterChunkDelay: cfg.Ingest.InterChunkDelay(),
				Restart:         restart,
				Progress: func(completed, total int) {
					fmt.Fprintf(out, "\r  embedded %d/%d", completed, total)
				},
			}
			report, err := service.NewPipeline(ch, emb, store).Ingest(ctx, text, opts)
			fmt.Fprintln(out)
			if err != nil {
				return fmt.Errorf("ingest failed (rerun to resume from the last checkpoint): %w", err)
			}
			fmt.Fprintf(out, "Done: %d chunks in %s (%d resumed, %d embedded)\n",
				report.Total, store.Path(), report.Resumed, report.Embedded)
			return nil
		},
	}
	cmd.Flags().BoolVar(&restart, "restart", false, "discard a store built from a different document or chunking and start over")
	return cmd
}
