package main

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docrag/internal/config"
	"docrag/internal/domain"
	"docrag/internal/service"
	"docrag/internal/summarizer"
	"docrag/internal/tui"
	"docrag/internal/vectorstore/jsonfile"
)

const emptyStoreHint = "No documents loaded yet. Run ingest first."

// openService returns domain.ErrEmptyStore before any provider client is
// built, so an empty store never needs credentials.
func openService(cmd *cobra.Command, cfg *config.AppConfig) (*service.RAGService, int, error) {
	idx, err := service.LoadIndex(cfg.Store.Path)
	if err != nil {
		return nil, 0, err
	}
	if idx.Size() == 0 {
		return nil, 0, domain.ErrEmptyStore
	}
	emb, err := newQueryEmbedder(cmd.Context(), cfg)
	if err != nil {
		return nil, 0, err
	}
	return service.NewRAGService(emb, idx), idx.Size(), nil
}

func newSearchCmd(appConfig func() *config.AppConfig) *cobra.Command {
	var topK int
	var asContext bool
	var digest int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "print the stored chunks most similar to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appConfig()
			if topK == 0 {
				topK = cfg.Query.TopK
			}
			out := cmd.OutOrStdout()
			svc, _, err := openService(cmd, cfg)
			if errors.Is(err, domain.ErrEmptyStore) {
				fmt.Fprintln(out, emptyStoreHint)
				return nil
			}
			if err != nil {
				return err
			}
			res, err := svc.Query(cmd.Context(), args[0], topK)
			if err != nil {
				return err
			}
			if digest > 0 {
				fmt.Fprintln(out, summarizer.NewDigest().Summarize(res, digest))
				return nil
			}
			if asContext {
				fmt.Fprintln(out, service.JoinContext(res))
				return nil
			}
			for i, r := range res {
				fmt.Fprintf(out, "%d. [chunk %d] score=%.4f\n%s\n\n", i+1, r.Index+1, r.Score, r.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of results (default from config)")
	cmd.Flags().BoolVar(&asContext, "context", false, "print only the joined chunk texts")
	cmd.Flags().IntVar(&digest, "digest", 0, "print an extractive digest of this many sentences instead of the chunks")
	return cmd
}

func newTUICmd(appConfig func() *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "browse search results interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appConfig()
			svc, size, err := openService(cmd, cfg)
			if errors.Is(err, domain.ErrEmptyStore) {
				fmt.Fprintln(cmd.OutOrStdout(), emptyStoreHint)
				return nil
			}
			if err != nil {
				return err
			}
			info := fmt.Sprintf("%d chunks from %s", size, cfg.Store.Path)
			m := tui.New(cmd.Context(), svc, cfg.Query.TopK, info)
			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}

func newStatsCmd(appConfig func() *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "describe the stored snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appConfig()
			st, err := jsonfile.Load(cfg.Store.Path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "store:     %s\n", st.Path())
			fmt.Fprintf(out, "chunks:    %d\n", st.Size())
			fmt.Fprintf(out, "dimension: %d\n", st.Dimension())
			if fp := st.Source(); fp != nil {
				fmt.Fprintf(out, "source:    sha256=%s\n", fp.Digest)
				fmt.Fprintf(out, "chunker:   %s\n", fp.Chunker)
			} else {
				fmt.Fprintln(out, "source:    unknown")
			}
			return nil
		},
	}
}
