package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"docrag/internal/domain"
	"docrag/internal/pkg/waitutil"
	"docrag/internal/vectorstore"
)

// Options tunes a single ingestion run.
type Options struct {
	// CheckpointEvery saves the store whenever its size is a multiple of this.
	CheckpointEvery int
	// InterChunkDelay is slept between consecutive embedding calls.
	InterChunkDelay time.Duration
	// Restart discards a store built from a different source instead of failing.
	Restart bool
	// Progress, if set, is called with (completed, total) chunk counts.
	Progress func(completed, total int)
}

func DefaultOptions() Options {
	return Options{CheckpointEvery: 10, InterChunkDelay: 500 * time.Millisecond}
}

// Report summarizes an ingestion run.
type Report struct {
	Total       int
	Resumed     int
	Embedded    int
	Checkpoints int
}

// Pipeline chunks a document, embeds each chunk and appends it to the store,
// checkpointing as it goes. A rerun after a crash skips chunks already stored.
type Pipeline struct {
	chunker  domain.Chunker
	embedder domain.Embedder
	store    vectorstore.Storage
	sleep    waitutil.SleepFunc
}

func NewPipeline(chunker domain.Chunker, embedder domain.Embedder, store vectorstore.Storage) *Pipeline {
	return &Pipeline{chunker: chunker, embedder: embedder, store: store, sleep: waitutil.Sleep}
}

// Fingerprint identifies sourceText as chunked by a chunker with the given signature.
func Fingerprint(sourceText, chunkerSignature string) domain.SourceFingerprint {
	sum := sha256.Sum256([]byte(sourceText))
	return domain.SourceFingerprint{Digest: hex.EncodeToString(sum[:]), Chunker: chunkerSignature}
}

// Ingest embeds every chunk of sourceText not yet in the store. On failure
// the store keeps what the last checkpoint saved; the unsaved tail is lost.
func (p *Pipeline) Ingest(ctx context.Context, sourceText string, opts Options) (*Report, error) {
	if opts.CheckpointEvery <= 0 {
		return nil, fmt.Errorf("%w: checkpoint interval must be positive, got %d", domain.ErrInvalidParameter, opts.CheckpointEvery)
	}
	logger := logutil.GetLogger(ctx)
	chunks, err := p.chunker.Chunk(sourceText)
	if err != nil {
		return nil, err
	}
	fp := Fingerprint(sourceText, p.chunker.Signature())
	if err := p.checkResume(ctx, fp, len(chunks)); err != nil {
		if !errors.Is(err, domain.ErrResumeMismatch) || !opts.Restart {
			return nil, err
		}
		logger.Warn("discarding store built from a different source", zap.Int("stored", p.store.Size()), zap.Error(err))
		p.store.Reset()
	}
	p.store.SetSource(&fp)

	report := &Report{Total: len(chunks), Resumed: p.store.Size()}
	logger.Info("ingestion started",
		zap.Int("chunks", report.Total),
		zap.Int("resume_from", report.Resumed),
		zap.String("chunker", fp.Chunker),
	)
	progress(opts, report.Resumed, report.Total)

	for i := report.Resumed; i < len(chunks); i++ {
		if i > report.Resumed {
			if err := p.sleep(ctx, opts.InterChunkDelay); err != nil {
				return report, err
			}
		}
		vec, err := p.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			return report, fmt.Errorf("embed chunk %d/%d: %w", i+1, report.Total, err)
		}
		if err := checkVector(vec); err != nil {
			return report, fmt.Errorf("embed chunk %d/%d: %w", i+1, report.Total, err)
		}
		if err := p.store.Append(chunks[i].Text, vec); err != nil {
			return report, fmt.Errorf("store chunk %d/%d: %w", i+1, report.Total, err)
		}
		report.Embedded++
		logger.Debug("chunk embedded", zap.Int("chunk", i+1), zap.Int("total", report.Total))
		progress(opts, p.store.Size(), report.Total)

		if p.store.Size()%opts.CheckpointEvery == 0 {
			if err := p.store.Save(); err != nil {
				return report, fmt.Errorf("checkpoint: %w", err)
			}
			report.Checkpoints++
			logger.Info("checkpoint saved", zap.Int("stored", p.store.Size()), zap.Int("total", report.Total))
		}
	}
	if err := p.store.Save(); err != nil {
		return report, fmt.Errorf("final save: %w", err)
	}
	report.Checkpoints++
	logger.Info("ingestion finished",
		zap.Int("stored", p.store.Size()),
		zap.Int("embedded", report.Embedded),
		zap.Int("resumed", report.Resumed),
	)
	return report, nil
}

// checkResume verifies the store can be extended with chunks of fp.
func (p *Pipeline) checkResume(ctx context.Context, fp domain.SourceFingerprint, total int) error {
	stored := p.store.Size()
	if stored == 0 {
		return nil
	}
	existing := p.store.Source()
	if stored > total {
		if existing == nil {
			// older stores also kept the overlap-only windows past the end of the text
			return fmt.Errorf("%w: store without source fingerprint holds %d chunks, source has %d; it may include trailing overlap windows, restart to rebuild it",
				domain.ErrResumeMismatch, stored, total)
		}
		return fmt.Errorf("%w: store holds %d chunks, source has %d", domain.ErrResumeMismatch, stored, total)
	}
	if existing == nil {
		logutil.GetLogger(ctx).Warn("store has no source fingerprint, resuming by length", zap.Int("stored", stored))
		return nil
	}
	if existing.Digest != fp.Digest {
		return fmt.Errorf("%w: store was built from a different document", domain.ErrResumeMismatch)
	}
	if existing.Chunker != fp.Chunker {
		return fmt.Errorf("%w: store was chunked with %s, now %s", domain.ErrResumeMismatch, existing.Chunker, fp.Chunker)
	}
	return nil
}

func checkVector(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrDegenerateVector)
	}
	sum := 0.0
	for _, f := range vec {
		sum += float64(f) * float64(f)
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return fmt.Errorf("%w: norm is %v", domain.ErrDegenerateVector, math.Sqrt(sum))
	}
	return nil
}

func progress(opts Options, completed, total int) {
	if opts.Progress != nil {
		opts.Progress(completed, total)
	}
}
