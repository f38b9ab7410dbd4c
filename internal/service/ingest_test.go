package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docrag/internal/chunker"
	"docrag/internal/domain"
	"docrag/internal/vectorstore/jsonfile"
)

var errProviderDown = errors.New("provider unavailable")

// hashEmbedder derives a deterministic, non-zero 4-d vector from the text.
// It fails with errProviderDown on call number failOn (1-based) and after.
type hashEmbedder struct {
	calls  int
	failOn int
	zeroOn int
}

func (h *hashEmbedder) Name() string { return "hash" }

func (h *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h.calls++
	if h.failOn > 0 && h.calls >= h.failOn {
		return nil, &domain.EmbeddingError{Attempts: 1, Cause: errProviderDown}
	}
	if h.zeroOn > 0 && h.calls == h.zeroOn {
		return []float32{0, 0, 0, 0}, nil
	}
	f := fnv.New32a()
	_, _ = f.Write([]byte(text))
	s := f.Sum32()
	return []float32{1, float32(s & 0xff), float32((s >> 8) & 0xff), float32((s >> 16) & 0xff)}, nil
}

// countingStore records how often Save is called.
type countingStore struct {
	*jsonfile.Storage
	saves []int
}

func (c *countingStore) Save() error {
	c.saves = append(c.saves, c.Size())
	return c.Storage.Save()
}

// numberedDoc returns a document that a 10-rune, no-overlap window splits
// into n chunks "chunk-0000", "chunk-0001", ...
func numberedDoc(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "chunk-%04d", i)
	}
	return sb.String()
}

func newTestPipeline(t *testing.T, store *jsonfile.Storage, emb domain.Embedder) (*Pipeline, *[]time.Duration) {
	t.Helper()
	ch, err := chunker.NewWindowChunker(10, 0)
	require.NoError(t, err)
	p := NewPipeline(ch, emb, store)
	var waits []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return p, &waits
}

func loadStore(t *testing.T, path string) *jsonfile.Storage {
	t.Helper()
	st, err := jsonfile.Load(path)
	require.NoError(t, err)
	return st
}

func TestIngest_FullRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	store := &countingStore{Storage: loadStore(t, path)}
	ch, err := chunker.NewWindowChunker(10, 0)
	require.NoError(t, err)
	p := NewPipeline(ch, &hashEmbedder{}, store)
	var waits []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	var progressCalls [][2]int

	report, err := p.Ingest(context.Background(), numberedDoc(25), Options{
		CheckpointEvery: 10,
		InterChunkDelay: 500 * time.Millisecond,
		Progress: func(completed, total int) {
			progressCalls = append(progressCalls, [2]int{completed, total})
		},
	})
	require.NoError(t, err)
	require.Equal(t, &Report{Total: 25, Resumed: 0, Embedded: 25, Checkpoints: 3}, report)
	require.Equal(t, []int{10, 20, 25}, store.saves)
	require.Len(t, waits, 24)
	require.Equal(t, 500*time.Millisecond, waits[0])
	require.Len(t, progressCalls, 26)
	require.Equal(t, [2]int{0, 25}, progressCalls[0])
	require.Equal(t, [2]int{25, 25}, progressCalls[25])

	loaded := loadStore(t, path)
	require.Equal(t, 25, loaded.Size())
	require.Equal(t, "chunk-0000", loaded.Documents()[0])
	require.Equal(t, "chunk-0024", loaded.Documents()[24])
	require.Equal(t, 4, loaded.Dimension())
	want := Fingerprint(numberedDoc(25), "window:size=10:overlap=0")
	require.Equal(t, &want, loaded.Source())
}

func TestIngest_ResumeAfterCrash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	doc := numberedDoc(25)

	// The provider dies while embedding chunk 13; only the checkpoint at 10 survives.
	first := &hashEmbedder{failOn: 13}
	p, _ := newTestPipeline(t, loadStore(t, path), first)
	report, err := p.Ingest(context.Background(), doc, Options{CheckpointEvery: 10})
	require.ErrorIs(t, err, domain.ErrEmbeddingFailure)
	require.ErrorIs(t, err, errProviderDown)
	require.Equal(t, 12, report.Embedded)

	afterCrash := loadStore(t, path)
	require.Equal(t, 10, afterCrash.Size())
	original := append([]string(nil), afterCrash.Documents()...)
	originalVecs := append([][]float32(nil), afterCrash.Embeddings()...)

	second := &hashEmbedder{}
	p, _ = newTestPipeline(t, afterCrash, second)
	report, err = p.Ingest(context.Background(), doc, Options{CheckpointEvery: 10})
	require.NoError(t, err)
	require.Equal(t, 10, report.Resumed)
	require.Equal(t, 15, report.Embedded)
	require.Equal(t, 15, second.calls)

	final := loadStore(t, path)
	require.Equal(t, 25, final.Size())
	require.Equal(t, original, final.Documents()[:10])
	require.Equal(t, originalVecs, final.Embeddings()[:10])
	for i, d := range final.Documents() {
		require.Equal(t, fmt.Sprintf("chunk-%04d", i), d)
	}
}

func TestIngest_CompletedStoreIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	doc := numberedDoc(5)
	p, _ := newTestPipeline(t, loadStore(t, path), &hashEmbedder{})
	_, err := p.Ingest(context.Background(), doc, DefaultOptions())
	require.NoError(t, err)

	emb := &hashEmbedder{}
	p, waits := newTestPipeline(t, loadStore(t, path), emb)
	report, err := p.Ingest(context.Background(), doc, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 5, report.Resumed)
	require.Equal(t, 0, report.Embedded)
	require.Equal(t, 0, emb.calls)
	require.Empty(t, *waits)
}

func TestIngest_DifferentSourceRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	p, _ := newTestPipeline(t, loadStore(t, path), &hashEmbedder{})
	_, err := p.Ingest(context.Background(), numberedDoc(5), DefaultOptions())
	require.NoError(t, err)

	other := strings.Repeat("other-text", 6)
	p, _ = newTestPipeline(t, loadStore(t, path), &hashEmbedder{})
	_, err = p.Ingest(context.Background(), other, DefaultOptions())
	require.ErrorIs(t, err, domain.ErrResumeMismatch)
	require.Equal(t, 5, loadStore(t, path).Size())

	opts := DefaultOptions()
	opts.Restart = true
	p, _ = newTestPipeline(t, loadStore(t, path), &hashEmbedder{})
	report, err := p.Ingest(context.Background(), other, opts)
	require.NoError(t, err)
	require.Equal(t, 0, report.Resumed)

	final := loadStore(t, path)
	require.Equal(t, 6, final.Size())
	require.Equal(t, "other-text", final.Documents()[0])
}

func TestIngest_DifferentChunkingRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	doc := numberedDoc(5)
	p, _ := newTestPipeline(t, loadStore(t, path), &hashEmbedder{})
	_, err := p.Ingest(context.Background(), doc, DefaultOptions())
	require.NoError(t, err)

	ch, err := chunker.NewWindowChunker(20, 5)
	require.NoError(t, err)
	p = NewPipeline(ch, &hashEmbedder{}, loadStore(t, path))
	_, err = p.Ingest(context.Background(), doc, DefaultOptions())
	require.ErrorIs(t, err, domain.ErrResumeMismatch)
}

func TestIngest_LegacyStoreResumesByLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	legacy := jsonfile.New(path)
	emb := &hashEmbedder{}
	for i := 0; i < 3; i++ {
		text := fmt.Sprintf("chunk-%04d", i)
		vec, err := emb.Embed(context.Background(), text)
		require.NoError(t, err)
		require.NoError(t, legacy.Append(text, vec))
	}
	require.NoError(t, legacy.Save())

	p, _ := newTestPipeline(t, loadStore(t, path), &hashEmbedder{})
	report, err := p.Ingest(context.Background(), numberedDoc(8), DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 3, report.Resumed)
	require.Equal(t, 5, report.Embedded)

	final := loadStore(t, path)
	require.Equal(t, 8, final.Size())
	require.NotNil(t, final.Source())
}

func TestIngest_LegacyStoreLongerThanSourceRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	legacy := jsonfile.New(path)
	for i := 0; i < 4; i++ {
		require.NoError(t, legacy.Append("x", []float32{1, 2}))
	}
	require.NoError(t, legacy.Save())

	p, _ := newTestPipeline(t, loadStore(t, path), &hashEmbedder{})
	_, err := p.Ingest(context.Background(), numberedDoc(2), DefaultOptions())
	require.ErrorIs(t, err, domain.ErrResumeMismatch)
	require.ErrorContains(t, err, "trailing overlap windows")

	opts := DefaultOptions()
	opts.Restart = true
	report, err := p.Ingest(context.Background(), numberedDoc(2), opts)
	require.NoError(t, err)
	require.Equal(t, 0, report.Resumed)
	require.Equal(t, 2, loadStore(t, path).Size())
}

func TestIngest_DegenerateVectorAborts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	p, _ := newTestPipeline(t, loadStore(t, path), &hashEmbedder{zeroOn: 2})
	report, err := p.Ingest(context.Background(), numberedDoc(4), DefaultOptions())
	require.ErrorIs(t, err, domain.ErrDegenerateVector)
	require.Equal(t, 1, report.Embedded)
	require.Equal(t, 0, loadStore(t, path).Size())
}

func TestIngest_CancelledDuringDelay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ch, err := chunker.NewWindowChunker(10, 0)
	require.NoError(t, err)
	p := NewPipeline(ch, &hashEmbedder{}, loadStore(t, path))
	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	report, err := p.Ingest(ctx, numberedDoc(4), Options{CheckpointEvery: 1, InterChunkDelay: time.Second})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, report.Embedded)
	require.Equal(t, 1, loadStore(t, path).Size())
}

func TestIngest_InvalidCheckpointInterval(t *testing.T) {
	p, _ := newTestPipeline(t, jsonfile.New(filepath.Join(t.TempDir(), "s.json")), &hashEmbedder{})
	_, err := p.Ingest(context.Background(), "text", Options{})
	require.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestIngest_InvalidChunkingPropagates(t *testing.T) {
	p := NewPipeline(failingChunker{}, &hashEmbedder{}, jsonfile.New(filepath.Join(t.TempDir(), "s.json")))
	_, err := p.Ingest(context.Background(), "text", DefaultOptions())
	require.ErrorIs(t, err, domain.ErrInvalidParameter)
}

type failingChunker struct{}

func (failingChunker) Chunk(string) ([]domain.Chunk, error) {
	return nil, fmt.Errorf("%w: bad size", domain.ErrInvalidParameter)
}

func (failingChunker) Signature() string { return "failing" }
