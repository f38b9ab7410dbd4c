package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
	"docrag/internal/vectorstore/jsonfile"
)

// tableEmbedder maps known texts to fixed vectors.
type tableEmbedder map[string][]float32

func (tableEmbedder) Name() string { return "table" }

func (t tableEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := t[text]; ok {
		return v, nil
	}
	return nil, errProviderDown
}

func saveStore(t *testing.T, docs []string, vecs [][]float32) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.json")
	st := jsonfile.New(path)
	for i := range docs {
		require.NoError(t, st.Append(docs[i], vecs[i]))
	}
	require.NoError(t, st.Save())
	return path
}

func TestRAGService_Query(t *testing.T) {
	path := saveStore(t,
		[]string{"contract law", "criminal procedure", "contract breach remedies"},
		[][]float32{{1, 0}, {0, 1}, {0.9, 0.1}},
	)
	idx, err := LoadIndex(path)
	require.NoError(t, err)
	svc := NewRAGService(tableEmbedder{"contracts?": {1, 0}}, idx)

	res, err := svc.Query(context.Background(), "  contracts?  ", 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, "contract law", res[0].Text)
	require.Equal(t, "contract breach remedies", res[1].Text)
	require.Equal(t, "contract law\n\ncontract breach remedies", JoinContext(res))
}

func TestRAGService_EmptyStore(t *testing.T) {
	idx, err := LoadIndex(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	svc := NewRAGService(tableEmbedder{"q": {1, 0}}, idx)

	_, err = svc.Query(context.Background(), "q", 5)
	require.ErrorIs(t, err, domain.ErrEmptyStore)
}

func TestRAGService_Errors(t *testing.T) {
	path := saveStore(t, []string{"a"}, [][]float32{{1, 0}})
	idx, err := LoadIndex(path)
	require.NoError(t, err)
	svc := NewRAGService(tableEmbedder{"wide": {1, 0, 0}}, idx)

	_, err = svc.Query(context.Background(), "   ", 5)
	require.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = svc.Query(context.Background(), "wide", 5)
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = svc.Query(context.Background(), "unknown", 5)
	require.ErrorIs(t, err, errProviderDown)
}

func TestJoinContext_Empty(t *testing.T) {
	require.Equal(t, "", JoinContext(nil))
}
