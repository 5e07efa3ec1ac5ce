package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/fincausal/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testReport() *model.Report {
	category := "货币政策"
	triples := []model.CausalTriple{
		{Cause: "利率上升", Effect: "经济放缓", RelationType: model.RelationCauses, Confidence: 0.7, Source: "pattern:lead_to", Sentence: 1},
		{Cause: "降息", Effect: "股价上涨", RelationType: model.RelationCauses, Confidence: 0.7, Source: "pattern:due_to", DomainCategory: &category},
	}
	triples[0].SetTemporalRelation(model.TemporalAfter)

	return &model.Report{
		Subject:     "央行",
		Source:      "news.txt",
		ProcessedAt: time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
		Sentences:   2,
		Triples:     triples,
	}
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	run, err := s.BeginRun(ctx, "extract")
	require.NoError(t, err)
	assert.Len(t, run.ID, 26)

	docID, err := s.SaveReport(ctx, run.ID, testReport())
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, run.ID))

	got, err := s.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "extract", got.Command)
	assert.Equal(t, 1, got.Documents)
	require.NotNil(t, got.FinishedAt)

	docs, err := s.Documents(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, docID, docs[0].ID)
	assert.Equal(t, "央行", docs[0].Subject)
	assert.Equal(t, 2, docs[0].Sentences)
	assert.Equal(t, 2, docs[0].Triples)
	assert.True(t, docs[0].ProcessedAt.Equal(testReport().ProcessedAt))

	triples, err := s.Triples(ctx, docID)
	require.NoError(t, err)
	require.Len(t, triples, 2)

	assert.Equal(t, "利率上升", triples[0].Cause)
	assert.Equal(t, model.TemporalAfter, triples[0].Temporal())
	assert.Nil(t, triples[0].DomainCategory)
	assert.Equal(t, 1, triples[0].Sentence)
	assert.Equal(t, "pattern:lead_to", triples[0].Source)

	assert.Nil(t, triples[1].TemporalRelation)
	require.NotNil(t, triples[1].DomainCategory)
	assert.Equal(t, "货币政策", *triples[1].DomainCategory)
}

func TestSaveReport_EmptyTriples(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	run, err := s.BeginRun(ctx, "extract")
	require.NoError(t, err)

	report := testReport()
	report.Triples = nil
	docID, err := s.SaveReport(ctx, run.ID, report)
	require.NoError(t, err)

	triples, err := s.Triples(ctx, docID)
	require.NoError(t, err)
	assert.NotNil(t, triples)
	assert.Empty(t, triples)
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Run(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Documents(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Triples(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.SaveReport(ctx, "missing", testReport())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.FinishRun(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, s.DeleteRun(ctx, "missing"), ErrNotFound)
}

func TestRuns_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	var ids []string
	for _, cmd := range []string{"extract", "batch", "extract"} {
		run, err := s.BeginRun(ctx, cmd)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)
	assert.Nil(t, runs[0].FinishedAt)

	runs, err = s.Runs(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	run, err := s.BeginRun(ctx, "batch")
	require.NoError(t, err)
	docID, err := s.SaveReport(ctx, run.ID, testReport())
	require.NoError(t, err)

	matches, err := s.Search(ctx, "股价")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, docID, matches[0].DocumentID)
	assert.Equal(t, "央行", matches[0].Subject)
	assert.Equal(t, "降息", matches[0].Triple.Cause)

	matches, err = s.Search(ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDeleteRun_Cascades(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	run, err := s.BeginRun(ctx, "extract")
	require.NoError(t, err)
	docID, err := s.SaveReport(ctx, run.ID, testReport())
	require.NoError(t, err)

	require.NoError(t, s.DeleteRun(ctx, run.ID))

	_, err = s.Triples(ctx, docID)
	assert.ErrorIs(t, err, ErrNotFound)

	matches, err := s.Search(ctx, "利率")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	run, err := s.BeginRun(ctx, "extract")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
}

func TestConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	run, err := s.BeginRun(ctx, "batch")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.SaveReport(ctx, run.ID, testReport())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	docs, err := s.Documents(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 8)
}
