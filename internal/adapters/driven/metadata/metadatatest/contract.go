// Package metadatatest holds the shared behavioral suite that every
// metadata store backend must pass.
package metadatatest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-io/corpora/internal/core/domain"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
)

// Factory builds a fresh, empty store for each subtest.
type Factory func(t *testing.T) driven.MetadataStore

// Records returns the fixture documents shared by the contract subtests.
func Records() []domain.DocumentRecord {
	return []domain.DocumentRecord{
		{
			UID:    "doc-1",
			Name:   "handbook.pdf",
			Title:  "Employee Handbook",
			Source: domain.Source{SourceTag: "upload", URL: "https://hr.example.org/handbook", Type: "filesystem"},
			File:   domain.File{Name: "handbook.pdf", MIMEType: "application/pdf", Size: 4096},
			Tags: []domain.Tag{
				{ID: "tag-hr", Name: "hr"},
				{ID: "tag-pub", Name: "public"},
			},
			License: "CC-BY-4.0",
		},
		{
			UID:    "doc-2",
			Name:   "payroll.xlsx",
			Title:  "Payroll Overview",
			Source: domain.Source{SourceTag: "upload", Type: "filesystem"},
			File:   domain.File{Name: "payroll.xlsx", MIMEType: "application/vnd.ms-excel", Size: 1024},
			Tags: []domain.Tag{
				{ID: "tag-hr", Name: "hr"},
				{ID: "tag-fin", Name: "finance"},
			},
			Confidential: true,
		},
		{
			UID:    "doc-3",
			Name:   "roadmap.md",
			Title:  "Product Roadmap",
			Source: domain.Source{SourceTag: "crawler", URL: "https://wiki.example.org/roadmap", Type: "web"},
			File:   domain.File{Name: "roadmap.md", MIMEType: "text/markdown", Size: 512},
			Tags: []domain.Tag{
				{ID: "tag-prod", Name: "product"},
			},
		},
		{
			UID:    "doc-4",
			Name:   "budget.pdf",
			Title:  "Annual Budget",
			Source: domain.Source{SourceTag: "crawler", Type: "web"},
			File:   domain.File{Name: "budget.pdf", MIMEType: "application/pdf", Size: 8192},
			Tags: []domain.Tag{
				{ID: "tag-fin", Name: "finance"},
			},
			Confidential: true,
			License:      "proprietary",
		},
		{
			UID:    "doc-5",
			Name:   "untagged.txt",
			Source: domain.Source{SourceTag: "upload", Type: "filesystem"},
			File:   domain.File{Name: "untagged.txt", MIMEType: "text/plain", Size: 64},
		},
	}
}

func seeded(t *testing.T, factory Factory) driven.MetadataStore {
	t.Helper()
	store := factory(t)
	t.Cleanup(func() { store.Close() })
	for _, rec := range Records() {
		rec := rec
		require.NoError(t, store.Save(context.Background(), &rec))
	}
	return store
}

func queryUIDs(t *testing.T, store driven.MetadataStore, expr map[string]any) []string {
	t.Helper()
	records, err := store.Query(context.Background(), expr)
	require.NoError(t, err)
	if len(records) == 0 {
		return nil
	}
	uids := make([]string, len(records))
	for i := range records {
		uids[i] = records[i].UID
	}
	return uids
}

// Run exercises the full driven.MetadataStore contract against the store
// the factory builds.
func Run(t *testing.T, factory Factory) {
	t.Run("SaveAndGet", func(t *testing.T) { testSaveAndGet(t, factory) })
	t.Run("SaveRequiresUID", func(t *testing.T) { testSaveRequiresUID(t, factory) })
	t.Run("SaveUpdates", func(t *testing.T) { testSaveUpdates(t, factory) })
	t.Run("SaveLeavesCallerRecord", func(t *testing.T) { testSaveLeavesCallerRecord(t, factory) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, factory) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, factory) })
	t.Run("List", func(t *testing.T) { testList(t, factory) })
	t.Run("QueryFilters", func(t *testing.T) { testQueryFilters(t, factory) })
	t.Run("QueryUnknownField", func(t *testing.T) { testQueryUnknownField(t, factory) })
	t.Run("TimestampRoundTrip", func(t *testing.T) { testTimestampRoundTrip(t, factory) })
}

func testSaveAndGet(t *testing.T, factory Factory) {
	store := seeded(t, factory)

	got, err := store.Get(context.Background(), "doc-1")
	require.NoError(t, err)

	assert.Equal(t, "Employee Handbook", got.Title)
	assert.Equal(t, "upload", got.Source.SourceTag)
	assert.Equal(t, "https://hr.example.org/handbook", got.Source.URL)
	assert.Equal(t, int64(4096), got.File.Size)
	assert.Equal(t, []string{"tag-hr", "tag-pub"}, got.TagIDs())
	assert.Equal(t, []string{"hr", "public"}, got.TagNames())
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
}

func testSaveRequiresUID(t *testing.T, factory Factory) {
	store := factory(t)
	t.Cleanup(func() { store.Close() })

	err := store.Save(context.Background(), &domain.DocumentRecord{Name: "nameless.txt"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func testSaveUpdates(t *testing.T, factory Factory) {
	store := seeded(t, factory)
	ctx := context.Background()

	rec, err := store.Get(ctx, "doc-3")
	require.NoError(t, err)
	created := rec.CreatedAt

	rec.Title = "Product Roadmap v2"
	rec.Tags = []domain.Tag{{ID: "tag-prod", Name: "product"}, {ID: "tag-pub", Name: "public"}}
	rec.SetStage(domain.StageVectorized, domain.StateDone, "")
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, "doc-3")
	require.NoError(t, err)
	assert.Equal(t, "Product Roadmap v2", got.Title)
	assert.Equal(t, []string{"tag-prod", "tag-pub"}, got.TagIDs())
	assert.True(t, got.StageDone(domain.StageVectorized))
	assert.True(t, got.CreatedAt.Equal(created))
	assert.False(t, got.UpdatedAt.Before(created))

	// Still exactly five records.
	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func testSaveLeavesCallerRecord(t *testing.T, factory Factory) {
	store := factory(t)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	rec := &domain.DocumentRecord{UID: "doc-own", Name: "own.txt"}
	require.NoError(t, store.Save(ctx, rec))

	// Timestamps land on the stored copy, never on the caller's record.
	assert.True(t, rec.CreatedAt.IsZero())
	assert.True(t, rec.UpdatedAt.IsZero())

	got, err := store.Get(ctx, "doc-own")
	require.NoError(t, err)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
}

func testGetMissing(t *testing.T, factory Factory) {
	store := seeded(t, factory)

	_, err := store.Get(context.Background(), "doc-absent")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testDelete(t *testing.T, factory Factory) {
	store := seeded(t, factory)
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, "doc-2"))

	_, err := store.Get(ctx, "doc-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting an absent record is a no-op.
	require.NoError(t, store.Delete(ctx, "doc-2"))
}

func testList(t *testing.T, factory Factory) {
	store := seeded(t, factory)

	records, err := store.List(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 5)
	for i := 1; i < len(records); i++ {
		assert.Less(t, records[i-1].UID, records[i].UID)
	}
}

func testQueryFilters(t *testing.T, factory Factory) {
	store := seeded(t, factory)

	cases := []struct {
		name string
		expr map[string]any
		want []string
	}{
		{"nil expression returns all", nil, []string{"doc-1", "doc-2", "doc-3", "doc-4", "doc-5"}},
		{"eq on source tag", map[string]any{"source_tag": "crawler"}, []string{"doc-3", "doc-4"}},
		{"eq on bool", map[string]any{"confidential": true}, []string{"doc-2", "doc-4"}},
		{"in on mime type", map[string]any{"mime_type__in": []string{"text/markdown", "text/plain"}}, []string{"doc-3", "doc-5"}},
		{"icontains on title", map[string]any{"title__icontains": "ROADMAP"}, []string{"doc-3"}},
		{"int comparison", map[string]any{"file_size__gte": 4096}, []string{"doc-1", "doc-4"}},
		{"tags contains", map[string]any{"tags__contains": "tag-fin"}, []string{"doc-2", "doc-4"}},
		{"tags overlap", map[string]any{"tags__overlap": []string{"tag-pub", "tag-prod"}}, []string{"doc-1", "doc-3"}},
		{"tag names overlap", map[string]any{"tag_names__overlap": []string{"finance", "product"}}, []string{"doc-2", "doc-3", "doc-4"}},
		{"and semantics", map[string]any{"source_tag": "upload", "confidential": true}, []string{"doc-2"}},
		{"no match", map[string]any{"license": "GPL-3.0"}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, queryUIDs(t, store, tc.expr))
		})
	}
}

func testQueryUnknownField(t *testing.T, factory Factory) {
	store := seeded(t, factory)

	_, err := store.Query(context.Background(), map[string]any{"colour": "blue"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "colour", verr.Field)
}

func testTimestampRoundTrip(t *testing.T, factory Factory) {
	store := factory(t)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	created := time.Date(2026, 5, 20, 14, 30, 0, 123456789, time.UTC)
	rec := &domain.DocumentRecord{UID: "doc-ts", Name: "ts.txt", CreatedAt: created}
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, "doc-ts")
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(created))

	// Time-window queries see the stored value.
	uids := queryUIDs(t, store, map[string]any{"created_at__lte": "2026-05-20T14:30:01Z"})
	assert.Contains(t, uids, "doc-ts")
	uids = queryUIDs(t, store, map[string]any{"created_at__gt": "2026-05-20T14:30:01Z"})
	assert.NotContains(t, uids, "doc-ts")
}
