package store

import (
	"context"
	"testing"
)

func TestInsertDocumentAssignsPositions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.InsertDocument(ctx, &Document{ID: id, Title: id + ".pdf", Pending: true}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	docs, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	for i, doc := range docs {
		if doc.Position != int64(i+1) {
			t.Errorf("document %s position = %d, want %d", doc.ID, doc.Position, i+1)
		}
		if !doc.Pending {
			t.Errorf("document %s should be pending", doc.ID)
		}
		if doc.MetadataStatus != StagePending || doc.DarkModeStatus != StagePending {
			t.Errorf("document %s stages = %s/%s, want pending/pending", doc.ID, doc.MetadataStatus, doc.DarkModeStatus)
		}
	}
}

func TestGetDocumentAbsent(t *testing.T) {
	s := newTestStore(t)

	doc, err := s.GetDocument(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if doc != nil {
		t.Fatalf("expected nil for absent document, got %+v", doc)
	}
}

func TestActivateDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertDocument(ctx, &Document{ID: "doc", Title: "doc.pdf", Pending: true}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	activated, err := s.ActivateDocument(ctx, "doc")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !activated {
		t.Fatal("expected activation to report a change")
	}

	doc, err := s.GetDocument(ctx, "doc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Pending {
		t.Fatal("document should no longer be pending")
	}

	activated, err = s.ActivateDocument(ctx, "missing")
	if err != nil {
		t.Fatalf("activate missing: %v", err)
	}
	if activated {
		t.Fatal("activating a missing document should report no change")
	}
}

func TestReorderDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		if err := s.InsertDocument(ctx, &Document{ID: id, Title: id}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	if err := s.ReorderDocuments(ctx, []string{"c", "a"}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	docs, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := make([]string, len(docs))
	for i, doc := range docs {
		got[i] = doc.ID
	}
	want := []string{"c", "a", "b", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order after reorder = %v, want %v", got, want)
		}
	}
}

func TestStageResultsAreDisjoint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertDocument(ctx, &Document{ID: "doc", Title: "scan.pdf"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.SetMetadataResult(ctx, "doc", StageDone, "Quarterly Report"); err != nil {
		t.Fatalf("set metadata result: %v", err)
	}
	if err := s.SetDarkModeResult(ctx, "doc", StageDone, []string{"dark/p1.png", "dark/p2.png"}); err != nil {
		t.Fatalf("set dark mode result: %v", err)
	}

	doc, err := s.GetDocument(ctx, "doc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.MetadataStatus != StageDone || doc.OCRTitle != "Quarterly Report" {
		t.Errorf("metadata = %s/%q, want done/Quarterly Report", doc.MetadataStatus, doc.OCRTitle)
	}
	if doc.DarkModeStatus != StageDone || len(doc.DarkPagePaths) != 2 {
		t.Errorf("dark mode = %s with %d paths, want done with 2", doc.DarkModeStatus, len(doc.DarkPagePaths))
	}
}

func TestStageStatusTerminal(t *testing.T) {
	cases := []struct {
		status StageStatus
		want   bool
	}{
		{StagePending, false},
		{StageSkipped, true},
		{StageDone, true},
		{StageFailed, true},
	}
	for _, tc := range cases {
		if got := tc.status.Terminal(); got != tc.want {
			t.Errorf("Terminal(%s) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestDeleteDocumentCascadesLabels(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertDocument(ctx, &Document{ID: "doc", Title: "doc.pdf"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	label, err := s.CreateLabel(ctx, "urgent", "#ff0000")
	if err != nil {
		t.Fatalf("create label: %v", err)
	}
	if err := s.SetDocumentLabels(ctx, "doc", []int64{label.ID}); err != nil {
		t.Fatalf("set labels: %v", err)
	}

	deleted, err := s.DeleteDocument(ctx, "doc")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatal("expected deletion")
	}

	labels, err := s.DocumentLabels(ctx, "doc")
	if err != nil {
		t.Fatalf("document labels: %v", err)
	}
	if len(labels) != 0 {
		t.Fatalf("expected cascaded label removal, got %d", len(labels))
	}
}
