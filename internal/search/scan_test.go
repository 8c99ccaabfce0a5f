package search

import (
	"context"
	"errors"
	"testing"

	"rohis/api/internal/store"
)

func fixedSnapshot(activities map[string]store.Activity) func(context.Context) (map[string]store.Activity, error) {
	return func(context.Context) (map[string]store.Activity, error) {
		return activities, nil
	}
}

func TestScannerMatchesTitleAndDescription(t *testing.T) {
	scanner := NewScanner(fixedSnapshot(map[string]store.Activity{
		"a": {Title: "Kajian Jumat", Description: "rutin", Date: "2026-03-01T10:00:00Z"},
		"b": {Title: "Mabit", Description: "malam bina iman dan taqwa", Date: "2026-03-02T10:00:00Z"},
		"c": {Title: "Bakti Sosial", Description: "panti asuhan", Date: "2026-03-03T10:00:00Z"},
	}))

	results, err := scanner.Search(context.Background(), "KAJIAN")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Key != "a" {
		t.Fatalf("title match failed: %v", results)
	}

	results, err = scanner.Search(context.Background(), "iman")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Key != "b" {
		t.Fatalf("description match failed: %v", results)
	}
}

func TestScannerOrdersNewestFirst(t *testing.T) {
	scanner := NewScanner(fixedSnapshot(map[string]store.Activity{
		"old": {Title: "acara lama", Description: "x", Date: "2026-01-01T10:00:00Z"},
		"new": {Title: "acara baru", Description: "x", Date: "2026-02-01T10:00:00Z"},
	}))

	results, err := scanner.Search(context.Background(), "acara")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Key != "new" || results[1].Key != "old" {
		t.Fatalf("unexpected order: %v", results)
	}
}

func TestScannerNoMatch(t *testing.T) {
	scanner := NewScanner(fixedSnapshot(map[string]store.Activity{
		"a": {Title: "Kajian", Description: "x"},
	}))
	results, err := scanner.Search(context.Background(), "tidak ada")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %v", results)
	}
}

func TestServiceFallsBackWithoutMeili(t *testing.T) {
	svc := NewService(nil, NewScanner(fixedSnapshot(map[string]store.Activity{
		"a": {Title: "Kajian", Description: "x", Date: "2026-03-01T10:00:00Z"},
	})))

	results, err := svc.Search(context.Background(), "kajian")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	// Index and Remove are no-ops without a healthy Meilisearch.
	if err := svc.Index(context.Background(), "a", store.Activity{}); err != nil {
		t.Fatal(err)
	}
	if err := svc.Remove(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
}

func TestScannerSnapshotError(t *testing.T) {
	boom := errors.New("boom")
	scanner := NewScanner(func(context.Context) (map[string]store.Activity, error) {
		return nil, boom
	})
	if _, err := scanner.Search(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("expected snapshot error, got %v", err)
	}
}
