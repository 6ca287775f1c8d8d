package database

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := NewConnection(dbPath)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

func TestSearchRepo_AddSearch_RejectsDuplicateQuery(t *testing.T) {
	db := newTestDB(t)
	repo := NewSearchRepository(db)

	id, err := repo.AddSearch("https://www.vinted.fr/catalog?order=newest_first&search_text=jacket", "jackets")
	if err != nil {
		t.Fatalf("Unexpected error adding search: %v", err)
	}
	if id == 0 {
		t.Error("Expected non-zero search id")
	}

	_, err = repo.AddSearch("https://www.vinted.fr/catalog?order=newest_first&search_text=jacket", "other name")
	if !errors.Is(err, ErrDuplicateSearch) {
		t.Errorf("Expected ErrDuplicateSearch for equivalent query, got %v", err)
	}

	count, err := repo.GetSearchCount()
	if err != nil {
		t.Fatalf("Unexpected error getting count: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 search after duplicate rejection, got %d", count)
	}
}

func TestSearchRepo_AdvanceWatermark_Monotonic(t *testing.T) {
	db := newTestDB(t)
	repo := NewSearchRepository(db)

	id, err := repo.AddSearch("https://www.vinted.fr/catalog?search_text=shoes", "")
	if err != nil {
		t.Fatalf("Unexpected error adding search: %v", err)
	}

	wm, err := repo.GetWatermark(id)
	if err != nil {
		t.Fatalf("Unexpected error getting watermark: %v", err)
	}
	if wm != nil {
		t.Errorf("Expected nil watermark for fresh search, got %d", *wm)
	}

	if err := repo.AdvanceWatermark(id, 1000); err != nil {
		t.Fatalf("Unexpected error advancing watermark: %v", err)
	}
	if err := repo.AdvanceWatermark(id, 900); err != nil {
		t.Fatalf("Unexpected error on stale advance: %v", err)
	}

	wm, err = repo.GetWatermark(id)
	if err != nil {
		t.Fatalf("Unexpected error getting watermark: %v", err)
	}
	if wm == nil || *wm != 1000 {
		t.Errorf("Expected watermark 1000 after stale advance attempt, got %v", wm)
	}

	if err := repo.AdvanceWatermark(id, 1200); err != nil {
		t.Fatalf("Unexpected error advancing watermark: %v", err)
	}
	wm, _ = repo.GetWatermark(id)
	if wm == nil || *wm != 1200 {
		t.Errorf("Expected watermark 1200, got %v", wm)
	}
}

func TestItemRepo_RecordItem_AdvancesWatermark(t *testing.T) {
	db := newTestDB(t)
	searchRepo := NewSearchRepository(db)
	itemRepo := NewItemRepository(db)

	searchID, err := searchRepo.AddSearch("https://www.vinted.fr/catalog?search_text=bag", "")
	if err != nil {
		t.Fatalf("Unexpected error adding search: %v", err)
	}

	exists, err := itemRepo.HasItem(42)
	if err != nil {
		t.Fatalf("Unexpected error checking item: %v", err)
	}
	if exists {
		t.Error("Item should not exist before recording")
	}

	err = itemRepo.RecordItem(NewItem{
		ID: 42, SearchID: searchID, Title: "Leather bag", Price: "25.00",
		Currency: "EUR", Timestamp: 1500,
	})
	if err != nil {
		t.Fatalf("Unexpected error recording item: %v", err)
	}

	exists, _ = itemRepo.HasItem(42)
	if !exists {
		t.Error("Item should exist after recording")
	}

	wm, _ := searchRepo.GetWatermark(searchID)
	if wm == nil || *wm != 1500 {
		t.Errorf("Expected watermark 1500 after recording item, got %v", wm)
	}

	// Recording the same id again must not create a second row
	err = itemRepo.RecordItem(NewItem{ID: 42, SearchID: searchID, Timestamp: 1600})
	if err != nil {
		t.Fatalf("Unexpected error re-recording item: %v", err)
	}
	count, _ := itemRepo.GetItemCount()
	if count != 1 {
		t.Errorf("Expected 1 item after duplicate record, got %d", count)
	}
}

func TestItemRepo_PruneItems_KeepsNewestPerSearch(t *testing.T) {
	db := newTestDB(t)
	searchRepo := NewSearchRepository(db)
	itemRepo := NewItemRepository(db)

	searchA, _ := searchRepo.AddSearch("https://www.vinted.fr/catalog?search_text=a", "")
	searchB, _ := searchRepo.AddSearch("https://www.vinted.fr/catalog?search_text=b", "")

	for i := int64(1); i <= 5; i++ {
		if err := itemRepo.RecordItem(NewItem{ID: i, SearchID: searchA, Timestamp: 1000 + i}); err != nil {
			t.Fatalf("Unexpected error recording item %d: %v", i, err)
		}
	}
	if err := itemRepo.RecordItem(NewItem{ID: 100, SearchID: searchB, Timestamp: 500}); err != nil {
		t.Fatalf("Unexpected error recording item for search B: %v", err)
	}

	deleted, err := itemRepo.PruneItems(searchA, 2)
	if err != nil {
		t.Fatalf("Unexpected error pruning items: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Expected 3 items pruned, got %d", deleted)
	}

	items, err := itemRepo.GetRecentItems(searchA, 10)
	if err != nil {
		t.Fatalf("Unexpected error getting items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items kept, got %d", len(items))
	}
	if items[0].ID != 5 || items[1].ID != 4 {
		t.Errorf("Expected newest items 5 and 4 kept, got %d and %d", items[0].ID, items[1].ID)
	}

	// Other searches' rows must be untouched
	itemsB, _ := itemRepo.GetRecentItems(searchB, 10)
	if len(itemsB) != 1 {
		t.Errorf("Expected search B items untouched by pruning, got %d items", len(itemsB))
	}
}

func TestSearchRepo_DeleteSearch_CascadesItems(t *testing.T) {
	db := newTestDB(t)
	searchRepo := NewSearchRepository(db)
	itemRepo := NewItemRepository(db)

	searchID, _ := searchRepo.AddSearch("https://www.vinted.fr/catalog?search_text=coat", "")
	if err := itemRepo.RecordItem(NewItem{ID: 7, SearchID: searchID, Timestamp: 1000}); err != nil {
		t.Fatalf("Unexpected error recording item: %v", err)
	}

	if err := searchRepo.DeleteSearch(searchID); err != nil {
		t.Fatalf("Unexpected error deleting search: %v", err)
	}

	count, _ := itemRepo.GetItemCount()
	if count != 0 {
		t.Errorf("Expected items deleted with their search, got %d remaining", count)
	}

	s, _ := searchRepo.GetSearch(searchID)
	if s != nil {
		t.Error("Expected search to be gone after deletion")
	}
}

func TestSettingRepo_Defaults(t *testing.T) {
	db := newTestDB(t)
	repo := NewSettingRepository(db)

	interval := repo.GetInt("poll_interval", 30)
	if interval != 60 {
		t.Errorf("Expected seeded poll_interval 60, got %d", interval)
	}

	if got := repo.GetInt("no_such_key", 42); got != 42 {
		t.Errorf("Expected fallback 42 for missing key, got %d", got)
	}

	if err := repo.Set("banwords", "nike|||adidas"); err != nil {
		t.Fatalf("Unexpected error setting banwords: %v", err)
	}
	value, err := repo.Get("banwords")
	if err != nil {
		t.Fatalf("Unexpected error getting banwords: %v", err)
	}
	if value != "nike|||adidas" {
		t.Errorf("Expected banwords 'nike|||adidas', got '%s'", value)
	}

	if err := repo.Set("poll_interval", "not-a-number"); err != nil {
		t.Fatalf("Unexpected error setting poll_interval: %v", err)
	}
	if got := repo.GetInt("poll_interval", 30); got != 30 {
		t.Errorf("Expected fallback 30 for malformed poll_interval, got %d", got)
	}
}

func TestAllowlistRepo(t *testing.T) {
	db := newTestDB(t)
	repo := NewAllowlistRepository(db)

	countries, err := repo.GetAllowlist()
	if err != nil {
		t.Fatalf("Unexpected error getting allowlist: %v", err)
	}
	if len(countries) != 0 {
		t.Errorf("Expected empty allowlist, got %v", countries)
	}

	if err := repo.AddCountry("FR"); err != nil {
		t.Fatalf("Unexpected error adding country: %v", err)
	}
	if err := repo.AddCountry("DE"); err != nil {
		t.Fatalf("Unexpected error adding country: %v", err)
	}
	// Adding the same country twice is a no-op
	if err := repo.AddCountry("FR"); err != nil {
		t.Fatalf("Unexpected error re-adding country: %v", err)
	}

	countries, _ = repo.GetAllowlist()
	if len(countries) != 2 {
		t.Errorf("Expected 2 countries, got %v", countries)
	}

	if err := repo.RemoveCountry("FR"); err != nil {
		t.Fatalf("Unexpected error removing country: %v", err)
	}
	countries, _ = repo.GetAllowlist()
	if len(countries) != 1 || countries[0] != "DE" {
		t.Errorf("Expected only DE left, got %v", countries)
	}

	if err := repo.ClearAllowlist(); err != nil {
		t.Fatalf("Unexpected error clearing allowlist: %v", err)
	}
	countries, _ = repo.GetAllowlist()
	if len(countries) != 0 {
		t.Errorf("Expected empty allowlist after clear, got %v", countries)
	}
}
