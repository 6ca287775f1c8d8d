package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Fuyucch1/Vinted-Notifications/app/database"
)

// PruneItemsTask enforces bounded retention: only the newest N item
// records are kept per saved search.
type PruneItemsTask struct {
	Task
	searchRepo database.SearchRepository
	itemRepo   database.ItemRepository
	keep       int
}

func NewPruneItemsTask(searchRepo database.SearchRepository, itemRepo database.ItemRepository, keep int) *PruneItemsTask {
	return &PruneItemsTask{
		Task:       NewTask(TaskTypePruneItems, ""),
		searchRepo: searchRepo,
		itemRepo:   itemRepo,
		keep:       keep,
	}
}

func (t *PruneItemsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	searches, err := t.searchRepo.GetSearches()
	if err != nil {
		return fmt.Errorf("failed to load searches for pruning: %w", err)
	}

	var pruned int64
	for _, search := range searches {
		deleted, err := t.itemRepo.PruneItems(search.ID, t.keep)
		if err != nil {
			return fmt.Errorf("failed to prune items for search %d: %w", search.ID, err)
		}
		pruned += deleted
	}

	if pruned > 0 {
		slog.Info("Task completed",
			"type", "PruneItems",
			"duration", t.GetDuration(),
			"keep", t.keep,
			"pruned", pruned)
	}

	return nil
}
