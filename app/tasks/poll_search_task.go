package tasks

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Fuyucch1/Vinted-Notifications/app/database"
	"github.com/Fuyucch1/Vinted-Notifications/app/pipeline"
)

// PollSearchTask fetches current candidates for one saved search and hands
// the batch to the decision stage. Fetch failures are not retried through
// the task queue: the next scheduler tick is the retry.
type PollSearchTask struct {
	Task
	search     database.Search
	limit      int
	fetcher    pipeline.Fetcher
	searchRepo database.SearchRepository
	stage      *pipeline.Stage
	release    func()
}

func NewPollSearchTask(search database.Search, limit int, fetcher pipeline.Fetcher,
	searchRepo database.SearchRepository, stage *pipeline.Stage, release func()) *PollSearchTask {
	task := NewTask(TaskTypePollSearch, searchDisplayName(search))
	task.MaxRetries = 0

	return &PollSearchTask{
		Task:       task,
		search:     search,
		limit:      limit,
		fetcher:    fetcher,
		searchRepo: searchRepo,
		stage:      stage,
		release:    release,
	}
}

func (t *PollSearchTask) Execute(ctx context.Context) error {
	defer t.release()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	items, err := t.fetcher.Search(ctx, t.search.Query, t.limit)
	if errors.Is(err, pipeline.ErrFatalFetch) {
		slog.Error("Fatal fetch error, disabling search until reconfigured",
			"search_id", t.search.ID, "search", t.GetSearchName(), "error", err)
		if derr := t.searchRepo.SetSearchEnabled(t.search.ID, false); derr != nil {
			slog.Error("Failed to disable search", "search_id", t.search.ID, "error", derr)
		}
		return nil
	}
	if err != nil {
		// No state change: the watermark stays put and the next tick retries.
		slog.Warn("Transient fetch error, retrying next tick",
			"search_id", t.search.ID, "search", t.GetSearchName(), "error", err)
		return nil
	}

	if len(items) == 0 {
		slog.Debug("No candidates returned", "search_id", t.search.ID)
		return nil
	}

	if !t.stage.Enqueue(pipeline.Batch{SearchID: t.search.ID, Items: items}) {
		// Dropped batches are safe: nothing was persisted, so the same
		// candidates come back on the next poll.
		slog.Warn("Decision stage saturated, batch dropped", "search_id", t.search.ID, "count", len(items))
		return nil
	}

	slog.Info("Task completed",
		"type", "PollSearch",
		"search_id", t.search.ID,
		"search", t.GetSearchName(),
		"duration", t.GetDuration(),
		"fetched", len(items))

	return nil
}

func searchDisplayName(search database.Search) string {
	if search.Name != "" {
		return search.Name
	}
	return search.Query
}
