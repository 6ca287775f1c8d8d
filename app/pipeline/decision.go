package pipeline

import (
	"context"
	"log/slog"

	"github.com/Fuyucch1/Vinted-Notifications/app/database"
)

// Stage consumes raw candidate batches and decides, per candidate, whether
// to skip, record silently, or record and notify. It is the only writer of
// watermarks and item records.
type Stage struct {
	searchRepo    database.SearchRepository
	itemRepo      database.ItemRepository
	settingRepo   database.SettingRepository
	allowlistRepo database.AllowlistRepository
	countries     CountryResolver
	filterer      *Filterer
	batches       chan Batch
	events        chan<- Notification
}

func NewStage(searchRepo database.SearchRepository, itemRepo database.ItemRepository,
	settingRepo database.SettingRepository, allowlistRepo database.AllowlistRepository,
	countries CountryResolver, events chan<- Notification) *Stage {
	return &Stage{
		searchRepo:    searchRepo,
		itemRepo:      itemRepo,
		settingRepo:   settingRepo,
		allowlistRepo: allowlistRepo,
		countries:     countries,
		filterer:      NewFilterer(),
		batches:       make(chan Batch, 100),
		events:        events,
	}
}

// Enqueue submits a batch without blocking. The caller retries on the
// next tick when the stage is saturated.
func (s *Stage) Enqueue(b Batch) bool {
	select {
	case s.batches <- b:
		return true
	default:
		return false
	}
}

func (s *Stage) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-s.batches:
			s.ProcessBatch(ctx, batch)
		}
	}
}

// ProcessBatch walks the batch oldest-first so the watermark advances
// monotonically and a crash mid-batch never skips items. Banwords and the
// allowlist are re-read per batch; dedupe checks hit the store fresh per
// candidate because other processes may share it.
func (s *Stage) ProcessBatch(ctx context.Context, batch Batch) {
	banwordsSetting, err := s.settingRepo.Get("banwords")
	if err != nil {
		slog.Warn("Failed to read banwords, proceeding without", "search_id", batch.SearchID, "error", err)
	}
	banwords := s.filterer.SplitBanwords(banwordsSetting)

	allowlist, err := s.allowlistRepo.GetAllowlist()
	if err != nil {
		slog.Warn("Failed to read allowlist, proceeding without", "search_id", batch.SearchID, "error", err)
		allowlist = nil
	}

	var skipped, deduped, filtered, notified int

	for i := len(batch.Items) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch s.processCandidate(ctx, batch.SearchID, batch.Items[i], banwords, allowlist) {
		case verdictSkipped:
			skipped++
		case verdictDeduped:
			deduped++
		case verdictFiltered:
			filtered++
		case verdictNotified:
			notified++
		}
	}

	slog.Info("Batch processed",
		"search_id", batch.SearchID,
		"total", len(batch.Items),
		"skipped", skipped,
		"deduped", deduped,
		"filtered", filtered,
		"notified", notified)
}

type verdict int

const (
	verdictSkipped verdict = iota
	verdictDeduped
	verdictFiltered
	verdictNotified
	verdictFailed
)

func (s *Stage) processCandidate(ctx context.Context, searchID int64, item RawItem,
	banwords []string, allowlist []string) verdict {

	watermark, err := s.searchRepo.GetWatermark(searchID)
	if err != nil {
		slog.Error("Failed to read watermark, candidate left unprocessed",
			"search_id", searchID, "item_id", item.ID, "error", err)
		return verdictFailed
	}

	// Already processed on a previous pass
	if watermark != nil && item.Timestamp <= *watermark {
		return verdictSkipped
	}

	exists, err := s.itemRepo.HasItem(item.ID)
	if err != nil {
		slog.Error("Failed to check item existence, candidate left unprocessed",
			"search_id", searchID, "item_id", item.ID, "error", err)
		return verdictFailed
	}

	// Overlapping searches: already notified through another search, only
	// this search's watermark moves.
	if exists {
		if err := s.searchRepo.AdvanceWatermark(searchID, item.Timestamp); err != nil {
			slog.Error("Failed to advance watermark", "search_id", searchID, "item_id", item.ID, "error", err)
			return verdictFailed
		}
		return verdictDeduped
	}

	if len(allowlist) > 0 {
		country := s.countries.Resolve(ctx, item.OwnerID)
		if !s.filterer.CountryAllowed(allowlist, country) {
			// Recorded once so it is never re-evaluated, but no event.
			if err := s.recordItem(searchID, item); err != nil {
				slog.Error("Failed to record allowlist-rejected item, candidate left unprocessed",
					"search_id", searchID, "item_id", item.ID, "error", err)
				return verdictFailed
			}
			slog.Debug("Item outside country allowlist", "search_id", searchID, "item_id", item.ID, "country", country)
			return verdictFiltered
		}
	}

	if s.filterer.MatchesBanword(item.Title, banwords) {
		if err := s.recordItem(searchID, item); err != nil {
			slog.Error("Failed to record banword-filtered item, candidate left unprocessed",
				"search_id", searchID, "item_id", item.ID, "error", err)
			return verdictFailed
		}
		slog.Debug("Item title matched banword", "search_id", searchID, "item_id", item.ID, "title", item.Title)
		return verdictFiltered
	}

	if err := s.recordItem(searchID, item); err != nil {
		// Left unprocessed on purpose: a duplicate notification later beats
		// silently losing the item.
		slog.Error("Failed to record item, candidate left unprocessed",
			"search_id", searchID, "item_id", item.ID, "error", err)
		return verdictFailed
	}

	notification := Notification{
		Title:    item.Title,
		Price:    item.Price,
		Currency: item.Currency,
		Brand:    item.Brand,
		PhotoURL: item.PhotoURL,
		URL:      item.URL,
	}

	select {
	case s.events <- notification:
	case <-ctx.Done():
	}

	return verdictNotified
}

func (s *Stage) recordItem(searchID int64, item RawItem) error {
	return s.itemRepo.RecordItem(database.NewItem{
		ID:        item.ID,
		SearchID:  searchID,
		Title:     item.Title,
		Price:     item.Price,
		Currency:  item.Currency,
		Brand:     item.Brand,
		URL:       item.URL,
		PhotoURL:  item.PhotoURL,
		Timestamp: item.Timestamp,
	})
}
