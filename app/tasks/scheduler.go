package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Fuyucch1/Vinted-Notifications/app/cfg"
	"github.com/Fuyucch1/Vinted-Notifications/app/database"
	"github.com/Fuyucch1/Vinted-Notifications/app/pipeline"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const defaultPollInterval = 60 // seconds

type Scheduler struct {
	searchRepo  database.SearchRepository
	itemRepo    database.ItemRepository
	settingRepo database.SettingRepository
	fetcher     pipeline.Fetcher
	stage       *pipeline.Stage
	dispatcher  *pipeline.Dispatcher
	managed     []ManagedSink
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	inFlightMu sync.Mutex
	inFlight   map[int64]struct{}
}

func NewScheduler(searchRepo database.SearchRepository, itemRepo database.ItemRepository,
	settingRepo database.SettingRepository, fetcher pipeline.Fetcher, stage *pipeline.Stage,
	dispatcher *pipeline.Dispatcher, managed []ManagedSink) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	interval := settingRepo.GetInt("poll_interval", defaultPollInterval)

	return &Scheduler{
		searchRepo:  searchRepo,
		itemRepo:    itemRepo,
		settingRepo: settingRepo,
		fetcher:     fetcher,
		stage:       stage,
		dispatcher:  dispatcher,
		managed:     managed,
		interval:    time.Duration(interval) * time.Second,
		workerCount: cfg.Get().WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
		inFlight:    make(map[int64]struct{}),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.reloadInterval(ticker)
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// reloadInterval re-reads the poll interval setting so a configuration
// change applies on the next tick without a restart. A malformed value
// falls back to the last good interval.
func (s *Scheduler) reloadInterval(ticker *time.Ticker) {
	seconds := s.settingRepo.GetInt("poll_interval", int(s.interval/time.Second))
	next := time.Duration(seconds) * time.Second
	if next != s.interval {
		slog.Info("Poll interval changed", "old", s.interval.String(), "new", next.String())
		s.interval = next
		ticker.Reset(next)
	}
}

func (s *Scheduler) enqueueTasks() {
	searches, err := s.searchRepo.GetEnabledSearches()
	if err != nil {
		slog.Error("Failed to load enabled searches", "error", err)
		return
	}

	if len(searches) > 0 {
		limit := s.settingRepo.GetInt("items_per_query", 20)

		for _, search := range searches {
			if !s.markInFlight(search.ID) {
				slog.Debug("Previous poll still running, skipping", "search_id", search.ID)
				continue
			}

			pollTask := NewPollSearchTask(search, limit, s.fetcher, s.searchRepo, s.stage, s.releaseFunc(search.ID))
			if err := s.EnqueueTask(pollTask); err != nil {
				s.releaseInFlight(search.ID)
				slog.Warn("Failed to enqueue PollSearchTask", "search_id", search.ID, "error", err)
			}
		}
	}

	retention := s.settingRepo.GetInt("retention_per_search", 100)
	pruneTask := NewPruneItemsTask(s.searchRepo, s.itemRepo, retention)
	if err := s.EnqueueTask(pruneTask); err != nil {
		slog.Warn("Failed to enqueue PruneItemsTask", "error", err)
	}

	if len(s.managed) > 0 {
		syncTask := NewSyncSinksTask(s.settingRepo, s.dispatcher, s.managed)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncSinksTask", "error", err)
		}
	}
}

// markInFlight reserves a search for one poll. Two concurrent fetches for
// the same search are never allowed; different searches run freely in
// parallel across workers.
func (s *Scheduler) markInFlight(searchID int64) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()

	if _, running := s.inFlight[searchID]; running {
		return false
	}
	s.inFlight[searchID] = struct{}{}
	return true
}

func (s *Scheduler) releaseInFlight(searchID int64) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	delete(s.inFlight, searchID)
}

func (s *Scheduler) releaseFunc(searchID int64) func() {
	var once sync.Once
	return func() {
		once.Do(func() { s.releaseInFlight(searchID) })
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "search", task.GetSearchName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
