package tasks

import (
	"context"
	"log/slog"

	"github.com/Fuyucch1/Vinted-Notifications/app/database"
	"github.com/Fuyucch1/Vinted-Notifications/app/pipeline"
)

// ManagedSink ties a sink to the settings that control it. The sink is
// registered with the dispatcher while its enable setting is "true" and
// all required settings are non-empty.
type ManagedSink struct {
	Sink         pipeline.Sink
	EnableKey    string
	RequiredKeys []string
}

// SyncSinksTask reconciles the dispatcher's registered sinks with the
// stored settings so sinks can be enabled and disabled live.
type SyncSinksTask struct {
	Task
	settingRepo database.SettingRepository
	dispatcher  *pipeline.Dispatcher
	managed     []ManagedSink
}

func NewSyncSinksTask(settingRepo database.SettingRepository, dispatcher *pipeline.Dispatcher, managed []ManagedSink) *SyncSinksTask {
	return &SyncSinksTask{
		Task:        NewTask(TaskTypeSyncSinks, ""),
		settingRepo: settingRepo,
		dispatcher:  dispatcher,
		managed:     managed,
	}
}

func (t *SyncSinksTask) Execute(ctx context.Context) error {
	for _, m := range t.managed {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		shouldRun := t.sinkShouldRun(m)
		registered := t.dispatcher.IsRegistered(m.Sink.Name())

		switch {
		case shouldRun && !registered:
			t.dispatcher.Register(m.Sink)
		case !shouldRun && registered:
			t.dispatcher.Deregister(m.Sink.Name())
		}
	}

	return nil
}

func (t *SyncSinksTask) sinkShouldRun(m ManagedSink) bool {
	enabled, err := t.settingRepo.Get(m.EnableKey)
	if err != nil || enabled != "true" {
		return false
	}

	for _, key := range m.RequiredKeys {
		value, err := t.settingRepo.Get(key)
		if err != nil || value == "" {
			slog.Debug("Sink missing required setting, treating as disabled", "sink", m.Sink.Name(), "key", key)
			return false
		}
	}

	return true
}
