package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background task processing.
// Example usage:
//
//	scheduler := NewScheduler(searchRepo, itemRepo, settingRepo, fetcher, stage, dispatcher, managed)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
