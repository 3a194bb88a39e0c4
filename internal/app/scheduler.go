package app

import (
	"context"
)

// StartScheduler launches the ingestion scheduler loop in the background.
// It is a no-op when the schedule is disabled or the loop is already running.
func (a *App) StartScheduler(ctx context.Context) {
	if !a.Config.Schedule.Enabled {
		a.Logger.Info().Msg("Ingestion scheduler disabled by config")
		return
	}
	if a.schedulerCancel != nil {
		return
	}

	schedulerCtx, schedulerCancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.schedulerCancel = schedulerCancel
	a.schedulerDone = done

	go func() {
		defer close(done)
		a.Scheduler.Run(schedulerCtx, a.Config.Schedule.GetTickInterval())
	}()
}

// StopScheduler cancels the scheduler loop and waits for the running batch
// to observe the cancellation.
func (a *App) StopScheduler() {
	if a.schedulerCancel == nil {
		return
	}
	a.schedulerCancel()
	<-a.schedulerDone
	a.schedulerCancel = nil
	a.schedulerDone = nil
}
