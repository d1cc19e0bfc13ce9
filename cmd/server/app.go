package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/marketing-jobs/internal/aitask"
	"github.com/phrazzld/marketing-jobs/internal/config"
	"github.com/phrazzld/marketing-jobs/internal/events"
	"github.com/phrazzld/marketing-jobs/internal/generation"
	"github.com/phrazzld/marketing-jobs/internal/redact"
	"github.com/phrazzld/marketing-jobs/internal/task"
	"github.com/robfig/cron/v3"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Task handling
	gateway *task.Gateway
	tasks   task.Service

	// Event system
	emitter  *events.InMemoryEventEmitter
	outcomes *events.OutcomeCounter

	scheduler *cron.Cron
}

// newApplication creates the task gateway, registers executors and starts
// the workers. gen may be nil, in which case only local task types are served.
func newApplication(cfg *config.Config, logger *slog.Logger, gen generation.Generator) (*application, error) {
	registry := task.NewRegistry()
	if err := aitask.Register(registry, gen); err != nil {
		return nil, fmt.Errorf("failed to register executors: %w", err)
	}
	logger.Info("Task executors registered", "task_types", registry.Types())

	app := &application{
		config:   cfg,
		logger:   logger,
		emitter:  events.NewInMemoryEventEmitter(logger),
		outcomes: events.NewOutcomeCounter(),
	}
	app.emitter.RegisterHandler(events.NewLoggingHandler(logger))
	app.emitter.RegisterHandler(app.outcomes)

	app.gateway = task.NewGateway(gatewayConfig(cfg), registry, logger)
	app.gateway.SetCompletionHandler(completionPublisher(app.emitter, logger))
	app.gateway.SetErrorHandler(failureReporter(logger))
	app.tasks = task.NewAuditedService(app.gateway, logger)

	scheduler, err := startStatsSchedule(cfg.Stats.ReportSchedule, statsReporter(app.tasks, app.outcomes, logger), logger)
	if err != nil {
		return nil, err
	}
	app.scheduler = scheduler

	app.gateway.Start()
	return app, nil
}

// gatewayConfig translates loaded configuration into task settings
func gatewayConfig(cfg *config.Config) task.GatewayConfig {
	return task.GatewayConfig{
		Queue: task.QueueConfig{
			MaxConcurrentJobs: cfg.Queue.MaxConcurrentJobs,
			MaxBacklog:        cfg.Queue.MaxBacklog,
		},
		Results: task.RetentionConfig{
			TTL:      cfg.Retention.ResultTTL,
			Capacity: cfg.Retention.ResultCapacity,
		},
		Progress: task.RetentionConfig{
			TTL:      cfg.Retention.ProgressTTL,
			Capacity: cfg.Retention.ProgressCapacity,
		},
		StrictTaskTypes: cfg.Queue.StrictTaskTypes,
	}
}

// cleanup stops the stats schedule and then the task gateway, which cancels
// queued tasks and waits for running ones to observe cancellation.
func (app *application) cleanup() {
	if app.scheduler != nil {
		<-app.scheduler.Stop().Done()
	}
	app.gateway.Stop()
	app.logger.Info("Task gateway stopped")
}

// completionPublisher turns terminal task transitions into completion events
func completionPublisher(emitter events.EventEmitter, logger *slog.Logger) func(task.Descriptor, task.ResultRecord) {
	return func(desc task.Descriptor, result task.ResultRecord) {
		event := events.NewTaskCompletedEvent(
			desc.ID,
			desc.Type,
			desc.OwnerID,
			string(result.Status),
			result.Message,
			result.Error,
		)
		if err := emitter.EmitEvent(context.Background(), event); err != nil {
			logger.Error("failed to publish task completion",
				"task_id", desc.ID,
				"error", err)
		}
	}
}

// failureReporter logs failed tasks by failure category with secrets scrubbed
// from the error text. The full detail stays in the stored result.
func failureReporter(logger *slog.Logger) func(task.Descriptor, error) {
	return func(desc task.Descriptor, err error) {
		logger.Warn("task failed",
			"task_id", desc.ID,
			"task_type", desc.Type,
			"owner_id", desc.OwnerID,
			"category", failureCategory(err),
			"error", redact.Error(err))
	}
}

func failureCategory(err error) string {
	switch {
	case errors.Is(err, task.ErrUnknownTaskType):
		return "unknown_task_type"
	case errors.Is(err, generation.ErrContentBlocked):
		return "content_blocked"
	case errors.Is(err, generation.ErrTransientFailure):
		return "upstream_unavailable"
	case errors.Is(err, generation.ErrInvalidResponse):
		return "invalid_response"
	case errors.Is(err, generation.ErrGenerationFailed):
		return "generation_failed"
	default:
		return "execution_error"
	}
}
