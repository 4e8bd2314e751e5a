package usecase

import (
	"context"
	"errors"
	"time"

	"verified-export/internal/export/domain/model"
	"verified-export/internal/export/domain/repository"
	apperrors "verified-export/internal/shared/errors"
	"verified-export/internal/shared/logger"
	"verified-export/internal/shared/utils"

	"github.com/google/uuid"
)

// ExportUsecaseInterface runs one export of verified records.
type ExportUsecaseInterface interface {
	Run(ctx context.Context) (*model.ExportSummary, error)
}

// Options tune a run.
type Options struct {
	// Database is the source database name, used for log fields and events.
	Database string
	// ContinueOnError exports the remaining collections after one fails.
	// The run still returns an error naming every failed collection.
	ContinueOnError bool
	// Now and NewRunID are replaceable in tests.
	Now      func() time.Time
	NewRunID func() string
}

type exportUsecaseImpl struct {
	source    repository.RecordSource
	sink      repository.RowSink
	publisher repository.EventPublisher
	log       logger.Logger
	opts      Options
}

// NewExportUsecase creates the export pipeline.
func NewExportUsecase(
	source repository.RecordSource,
	sink repository.RowSink,
	publisher repository.EventPublisher,
	log logger.Logger,
	opts Options,
) ExportUsecaseInterface {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if log == nil {
		log = logger.NewLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	return &exportUsecaseImpl{
		source:    source,
		sink:      sink,
		publisher: publisher,
		log:       log.WithComponent("export"),
		opts:      opts,
	}
}

// Run lists the collections and exports each one in catalog order.
// A run ID already carried by ctx is kept.
func (uc *exportUsecaseImpl) Run(ctx context.Context) (*model.ExportSummary, error) {
	runID := utils.GetRunIDOrDefault(ctx, "")
	if runID == "" {
		runID = uc.opts.NewRunID()
	}
	ctx = utils.WithRunID(ctx, runID)
	ctx = utils.WithDatabase(ctx, uc.opts.Database)
	log := uc.log.WithContext(ctx)

	summary := model.NewExportSummary(runID, uc.opts.Database, uc.opts.Now())

	collections, err := uc.source.ListCollections(utils.WithOperation(ctx, "list_collections"))
	if err != nil {
		summary.FinishedAt = uc.opts.Now()
		appErr := apperrors.NewAppError(apperrors.ErrorTypeQuery, "failed to list collections").
			WithOperation("list_collections").
			WithCause(err)
		log.WithError(err).Error("Failed to list collections")
		return summary, appErr
	}
	log.WithFields(map[string]interface{}{
		"collections": len(collections),
	}).Debug("Collections to export")

	failures := apperrors.NewCollectionErrors()

	for _, name := range collections {
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = uc.opts.Now()
			log.WithError(err).Warn("Export cancelled")
			return summary, apperrors.NewInternalError("export cancelled").WithCollection(name).WithCause(err)
		}

		result := uc.exportCollection(ctx, name)
		summary.Add(result)
		uc.publish(ctx, log, model.NewCollectionEvent(runID, uc.opts.Database, result, uc.opts.Now()))

		entry := log.WithFields(map[string]interface{}{
			"collection": name,
			"rows":       result.Rows,
			"duration":   result.Duration.String(),
		})

		if result.Err != nil {
			entry.WithError(result.Err).Error("Failed to export collection")
			if !uc.opts.ContinueOnError {
				summary.FinishedAt = uc.opts.Now()
				return summary, result.Err
			}
			failures.Add(name, result.Err)
			continue
		}

		entry.WithFields(map[string]interface{}{"file": result.File}).
			Infof("Created CSV for collection: %s", name)
	}

	summary.FinishedAt = uc.opts.Now()
	uc.publish(ctx, log, model.NewFinishedEvent(summary, uc.opts.Now()))

	log.WithFields(map[string]interface{}{
		"exported": len(summary.Exported()),
		"failed":   len(summary.Failed()),
		"rows":     summary.TotalRows(),
		"duration": summary.Duration().String(),
	}).Info("Export run summary")

	if failures.HasErrors() {
		return summary, failures
	}
	return summary, nil
}

// exportCollection writes one collection's verified records to its CSV file.
func (uc *exportUsecaseImpl) exportCollection(ctx context.Context, name string) (result model.CollectionResult) {
	start := uc.opts.Now()
	result.Collection = name
	defer func() {
		result.Duration = uc.opts.Now().Sub(start)
	}()

	ctx = utils.WithOperation(utils.WithCollection(ctx, name), "export_collection")

	w, err := uc.sink.Create(name)
	if err != nil {
		result.Err = classify(name, err, apperrors.ErrorTypeFileIO, "failed to create output file")
		return result
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			uc.log.WithContext(ctx).WithError(cerr).Warn("Failed to close output file")
			if result.Err == nil {
				result.Err = classify(name, cerr, apperrors.ErrorTypeFileIO, "failed to close output file")
			}
		}
	}()

	if err := w.WriteHeader(); err != nil {
		result.Err = classify(name, err, apperrors.ErrorTypeFileIO, "failed to write header")
		return result
	}

	rows := 0
	err = uc.source.StreamVerified(ctx, name, func(record *model.Record) error {
		if err := w.Write(record.Row()); err != nil {
			return classify(name, err, apperrors.ErrorTypeFileIO, "failed to write row")
		}
		rows++
		return nil
	})
	result.Rows = rows
	if err != nil {
		result.Err = classify(name, err, apperrors.ErrorTypeQuery, "query failed")
		return result
	}

	if err := w.Commit(); err != nil {
		result.Err = classify(name, err, apperrors.ErrorTypeFileIO, "failed to commit output file")
		return result
	}

	result.File = w.Path()
	return result
}

// publish sends an event; a failed publish is logged and never fails the export.
func (uc *exportUsecaseImpl) publish(ctx context.Context, log logger.Logger, event model.ExportEvent) {
	if err := uc.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"event_type": string(event.Type),
		}).Warn("Failed to publish export event")
	}
}

// classify keeps an AppError already in err's chain and otherwise wraps err as errType.
func classify(collection string, err error, errType apperrors.ErrorType, message string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Collection == "" {
			appErr.Collection = collection
		}
		return err
	}
	switch errType {
	case apperrors.ErrorTypeQuery:
		return apperrors.NewQueryError(collection, message).WithCause(err)
	case apperrors.ErrorTypeFileIO:
		return apperrors.NewFileIOError(collection, message).WithCause(err)
	default:
		return apperrors.NewAppError(errType, message).WithCollection(collection).WithCause(err)
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, model.ExportEvent) error { return nil }
func (noopPublisher) Close() error { return nil }
