package export

import (
	"context"
	"fmt"

	"verified-export/internal/export/adapter/csvfile"
	"verified-export/internal/export/adapter/events"
	"verified-export/internal/export/adapter/persistence/mongodb"
	"verified-export/internal/export/config"
	"verified-export/internal/export/domain/model"
	"verified-export/internal/export/domain/repository"
	"verified-export/internal/export/usecase"
	"verified-export/internal/shared/logger"

	"go.mongodb.org/mongo-driver/mongo"
)

// ExportModule wires the export pipeline: MongoDB source, CSV sink and event publisher
type ExportModule struct {
	source    repository.RecordSource
	sink      *csvfile.Sink
	publisher repository.EventPublisher
	usecase   usecase.ExportUsecaseInterface
	config    *config.Config
	logger    logger.Logger
}

// NewExportModule creates a new export module reading from db
func NewExportModule(db *mongo.Database, cfg *config.Config, log logger.Logger) (*ExportModule, error) {
	if db == nil {
		return nil, fmt.Errorf("export module requires a database")
	}
	if cfg == nil {
		return nil, fmt.Errorf("export module requires a configuration")
	}
	if log == nil {
		log = logger.NewLogger()
	}

	source := mongodb.NewMongoRecordSource(db, log)
	sink := csvfile.NewSink(cfg.OutputDir, cfg.AtomicWrites, log)
	publisher := events.NewPublisher(cfg.Redis, log)

	exportUsecase := usecase.NewExportUsecase(source, sink, publisher, log, usecase.Options{
		Database:        db.Name(),
		ContinueOnError: cfg.ContinueOnError,
	})

	return &ExportModule{
		source:    source,
		sink:      sink,
		publisher: publisher,
		usecase:   exportUsecase,
		config:    cfg,
		logger:    log,
	}, nil
}

// Run exports every non-system collection of the database
func (m *ExportModule) Run(ctx context.Context) (*model.ExportSummary, error) {
	return m.usecase.Run(ctx)
}

// Stop releases the event publisher
func (m *ExportModule) Stop() error {
	if err := m.publisher.Close(); err != nil {
		return fmt.Errorf("failed to close event publisher: %w", err)
	}
	return nil
}
