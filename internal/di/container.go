package di

import (
	"context"
	"fmt"
	"sync"

	"verified-export/internal/export"
	"verified-export/internal/export/adapter/persistence/mongodb"
	"verified-export/internal/export/config"
	"verified-export/internal/shared/logger"

	"go.mongodb.org/mongo-driver/mongo"
)

// Container owns the process-wide resources of one export run and shuts them down in reverse order
type Container struct {
	mu sync.RWMutex
	// Module instances
	ExportModule *export.ExportModule
	// Database connections
	MongoClient *mongo.Client
	MongoDB     *mongo.Database
	// Configuration
	Config *config.Config
	// Logger
	Logger logger.Logger
}

// NewContainer creates a container for cfg
func NewContainer(cfg *config.Config, log logger.Logger) *Container {
	if log == nil {
		log = logger.NewLogger()
	}
	return &Container{
		Config: cfg,
		Logger: log,
	}
}

// InitializeMongo connects to the configured deployment and selects the export database
func (c *Container) InitializeMongo(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Config == nil {
		return fmt.Errorf("configuration must be set before MongoDB is initialized")
	}
	if c.MongoClient != nil {
		return nil
	}

	client, err := mongodb.Connect(ctx, c.Config.MongoDBURI, c.Config.ConnectTimeout, c.Logger)
	if err != nil {
		return err
	}

	c.MongoClient = client
	c.MongoDB = client.Database(c.Config.DatabaseName)
	return nil
}

// InitializeExport creates the export module on top of the connected database
func (c *Container) InitializeExport() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.MongoDB == nil {
		return fmt.Errorf("MongoDB must be initialized before the export module")
	}

	exportModule, err := export.NewExportModule(c.MongoDB, c.Config, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create export module: %w", err)
	}

	c.ExportModule = exportModule
	return nil
}

// GetExportModule returns the export module instance
func (c *Container) GetExportModule() *export.ExportModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ExportModule
}

// Close stops the export module and disconnects from MongoDB
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error

	if c.ExportModule != nil {
		err = c.ExportModule.Stop()
		c.ExportModule = nil
	}

	if c.MongoClient != nil {
		mongodb.Disconnect(c.MongoClient, c.Config.ConnectTimeout, c.Logger)
		c.MongoClient = nil
		c.MongoDB = nil
	}

	return err
}
