package mongodb

import (
	"context"
	"strings"
	"time"

	apperrors "verified-export/internal/shared/errors"
	"verified-export/internal/shared/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect opens a client for uri and pings the deployment within timeout.
// A client is only returned once the server answered; the caller owns it and must Disconnect.
func Connect(ctx context.Context, uri string, timeout time.Duration, log logger.Logger) (*mongo.Client, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, apperrors.NewConnectionError("mongodb uri is empty").WithCause(apperrors.ErrMissingURI)
	}

	opts := clientOptions(uri, timeout)

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, apperrors.NewConnectionError("failed to connect to MongoDB").WithCause(err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, apperrors.NewConnectionError("failed to ping MongoDB").
			WithDetail("hosts", opts.Hosts).
			WithCause(err)
	}

	if log != nil {
		log.WithFields(map[string]interface{}{
			"hosts": opts.Hosts,
		}).Info("MongoDB connection established successfully")
	}

	return client, nil
}

// clientOptions builds the driver options. Only the hosts from the URI may be logged.
func clientOptions(uri string, timeout time.Duration) *options.ClientOptions {
	return options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetAppName("verified-export")
}

// Disconnect closes client, giving it at most timeout to drain.
func Disconnect(client *mongo.Client, timeout time.Duration, log logger.Logger) {
	if client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := client.Disconnect(ctx)
	if log == nil {
		return
	}
	if err != nil {
		log.WithError(err).Error("Failed to disconnect MongoDB")
		return
	}
	log.Debug("MongoDB connection closed")
}
