package favorites

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const disconnectTimeout = 5 * time.Second

// Connect opens the favorites database and verifies the primary is reachable.
// The returned func disconnects the client.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, func(), error) {
	opts := options.Client().
		ApplyURI(uri).
		SetAppName("bookshop-favorites").
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetWriteConcern(writeconcern.Majority()).
		SetRetryWrites(true).
		SetMaxPoolSize(20)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("favorites: connect: %w", err)
	}

	disconnect := func() {
		dctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		_ = client.Disconnect(dctx)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		disconnect()
		return nil, nil, fmt.Errorf("favorites: ping: %w", err)
	}

	return client.Database(database), disconnect, nil
}
