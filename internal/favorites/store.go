// Package favorites stores users' saved books in MongoDB.
package favorites

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_bookshop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "favorites"

type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection(collectionName)}
}

func (m *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "book_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Add returns the user's favorite for fav.BookID, creating it from fav when absent.
// Metadata of an existing favorite is left untouched.
func (m *MongoStore) Add(ctx context.Context, fav *domain.Favorite) (*domain.Favorite, error) {
	if fav.CreatedAt.IsZero() {
		fav.CreatedAt = time.Now().UTC()
	}

	filter := bson.M{"user_id": fav.UserID, "book_id": fav.BookID}
	update := bson.M{"$setOnInsert": bson.M{
		"title":       fav.Title,
		"thumbnail":   fav.Thumbnail,
		"authors":     fav.Authors,
		"description": fav.Description,
		"created_at":  fav.CreatedAt,
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var saved domain.Favorite
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved)
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent add won the upsert; the document now exists.
		err = m.collection.FindOne(ctx, filter).Decode(&saved)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}
	return &saved, nil
}

// Remove deletes the user's favorite for bookID. Removing an absent favorite is a no-op.
func (m *MongoStore) Remove(ctx context.Context, userID, bookID string) error {
	_, err := m.collection.DeleteOne(ctx, bson.M{"user_id": userID, "book_id": bookID})
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

func (m *MongoStore) ListForUser(ctx context.Context, userID string) ([]domain.Favorite, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "book_id", Value: 1}})

	cursor, err := m.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer cursor.Close(ctx)

	favorites := make([]domain.Favorite, 0)
	if err := cursor.All(ctx, &favorites); err != nil {
		return nil, fmt.Errorf("failed to decode favorites: %w", err)
	}
	return favorites, nil
}
