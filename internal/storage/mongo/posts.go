package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/pribylovaa/authguard/internal/models"
	"github.com/pribylovaa/authguard/internal/storage"
)

// KindPosts - вид ресурса, хранящегося в коллекции posts.
const KindPosts = "posts"

type postDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	OwnerID   string             `bson:"owner_id"`
	Title     string             `bson:"title"`
	DeletedAt *time.Time         `bson:"deleted_at"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d *postDocument) toModel() *models.OwnedResource {
	res := &models.OwnedResource{
		Kind:      KindPosts,
		ID:        d.ID.Hex(),
		OwnerID:   d.OwnerID,
		Title:     d.Title,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}

	if d.DeletedAt != nil {
		t := d.DeletedAt.UTC()
		res.DeletedAt = &t
	}

	return res
}

// MongoDB DateTime хранит миллисекунды.
func toMS(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

// Resource возвращает пост по идентификатору, включая мягко удалённые.
// Некорректный формат id трактуется как «нет такой записи».
func (m *Mongo) Resource(ctx context.Context, id string) (*models.OwnedResource, error) {
	const op = "storage/mongo/Resource"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc postDocument
	if err := m.posts.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.toModel(), nil
}

// SaveResource создаёт пост. Пустой ID заменяется новым ObjectID.
func (m *Mongo) SaveResource(ctx context.Context, res *models.OwnedResource) error {
	const op = "storage/mongo/SaveResource"

	oid := primitive.NewObjectID()
	if res.ID != "" {
		parsed, err := primitive.ObjectIDFromHex(res.ID)
		if err != nil {
			return fmt.Errorf("%s: bad id %q: %w", op, res.ID, err)
		}
		oid = parsed
	}

	doc := postDocument{
		ID:        oid,
		OwnerID:   res.OwnerID,
		Title:     res.Title,
		CreatedAt: toMS(res.CreatedAt),
		UpdatedAt: toMS(res.UpdatedAt),
	}
	if res.DeletedAt != nil {
		t := toMS(*res.DeletedAt)
		doc.DeletedAt = &t
	}

	if _, err := m.posts.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: insert: %w", op, err)
	}

	res.ID = oid.Hex()
	res.Kind = KindPosts

	return nil
}

// SoftDeleteResource помечает пост удалённым, если он ещё не удалён.
func (m *Mongo) SoftDeleteResource(ctx context.Context, id string, now time.Time) error {
	const op = "storage/mongo/SoftDeleteResource"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := m.posts.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}, {Key: "deleted_at", Value: nil}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "deleted_at", Value: toMS(now)},
			{Key: "updated_at", Value: toMS(now)},
		}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

var (
	_ storage.ResourceStorage = (*Mongo)(nil)
	_ storage.Pinger          = (*Mongo)(nil)
)
