package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pribylovaa/authguard/internal/config"
)

const (
	postsCollection = "posts"
	defaultDBName   = "authguard"
)

// Mongo - тонкий адаптер для подключения и коллекции постов.
type Mongo struct {
	client *mongodriver.Client
	db     *mongodriver.Database
	posts  *mongodriver.Collection
}

// New подключается к MongoDB, проверяет соединение и создаёт индексы.
// Имя БД берётся из пути URI, затем из cfg.Database, затем "authguard".
func New(ctx context.Context, cfg config.MongoConfig) (*Mongo, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("mongo: empty url")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(databaseName(cfg))

	m := &Mongo{
		client: cli,
		db:     db,
		posts:  db.Collection(postsCollection),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}

	return m, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Ping проверяет доступность primary.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// ensureIndexes: owner_id для выборок по владельцу.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.posts.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}},
		Options: options.Index().SetName("owner_id"),
	})
	if err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}

	return nil
}

func databaseName(cfg config.MongoConfig) string {
	if u, err := url.Parse(cfg.URL); err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}

	if cfg.Database != "" {
		return cfg.Database
	}

	return defaultDBName
}
