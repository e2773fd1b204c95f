package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/idgen"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	pagesCollection     = "pages"
	revisionsCollection = "page_revisions"
)

// MongoStore persists pages in a MongoDB database. The page document is
// kept as a JSON string so round trips are lossless.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	limit  int
}

var _ domain.PageStore = (*MongoStore)(nil)

type mongoPage struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	Slug      string    `bson:"slug"`
	Status    string    `bson:"status"`
	Document  string    `bson:"document"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type mongoRevision struct {
	ID        string    `bson:"_id"`
	PageID    string    `bson:"pageId"`
	Document  string    `bson:"document"`
	CreatedAt time.Time `bson:"createdAt"`
}

// OpenMongo connects to uri and uses database dbName.
func OpenMongo(ctx context.Context, uri, dbName string, revisionLimit int) (*MongoStore, error) {
	if revisionLimit <= 0 {
		revisionLimit = DefaultRevisionLimit
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		log.Printf("[MONGO] connect failed: %v", err)
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Printf("[MONGO] connected, database %s", dbName)
	return &MongoStore{client: client, db: client.Database(dbName), limit: revisionLimit}, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) SavePage(ctx context.Context, p *domain.Page) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}
	now := time.Now().UTC()
	created := p.Metadata.CreatedAt
	if created.IsZero() {
		created = now
	}

	page := mongoPage{
		ID:        p.Metadata.ID,
		Title:     p.Metadata.Title,
		Slug:      p.Metadata.Slug,
		Status:    p.Metadata.Status,
		Document:  string(doc),
		CreatedAt: created,
		UpdatedAt: now,
	}
	_, err = s.db.Collection(pagesCollection).ReplaceOne(ctx,
		bson.M{"_id": page.ID}, page, options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert page: %w", err)
	}

	rev := mongoRevision{ID: idgen.NewRevisionID(), PageID: page.ID, Document: string(doc), CreatedAt: now}
	if _, err := s.db.Collection(revisionsCollection).InsertOne(ctx, rev); err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return s.pruneIfNeeded(ctx, page.ID)
}

func (s *MongoStore) pruneIfNeeded(ctx context.Context, pageID string) error {
	coll := s.db.Collection(revisionsCollection)
	filter := bson.M{"pageId": pageID}
	count, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return fmt.Errorf("count revisions: %w", err)
	}
	if count <= int64(s.limit) {
		return nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetSkip(int64(s.limit)).
		SetProjection(bson.M{"_id": 1})
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("select old revisions: %w", err)
	}
	var old []mongoRevision
	if err := cursor.All(ctx, &old); err != nil {
		return fmt.Errorf("decode old revisions: %w", err)
	}
	ids := make([]string, len(old))
	for i, r := range old {
		ids[i] = r.ID
	}
	if _, err := coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("delete revisions: %w", err)
	}
	log.Printf("[STORE] pruned %d revisions of page %s", len(ids), pageID)
	return nil
}

func (s *MongoStore) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	var page mongoPage
	err := s.db.Collection(pagesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&page)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	return decodePage(page.Document)
}

func (s *MongoStore) ListPages(ctx context.Context) ([]domain.PageSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"document": 0})
	cursor, err := s.db.Collection(pagesCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	var pages []mongoPage
	if err := cursor.All(ctx, &pages); err != nil {
		return nil, fmt.Errorf("decode pages: %w", err)
	}
	out := make([]domain.PageSummary, len(pages))
	for i, p := range pages {
		out[i] = domain.PageSummary{ID: p.ID, Title: p.Title, Slug: p.Slug, Status: p.Status, UpdatedAt: p.UpdatedAt}
	}
	return out, nil
}

func (s *MongoStore) DeletePage(ctx context.Context, id string) error {
	res, err := s.db.Collection(pagesCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	if _, err := s.db.Collection(revisionsCollection).DeleteMany(ctx, bson.M{"pageId": id}); err != nil {
		return fmt.Errorf("delete revisions: %w", err)
	}
	return nil
}

func (s *MongoStore) ListRevisions(ctx context.Context, pageID string) ([]domain.Revision, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetProjection(bson.M{"document": 0})
	cursor, err := s.db.Collection(revisionsCollection).Find(ctx, bson.M{"pageId": pageID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	var revs []mongoRevision
	if err := cursor.All(ctx, &revs); err != nil {
		return nil, fmt.Errorf("decode revisions: %w", err)
	}
	out := make([]domain.Revision, len(revs))
	for i, r := range revs {
		out[i] = domain.Revision{ID: r.ID, PageID: r.PageID, CreatedAt: r.CreatedAt}
	}
	return out, nil
}

func (s *MongoStore) GetRevision(ctx context.Context, revisionID string) (*domain.Page, error) {
	var rev mongoRevision
	err := s.db.Collection(revisionsCollection).FindOne(ctx, bson.M{"_id": revisionID}).Decode(&rev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get revision: %w", err)
	}
	return decodePage(rev.Document)
}
