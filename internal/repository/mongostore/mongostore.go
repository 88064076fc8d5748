// Package mongostore keeps items and sales in MongoDB and runs sale
// transactions as multi-document session transactions.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"umkm-inventory/internal/model"
	"umkm-inventory/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	itemsCollection = "items"
	salesCollection = "sales"

	labelTransientTransaction = "TransientTransactionError"
	codeWriteConflict         = 112
)

type Store struct {
	client *mongo.Client
	items  *mongo.Collection
	sales  *mongo.Collection
}

// New returns the repository bundle for dbName and makes sure the indexes exist.
func New(ctx context.Context, client *mongo.Client, dbName string) (repository.Store, error) {
	db := client.Database(dbName)
	s := &Store{
		client: client,
		items:  db.Collection(itemsCollection),
		sales:  db.Collection(salesCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return repository.Store{}, err
	}
	return repository.Store{
		Items:      &itemRepo{s},
		Sales:      &saleRepo{s},
		UnitOfWork: s,
		Close:      client.Disconnect,
	}, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	if _, err := s.items.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "sku", Value: 1}}}); err != nil {
		return fmt.Errorf("create items.sku index: %w", err)
	}
	if _, err := s.sales.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}}}); err != nil {
		return fmt.Errorf("create sales.createdAt index: %w", err)
	}
	return nil
}

// RunInTx executes fn in a snapshot transaction. Write conflicts reported by the
// server and stale versions both surface as repository.ErrConflict.
func (s *Store) RunInTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	err = mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sess.StartTransaction(txOpts); err != nil {
			return err
		}
		if err := fn(&mongoTx{s: s, sc: sc}); err != nil {
			_ = sess.AbortTransaction(context.Background())
			return err
		}
		return sess.CommitTransaction(sc)
	})
	if isConflict(err) {
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	}
	return err
}

func isConflict(err error) bool {
	if err == nil {
		return false
	}
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.HasErrorLabel(labelTransientTransaction) || se.HasErrorCode(codeWriteConflict)
}

// mongoTx routes every operation through the session context; the ctx
// arguments are the same context the session was opened with.
type mongoTx struct {
	s  *Store
	sc mongo.SessionContext
}

func (t *mongoTx) GetItem(_ context.Context, id string) (*model.Item, error) {
	var doc itemDoc
	if err := t.s.items.FindOne(t.sc, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find item %s: %w", id, err)
	}
	return doc.toModel()
}

func (t *mongoTx) UpdateItemStock(_ context.Context, id string, stock int, expectedVersion int64, updatedAt time.Time, updatedBy string) error {
	res, err := t.s.items.UpdateOne(t.sc,
		bson.M{"_id": id, "version": expectedVersion},
		bson.M{
			"$set": bson.M{"stock": stock, "updatedAt": model.Timestamp(updatedAt), "updatedBy": updatedBy},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return fmt.Errorf("update stock of %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (t *mongoTx) CreateSale(_ context.Context, sale *model.Sale) error {
	doc, err := newSaleDoc(sale)
	if err != nil {
		return err
	}
	if _, err := t.s.sales.InsertOne(t.sc, doc); err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

type itemRepo struct {
	s *Store
}

func (r *itemRepo) Create(ctx context.Context, item *model.Item) error {
	if item.ID == "" {
		item.ID = model.NewID()
	}
	if item.Version == 0 {
		item.Version = 1
	}
	doc, err := newItemDoc(item)
	if err != nil {
		return err
	}
	if _, err := r.s.items.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *itemRepo) FindAll(ctx context.Context) ([]model.Item, error) {
	cur, err := r.s.items.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	var docs []itemDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	items := make([]model.Item, 0, len(docs))
	for i := range docs {
		item, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

func (r *itemRepo) FindByID(ctx context.Context, id string) (*model.Item, error) {
	var doc itemDoc
	if err := r.s.items.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find item %s: %w", id, err)
	}
	return doc.toModel()
}

func (r *itemRepo) UpdateDetails(ctx context.Context, item *model.Item) error {
	var conv decimals
	set := bson.M{
		"name":          item.Name,
		"sku":           item.SKU,
		"category":      item.Category,
		"purchasePrice": conv.to(item.PurchasePrice),
		"sellingPrice":  conv.to(item.SellingPrice),
		"minStock":      item.MinStock,
		"unit":          item.Unit,
		"updatedAt":     model.Timestamp(item.UpdatedAt),
		"updatedBy":     item.UpdatedBy,
	}
	if conv.err != nil {
		return conv.err
	}
	res, err := r.s.items.UpdateOne(ctx, bson.M{"_id": item.ID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update item %s: %w", item.ID, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *itemRepo) Delete(ctx context.Context, id string) error {
	res, err := r.s.items.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type saleRepo struct {
	s *Store
}

func (r *saleRepo) FindByID(ctx context.Context, id string) (*model.Sale, error) {
	var doc saleDoc
	if err := r.s.sales.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find sale %s: %w", id, err)
	}
	return doc.toModel()
}

func (r *saleRepo) ListRecent(ctx context.Context, limit int) ([]model.Sale, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

func (r *saleRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	filter := bson.M{"createdAt": bson.M{"$gte": from.UTC(), "$lt": to.UTC()}}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *saleRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.Sale, error) {
	cur, err := r.s.sales.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find sales: %w", err)
	}
	var docs []saleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sales: %w", err)
	}
	sales := make([]model.Sale, 0, len(docs))
	for i := range docs {
		sale, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	return sales, nil
}
