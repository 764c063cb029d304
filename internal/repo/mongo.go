package repo

import (
	"context"
	"errors"
	"time"

	dom "dualtodo/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// todoDocument is the BSON shape of a todo in the document store.
type todoDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Title        string             `bson:"title"`
	Description  string             `bson:"description"`
	Category     string             `bson:"category"`
	IsFinished   bool               `bson:"isFinished"`
	DueDateUTC   *time.Time         `bson:"dueDateUtc,omitempty"`
	CreatedAtUTC time.Time          `bson:"createdAtUtc"`
	UpdatedAtUTC time.Time          `bson:"updatedAtUtc"`
}

type MongoTodoRepo struct {
	coll *mongo.Collection
}

func NewMongoTodoRepo(coll *mongo.Collection) *MongoTodoRepo {
	return &MongoTodoRepo{coll: coll}
}

// EnsureIndexes creates the due date index used by ListDueBetween.
func (r *MongoTodoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "dueDateUtc", Value: 1}},
		Options: options.Index().SetName("idx_todos_due_date_utc").SetSparse(true),
	})
	return err
}

func (r *MongoTodoRepo) Create(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	doc := fromDomain(t)
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return dom.Todo{}, err
	}
	return doc.toDomain(), nil
}

func (r *MongoTodoRepo) List(ctx context.Context) ([]dom.Todo, error) {
	return r.find(ctx, bson.D{})
}

func (r *MongoTodoRepo) ListDueBetween(ctx context.Context, from, to time.Time) ([]dom.Todo, error) {
	return r.find(ctx, dueBetweenFilter(from, to))
}

func (r *MongoTodoRepo) GetByID(ctx context.Context, id string) (dom.Todo, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return dom.Todo{}, err
	}
	var doc todoDocument
	err = r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	return docResult(doc, err)
}

func (r *MongoTodoRepo) Update(ctx context.Context, id string, patch dom.TodoPatch, updatedAt time.Time) (dom.Todo, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return dom.Todo{}, err
	}
	var doc todoDocument
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, updateDocument(patch, updatedAt), opts).Decode(&doc)
	return docResult(doc, err)
}

func (r *MongoTodoRepo) Delete(ctx context.Context, id string) (dom.Todo, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return dom.Todo{}, err
	}
	var doc todoDocument
	err = r.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	return docResult(doc, err)
}

func (r *MongoTodoRepo) find(ctx context.Context, filter bson.D) ([]dom.Todo, error) {
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var docs []todoDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	list := make([]dom.Todo, len(docs))
	for i := range docs {
		list[i] = docs[i].toDomain()
	}
	return list, nil
}

func dueBetweenFilter(from, to time.Time) bson.D {
	return bson.D{{Key: "dueDateUtc", Value: bson.D{
		{Key: "$gte", Value: from},
		{Key: "$lte", Value: to},
	}}}
}

// updateDocument builds a $set holding only the supplied fields plus updatedAtUtc.
func updateDocument(patch dom.TodoPatch, updatedAt time.Time) bson.D {
	set := bson.D{}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *patch.Description})
	}
	if patch.Category != nil {
		set = append(set, bson.E{Key: "category", Value: *patch.Category})
	}
	if patch.IsFinished != nil {
		set = append(set, bson.E{Key: "isFinished", Value: *patch.IsFinished})
	}
	if patch.DueDateUTC != nil {
		set = append(set, bson.E{Key: "dueDateUtc", Value: patch.DueDateUTC.UTC()})
	}
	set = append(set, bson.E{Key: "updatedAtUtc", Value: updatedAt})
	return bson.D{{Key: "$set", Value: set}}
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

func docResult(doc todoDocument, err error) (dom.Todo, error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return dom.Todo{}, ErrNotFound
	}
	if err != nil {
		return dom.Todo{}, err
	}
	return doc.toDomain(), nil
}

func fromDomain(t dom.Todo) todoDocument {
	return todoDocument{
		Title:        t.Title,
		Description:  t.Description,
		Category:     t.Category,
		IsFinished:   t.IsFinished,
		DueDateUTC:   t.DueDateUTC,
		CreatedAtUTC: t.CreatedAtUTC,
		UpdatedAtUTC: t.UpdatedAtUTC,
	}
}

func (d todoDocument) toDomain() dom.Todo {
	t := dom.Todo{
		ID:           d.ID.Hex(),
		Title:        d.Title,
		Description:  d.Description,
		Category:     d.Category,
		IsFinished:   d.IsFinished,
		CreatedAtUTC: d.CreatedAtUTC.UTC(),
		UpdatedAtUTC: d.UpdatedAtUTC.UTC(),
	}
	if d.DueDateUTC != nil {
		due := d.DueDateUTC.UTC()
		t.DueDateUTC = &due
	}
	return t
}
