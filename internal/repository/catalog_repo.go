package repository

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go-polyglot-store/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const productsCollection = "products"

// CatalogFilter selects product documents. Specs maps an attribute name to
// its accepted values: OR within one attribute, AND across attributes.
type CatalogFilter struct {
	Search   string
	Category string
	Specs    map[string][]string
}

type CatalogRepository interface {
	// Insert stores the document and sets p.ID to the generated id.
	Insert(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id string) (*model.Product, error)
	// FindByIDs fetches all resolvable ids in one query; malformed ids are skipped.
	FindByIDs(ctx context.Context, ids []string) ([]model.Product, error)
	// Find returns one page ordered by creation time, newest first.
	Find(ctx context.Context, filter CatalogFilter, skip, limit int64) ([]model.Product, error)
	Count(ctx context.Context, filter CatalogFilter) (int64, error)
	// SetField applies a single-field $set patch.
	SetField(ctx context.Context, id, field string, value interface{}) error
	Delete(ctx context.Context, id string) error
	DistinctCategories(ctx context.Context) ([]string, error)
	// SpecValues returns, per attribute name, the distinct values found in the
	// category. Array values are unwound into their elements.
	SpecValues(ctx context.Context, category string) (map[string][]interface{}, error)
	CategoryBreakdown(ctx context.Context) ([]model.CategoryCount, error)
}

type catalogRepo struct {
	coll *mongo.Collection
}

func NewCatalogRepo(db *mongo.Database) CatalogRepository {
	return &catalogRepo{coll: db.Collection(productsCollection)}
}

// EnsureCatalogIndexes creates the indexes the listing and facet queries rely on.
func EnsureCatalogIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(productsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
	})
	return err
}

func (r *catalogRepo) Insert(ctx context.Context, p *model.Product) error {
	res, err := r.coll.InsertOne(ctx, p)
	if err != nil {
		return &model.StoreError{Op: "catalog.Insert", Err: err}
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return &model.StoreError{Op: "catalog.Insert", Err: errors.New("unexpected inserted id type")}
	}
	p.ID = oid
	return nil
}

func (r *catalogRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.ErrNotFound
	}

	var p model.Product
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, &model.StoreError{Op: "catalog.FindByID", ID: id, Err: err}
	}
	return &p, nil
}

func (r *catalogRepo) FindByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}

	products := []model.Product{}
	if len(oids) == 0 {
		return products, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, &model.StoreError{Op: "catalog.FindByIDs", Err: err}
	}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, &model.StoreError{Op: "catalog.FindByIDs", Err: err}
	}
	return products, nil
}

func (r *catalogRepo) Find(ctx context.Context, filter CatalogFilter, skip, limit int64) ([]model.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := r.coll.Find(ctx, BuildCatalogFilter(filter), opts)
	if err != nil {
		return nil, &model.StoreError{Op: "catalog.Find", Err: err}
	}

	products := []model.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, &model.StoreError{Op: "catalog.Find", Err: err}
	}
	return products, nil
}

func (r *catalogRepo) Count(ctx context.Context, filter CatalogFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, BuildCatalogFilter(filter))
	if err != nil {
		return 0, &model.StoreError{Op: "catalog.Count", Err: err}
	}
	return n, nil
}

func (r *catalogRepo) SetField(ctx context.Context, id, field string, value interface{}) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.ErrNotFound
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{field: value}})
	if err != nil {
		return &model.StoreError{Op: "catalog.SetField", ID: id, Err: err}
	}
	if res.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *catalogRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// nothing can be stored under a malformed id
		return nil
	}
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return &model.StoreError{Op: "catalog.Delete", ID: id, Err: err}
	}
	return nil
}

func (r *catalogRepo) DistinctCategories(ctx context.Context) ([]string, error) {
	values, err := r.coll.Distinct(ctx, "category", bson.D{})
	if err != nil {
		return nil, &model.StoreError{Op: "catalog.DistinctCategories", Err: err}
	}

	categories := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			categories = append(categories, s)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

func (r *catalogRepo) SpecValues(ctx context.Context, category string) (map[string][]interface{}, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "category", Value: category}}}},
		{{Key: "$project", Value: bson.D{{Key: "specs", Value: bson.D{{Key: "$objectToArray", Value: "$specs"}}}}}},
		{{Key: "$unwind", Value: "$specs"}},
		{{Key: "$unwind", Value: "$specs.v"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$specs.k"},
			{Key: "values", Value: bson.D{{Key: "$addToSet", Value: "$specs.v"}}},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, &model.StoreError{Op: "catalog.SpecValues", Err: err}
	}

	var groups []struct {
		Key    string        `bson:"_id"`
		Values []interface{} `bson:"values"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, &model.StoreError{Op: "catalog.SpecValues", Err: err}
	}

	out := make(map[string][]interface{}, len(groups))
	for _, g := range groups {
		out[g.Key] = g.Values
	}
	return out, nil
}

func (r *catalogRepo) CategoryBreakdown(ctx context.Context) ([]model.CategoryCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, &model.StoreError{Op: "catalog.CategoryBreakdown", Err: err}
	}

	breakdown := []model.CategoryCount{}
	if err := cursor.All(ctx, &breakdown); err != nil {
		return nil, &model.StoreError{Op: "catalog.CategoryBreakdown", Err: err}
	}
	return breakdown, nil
}

// BuildCatalogFilter translates a CatalogFilter into a Mongo query document.
func BuildCatalogFilter(f CatalogFilter) bson.M {
	filter := bson.M{}

	if search := strings.TrimSpace(f.Search); search != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	}

	if f.Category != "" {
		filter["category"] = f.Category
	}

	for attr, values := range f.Specs {
		if attr == "" || len(values) == 0 {
			continue
		}
		accepted := make([]interface{}, 0, len(values))
		for _, v := range values {
			accepted = append(accepted, specFilterValues(v)...)
		}
		filter["specs."+attr] = bson.M{"$in": accepted}
	}

	return filter
}

// specFilterValues expands a raw filter value into the typed forms it may be
// stored as. Seeded specs hold numbers and booleans, while filter values
// arrive as strings.
func specFilterValues(raw string) []interface{} {
	values := []interface{}{raw}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return append(values, i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return append(values, f)
	}
	if raw == "true" || raw == "false" {
		return append(values, raw == "true")
	}
	return values
}
