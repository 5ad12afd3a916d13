package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/tours-service/internal/domain"
)

var ErrTourNotFound = errors.New("tour not found")

// TourRepository is the tours collection adapter. List/Count take the output
// of the query pipeline untouched.
type TourRepository interface {
	List(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Tour, error)
	Count(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id string) (*domain.Tour, error)
	Create(ctx context.Context, t *domain.Tour) error
	UpdateByID(ctx context.Context, id string, set bson.M) (*domain.Tour, error)
	DeleteByID(ctx context.Context, id string) error
	Stats(ctx context.Context) ([]domain.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error)
}

type mongoTourRepository struct {
	coll *mongo.Collection
}

func NewTourRepository(coll *mongo.Collection) TourRepository {
	return &mongoTourRepository{coll: coll}
}

func (r *mongoTourRepository) List(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Tour, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	tours := []domain.Tour{}
	if err := cur.All(ctx, &tours); err != nil {
		return nil, err
	}
	return tours, nil
}

func (r *mongoTourRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}

func (r *mongoTourRepository) GetByID(ctx context.Context, id string) (*domain.Tour, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrTourNotFound
	}
	var t domain.Tour
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTourNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *mongoTourRepository) Create(ctx context.Context, t *domain.Tour) error {
	t.CreatedAt = time.Now().UTC()
	res, err := r.coll.InsertOne(ctx, t)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		t.ID = oid
	}
	return nil
}

func (r *mongoTourRepository) UpdateByID(ctx context.Context, id string, set bson.M) (*domain.Tour, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrTourNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var t domain.Tour
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTourNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *mongoTourRepository) DeleteByID(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrTourNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrTourNotFound
	}
	return nil
}

// Stats groups well-rated tours by difficulty with rating and price
// aggregates, cheapest group first.
func (r *mongoTourRepository) Stats(ctx context.Context) ([]domain.TourStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"ratingsAverage": bson.M{"$gte": 4.5}}}},
		{{Key: "$group", Value: bson.M{
			"_id":        "$difficulty",
			"numTours":   bson.M{"$sum": 1},
			"numRatings": bson.M{"$sum": "$ratingsQuantity"},
			"avgRating":  bson.M{"$avg": "$ratingsAverage"},
			"avgPrice":   bson.M{"$avg": "$price"},
			"minPrice":   bson.M{"$min": "$price"},
			"maxPrice":   bson.M{"$max": "$price"},
		}}},
		{{Key: "$sort", Value: bson.M{"avgPrice": 1}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	stats := []domain.TourStats{}
	if err := cur.All(ctx, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// MonthlyPlan counts tour starts per month of the given year.
func (r *mongoTourRepository) MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)

	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$startDates"}},
		{{Key: "$match", Value: bson.M{
			"startDates": bson.M{"$gte": from, "$lte": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":           bson.M{"$month": "$startDates"},
			"numTourStarts": bson.M{"$sum": 1},
			"tours":         bson.M{"$push": "$name"},
		}}},
		{{Key: "$addFields", Value: bson.M{"month": "$_id"}}},
		{{Key: "$project", Value: bson.M{"_id": 0}}},
		{{Key: "$sort", Value: bson.M{"month": 1}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("monthly plan aggregate: %w", err)
	}
	defer cur.Close(ctx)

	plan := []domain.MonthlyPlanEntry{}
	if err := cur.All(ctx, &plan); err != nil {
		return nil, err
	}
	return plan, nil
}
