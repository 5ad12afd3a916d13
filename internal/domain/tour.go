package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tour is the primary query target of the listing pipeline. Field bson names
// are the names clients use in filter/sort/fields query parameters.
type Tour struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Duration        int                `bson:"duration,omitempty" json:"duration,omitempty"`
	MaxGroupSize    int                `bson:"maxGroupSize,omitempty" json:"max_group_size,omitempty"`
	Difficulty      string             `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
	RatingsAverage  float64            `bson:"ratingsAverage,omitempty" json:"ratings_average,omitempty"`
	RatingsQuantity int                `bson:"ratingsQuantity,omitempty" json:"ratings_quantity,omitempty"`
	Price           float64            `bson:"price,omitempty" json:"price,omitempty"`
	Summary         string             `bson:"summary,omitempty" json:"summary,omitempty"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	StartDates      []time.Time        `bson:"startDates,omitempty" json:"start_dates,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"created_at"`
}

// TourStats is one group of the per-difficulty stats aggregation.
type TourStats struct {
	Difficulty string  `bson:"_id" json:"difficulty"`
	NumTours   int     `bson:"numTours" json:"num_tours"`
	NumRatings int     `bson:"numRatings" json:"num_ratings"`
	AvgRating  float64 `bson:"avgRating" json:"avg_rating"`
	AvgPrice   float64 `bson:"avgPrice" json:"avg_price"`
	MinPrice   float64 `bson:"minPrice" json:"min_price"`
	MaxPrice   float64 `bson:"maxPrice" json:"max_price"`
}

// MonthlyPlanEntry is one month of the starts-per-month aggregation.
type MonthlyPlanEntry struct {
	Month         int      `bson:"month" json:"month"`
	NumTourStarts int      `bson:"numTourStarts" json:"num_tour_starts"`
	Tours         []string `bson:"tours" json:"tours"`
}
