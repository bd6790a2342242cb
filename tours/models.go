// Package tours encapsulates the tour catalog: the Tour model with its
// validation rules, CRUD operations, the shaped list read, and the two
// aggregate reads (stats and monthly plan).
package tours

import (
	"time"

	"github.com/user/natours-go/apperror"
	"github.com/user/natours-go/validation"
)

// Tour difficulties.
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// Location is an embedded geo-located waypoint, stored as GeoJSON-shaped
// JSONB. Coordinates are longitude first, then latitude.
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
	Day         int       `json:"day,omitempty"`
}

// Tour is a catalog item. Validation rules mirror the database constraints;
// both layers reject the same inputs, the struct tags just fail first with
// friendlier messages.
type Tour struct {
	ID              int64       `json:"id"`
	Name            string      `json:"name" validate:"required,min=5,max=40"`
	Slug            string      `json:"slug"`
	Duration        int         `json:"duration" validate:"required,gt=0"`
	MaxGroupSize    int         `json:"maxGroupSize" validate:"required,gt=0"`
	Difficulty      string      `json:"difficulty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64     `json:"ratingsAverage" validate:"omitempty,gte=1,lte=5"`
	RatingsQuantity int         `json:"ratingsQuantity"`
	Price           float64     `json:"price" validate:"required,gt=0"`
	PriceDiscount   *float64    `json:"priceDiscount,omitempty"`
	Summary         string      `json:"summary" validate:"required"`
	Description     string      `json:"description,omitempty"`
	ImageCover      string      `json:"imageCover" validate:"required"`
	Images          []string    `json:"images"`
	StartDates      []time.Time `json:"startDates"`
	SecretTour      bool        `json:"secretTour"`
	StartLocation   *Location   `json:"startLocation,omitempty"`
	Locations       []Location  `json:"locations"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// DurationWeeks is the derived weeks representation of the duration.
func (t *Tour) DurationWeeks() float64 {
	return float64(t.Duration) / 7
}

// Validate enforces the model invariants that struct tags can express, plus
// the cross-field discount rule.
func (t *Tour) Validate() error {
	if err := validation.Struct(t); err != nil {
		return err
	}
	if t.PriceDiscount != nil && *t.PriceDiscount >= t.Price {
		return apperror.NewValidationError(
			"Invalid input data. Discount price should be below the regular price.", nil)
	}
	return nil
}

// applyCreateDefaults fills in what a create payload may omit. Slice fields
// become empty slices rather than nil, so they insert as empty arrays instead
// of NULL and trip none of the NOT NULL constraints.
func (t *Tour) applyCreateDefaults() {
	if t.RatingsAverage == 0 {
		t.RatingsAverage = 4.5
	}
	if t.Images == nil {
		t.Images = []string{}
	}
	if t.StartDates == nil {
		t.StartDates = []time.Time{}
	}
	if t.Locations == nil {
		t.Locations = []Location{}
	}
}

// UpdateTourRequest carries a partial update. Pointer fields distinguish
// "leave unchanged" (nil) from an explicit new value; each provided value is
// validated on its own, and cross-field rules are enforced by the store
// constraints.
type UpdateTourRequest struct {
	Name           *string      `json:"name" validate:"omitempty,min=5,max=40"`
	Duration       *int         `json:"duration" validate:"omitempty,gt=0"`
	MaxGroupSize   *int         `json:"maxGroupSize" validate:"omitempty,gt=0"`
	Difficulty     *string      `json:"difficulty" validate:"omitempty,oneof=easy medium difficult"`
	RatingsAverage *float64     `json:"ratingsAverage" validate:"omitempty,gte=1,lte=5"`
	Price          *float64     `json:"price" validate:"omitempty,gt=0"`
	PriceDiscount  *float64     `json:"priceDiscount"`
	Summary        *string      `json:"summary"`
	Description    *string      `json:"description"`
	ImageCover     *string      `json:"imageCover"`
	Images         *[]string    `json:"images"`
	StartDates     *[]time.Time `json:"startDates"`
	SecretTour     *bool        `json:"secretTour"`
	StartLocation  *Location    `json:"startLocation"`
	Locations      *[]Location  `json:"locations"`
}

// TourStats is one per-difficulty aggregation row.
type TourStats struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int64   `json:"numTours"`
	NumRatings int64   `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// MonthlyPlanEntry is one month of the yearly tour-start plan.
type MonthlyPlanEntry struct {
	Month         int      `json:"month"`
	NumTourStarts int64    `json:"numTourStarts"`
	Tours         []string `json:"tours"`
}
