package tours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/natours-go/apperror"
)

func validTour() *Tour {
	return &Tour{
		Name:           "The Forest Hiker",
		Duration:       5,
		MaxGroupSize:   25,
		Difficulty:     DifficultyEasy,
		RatingsAverage: 4.7,
		Price:          397,
		Summary:        "Breathtaking hike through the Canadian Banff National Park",
		ImageCover:     "tour-1-cover.jpg",
	}
}

func TestTourValidateAccepts(t *testing.T) {
	assert.NoError(t, validTour().Validate())
}

func TestTourValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tour)
	}{
		{"name too short", func(tr *Tour) { tr.Name = "Hike" }},
		{"name too long", func(tr *Tour) {
			tr.Name = "This tour name is way way way too long to be accepted"
		}},
		{"missing name", func(tr *Tour) { tr.Name = "" }},
		{"zero duration", func(tr *Tour) { tr.Duration = 0 }},
		{"unknown difficulty", func(tr *Tour) { tr.Difficulty = "impossible" }},
		{"rating too low", func(tr *Tour) { tr.RatingsAverage = 0.5 }},
		{"rating too high", func(tr *Tour) { tr.RatingsAverage = 5.5 }},
		{"zero price", func(tr *Tour) { tr.Price = 0 }},
		{"missing summary", func(tr *Tour) { tr.Summary = "" }},
		{"missing cover image", func(tr *Tour) { tr.ImageCover = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tour := validTour()
			tt.mutate(tour)
			err := tour.Validate()
			require.Error(t, err)
			assert.True(t, apperror.IsValidationError(err))
		})
	}
}

func TestTourValidateDiscountBelowPrice(t *testing.T) {
	tour := validTour()

	ok := 100.0
	tour.PriceDiscount = &ok
	assert.NoError(t, tour.Validate())

	atPrice := tour.Price
	tour.PriceDiscount = &atPrice
	err := tour.Validate()
	require.Error(t, err)
	appErr, found := apperror.FromError(err)
	require.True(t, found)
	assert.Equal(t, "Invalid input data. Discount price should be below the regular price.", appErr.Message)
}

func TestDurationWeeks(t *testing.T) {
	tour := &Tour{Duration: 14}
	assert.Equal(t, 2.0, tour.DurationWeeks())
	tour.Duration = 10
	assert.InDelta(t, 1.4286, tour.DurationWeeks(), 0.001)
}

func TestSchemaHidesInternalColumnsByDefault(t *testing.T) {
	assert.NotContains(t, defaultListColumns, "secret_tour")
	// secretTour stays filterable so an explicit override can reveal it.
	_, ok := tourSchema["secretTour"]
	assert.True(t, ok)
}

func TestSelectExprsCastsNumericColumns(t *testing.T) {
	got := selectExprs("id, name, price, ratings_average")
	assert.Equal(t, "id, name, price::float8 AS price, ratings_average::float8 AS ratings_average", got)
}

func TestAPINameByColumnInvertsSchema(t *testing.T) {
	assert.Equal(t, "ratingsAverage", apiNameByColumn["ratings_average"])
	assert.Equal(t, "maxGroupSize", apiNameByColumn["max_group_size"])
	assert.Equal(t, "id", apiNameByColumn["id"])
}

func TestApplyCreateDefaults(t *testing.T) {
	tour := validTour()
	tour.RatingsAverage = 0
	tour.applyCreateDefaults()

	assert.Equal(t, 4.5, tour.RatingsAverage)
	// Slice fields must come out non-nil so they persist as empty arrays,
	// not NULL.
	assert.NotNil(t, tour.Images)
	assert.NotNil(t, tour.StartDates)
	assert.NotNil(t, tour.Locations)
	assert.Empty(t, tour.StartDates)
}

func TestApplyCreateDefaultsKeepsProvidedValues(t *testing.T) {
	dates := []time.Time{time.Date(2026, 6, 19, 0, 0, 0, 0, time.UTC)}
	tour := validTour()
	tour.StartDates = dates
	tour.applyCreateDefaults()

	assert.Equal(t, 4.7, tour.RatingsAverage)
	assert.Equal(t, dates, tour.StartDates)
}
