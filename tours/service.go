package tours

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/natours-go/apperror"
	"github.com/user/natours-go/query"
	"github.com/user/natours-go/validation"
)

// Schema exposed to the query shaper: API field name -> column and kind.
// Everything a client may filter, sort or project on must be listed here.
var tourSchema = query.Schema{
	"id":              {Column: "id", Kind: query.KindInt},
	"name":            {Column: "name", Kind: query.KindString},
	"slug":            {Column: "slug", Kind: query.KindString},
	"duration":        {Column: "duration", Kind: query.KindInt},
	"maxGroupSize":    {Column: "max_group_size", Kind: query.KindInt},
	"difficulty":      {Column: "difficulty", Kind: query.KindString},
	"ratingsAverage":  {Column: "ratings_average", Kind: query.KindFloat},
	"ratingsQuantity": {Column: "ratings_quantity", Kind: query.KindInt},
	"price":           {Column: "price", Kind: query.KindFloat},
	"priceDiscount":   {Column: "price_discount", Kind: query.KindFloat},
	"summary":         {Column: "summary", Kind: query.KindString},
	"imageCover":      {Column: "image_cover", Kind: query.KindString},
	"createdAt":       {Column: "created_at", Kind: query.KindTime},
	"secretTour":      {Column: "secret_tour", Kind: query.KindBool},
}

// Default projection for list reads. The secret_tour bookkeeping flag is
// deliberately absent; it only appears when a client projects it explicitly.
var defaultListColumns = []string{
	"id", "name", "slug", "duration", "max_group_size", "difficulty",
	"ratings_average", "ratings_quantity", "price", "price_discount",
	"summary", "image_cover", "created_at",
}

// tourColumns is the full column list used when reading a single Tour.
const tourColumns = `id, name, slug, duration, max_group_size, difficulty,
	ratings_average::float8, ratings_quantity, price::float8,
	price_discount::float8, summary, description, image_cover, images,
	start_dates, secret_tour, start_location, locations, created_at`

// Service implements the tour catalog operations on top of the store.
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a tour Service.
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// List runs a shaped list read. Rows come back as generic field maps keyed
// by API field names, because an explicit projection yields partial
// documents that no fixed struct can represent.
func (s *Service) List(ctx context.Context, params url.Values) ([]map[string]any, error) {
	opts, err := query.Parse(params, tourSchema)
	if err != nil {
		return nil, err
	}

	// Secret tours are hidden from every read unless the caller filtered on
	// the flag explicitly. This replaces the original's hidden pre-find hook
	// with a visible default filter.
	if !opts.HasFilter("secret_tour") {
		opts.AddFilter("secret_tour", query.OpEq, false)
	}

	where, args := opts.WhereClause()

	// The explicit-page contract needs the total matching count.
	if opts.PageRequested {
		var total int64
		countSQL := strings.TrimSpace("SELECT count(*) FROM tours " + where)
		if err := s.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
			return nil, apperror.NewDatabaseError("failed to count tours", err)
		}
		if err := opts.CheckPageExists(total); err != nil {
			return nil, err
		}
	}

	columns := opts.SelectClause(defaultListColumns)
	sql := fmt.Sprintf("SELECT %s FROM tours %s %s %s",
		selectExprs(columns), where, opts.OrderByClause(), opts.LimitOffsetClause())

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list tours", err)
	}
	defer rows.Close()

	results, err := rowsToMaps(rows)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to read tour rows", err)
	}
	return results, nil
}

// GetByID reads one tour. A miss is always a 404, never a 200 with null.
func (s *Service) GetByID(ctx context.Context, id int64) (*Tour, error) {
	row := s.db.QueryRow(ctx, "SELECT "+tourColumns+" FROM tours WHERE id = $1 AND NOT secret_tour", id)
	tour, err := scanTour(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("No tour found with that ID", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get tour", err)
	}
	return tour, nil
}

// Create validates and persists a new tour. The slug is derived from the
// name here, explicitly, rather than in a hidden pre-save hook.
func (s *Service) Create(ctx context.Context, tour *Tour) (*Tour, error) {
	tour.applyCreateDefaults()
	if err := tour.Validate(); err != nil {
		return nil, err
	}
	tour.Slug = slug.Make(tour.Name)

	err := s.db.QueryRow(ctx,
		`INSERT INTO tours (name, slug, duration, max_group_size, difficulty,
		                    ratings_average, price, price_discount, summary,
		                    description, image_cover, images, start_dates,
		                    secret_tour, start_location, locations)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING id, ratings_quantity, created_at`,
		tour.Name, tour.Slug, tour.Duration, tour.MaxGroupSize, tour.Difficulty,
		tour.RatingsAverage, tour.Price, tour.PriceDiscount, tour.Summary,
		tour.Description, tour.ImageCover, tour.Images, tour.StartDates,
		tour.SecretTour, tour.StartLocation, tour.Locations).
		Scan(&tour.ID, &tour.RatingsQuantity, &tour.CreatedAt)
	if err != nil {
		// Unique name conflicts and constraint rejections are translated by
		// the responder; no special casing needed here.
		return nil, err
	}
	return tour, nil
}

// Update applies a partial update. Only provided fields enter the SET
// clause; a name change re-derives the slug.
func (s *Service) Update(ctx context.Context, id int64, req *UpdateTourRequest) (*Tour, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var setClauses []string
	var args []any
	argID := 1

	set := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, value)
		argID++
	}

	if req.Name != nil {
		set("name", *req.Name)
		set("slug", slug.Make(*req.Name))
	}
	if req.Duration != nil {
		set("duration", *req.Duration)
	}
	if req.MaxGroupSize != nil {
		set("max_group_size", *req.MaxGroupSize)
	}
	if req.Difficulty != nil {
		set("difficulty", *req.Difficulty)
	}
	if req.RatingsAverage != nil {
		set("ratings_average", *req.RatingsAverage)
	}
	if req.Price != nil {
		set("price", *req.Price)
	}
	if req.PriceDiscount != nil {
		set("price_discount", *req.PriceDiscount)
	}
	if req.Summary != nil {
		set("summary", *req.Summary)
	}
	if req.Description != nil {
		set("description", *req.Description)
	}
	if req.ImageCover != nil {
		set("image_cover", *req.ImageCover)
	}
	if req.Images != nil {
		set("images", *req.Images)
	}
	if req.StartDates != nil {
		set("start_dates", *req.StartDates)
	}
	if req.SecretTour != nil {
		set("secret_tour", *req.SecretTour)
	}
	if req.StartLocation != nil {
		set("start_location", req.StartLocation)
	}
	if req.Locations != nil {
		set("locations", *req.Locations)
	}

	if len(setClauses) == 0 {
		return s.GetByID(ctx, id)
	}

	args = append(args, id)
	sql := fmt.Sprintf("UPDATE tours SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), argID, tourColumns)

	tour, err := scanTour(s.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("No tour found with that ID", nil)
		}
		// Constraint violations surface here on update (e.g. a discount set
		// at or above the price); the responder translates them.
		return nil, err
	}
	return tour, nil
}

// Delete removes a tour by id; a miss is a 404.
func (s *Service) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM tours WHERE id = $1`, id)
	if err != nil {
		return apperror.NewDatabaseError("failed to delete tour", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError("No tour found with that ID", nil)
	}
	return nil
}

// Stats aggregates the catalog per difficulty over well-rated tours.
func (s *Service) Stats(ctx context.Context) ([]TourStats, error) {
	rows, err := s.db.Query(ctx,
		`SELECT difficulty,
		        count(*)                    AS num_tours,
		        sum(ratings_quantity)       AS num_ratings,
		        avg(ratings_average)::float8 AS avg_rating,
		        avg(price)::float8          AS avg_price,
		        min(price)::float8          AS min_price,
		        max(price)::float8          AS max_price
		 FROM tours
		 WHERE ratings_average >= 4.5 AND NOT secret_tour
		 GROUP BY difficulty
		 ORDER BY avg_price`)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to aggregate tour stats", err)
	}
	defer rows.Close()

	var stats []TourStats
	for rows.Next() {
		var st TourStats
		if err := rows.Scan(&st.Difficulty, &st.NumTours, &st.NumRatings,
			&st.AvgRating, &st.AvgPrice, &st.MinPrice, &st.MaxPrice); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan tour stats", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read tour stats", err)
	}
	return stats, nil
}

// MonthlyPlan counts tour starts per month of the given year, busiest month
// first.
func (s *Service) MonthlyPlan(ctx context.Context, year int) ([]MonthlyPlanEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT extract(month FROM d)::int AS month,
		        count(*)                  AS num_tour_starts,
		        array_agg(name)           AS tours
		 FROM tours, unnest(start_dates) AS d
		 WHERE d >= make_timestamptz($1, 1, 1, 0, 0, 0)
		   AND d < make_timestamptz($2, 1, 1, 0, 0, 0)
		   AND NOT secret_tour
		 GROUP BY month
		 ORDER BY num_tour_starts DESC, month ASC
		 LIMIT 12`,
		year, year+1)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to aggregate monthly plan", err)
	}
	defer rows.Close()

	var plan []MonthlyPlanEntry
	for rows.Next() {
		var entry MonthlyPlanEntry
		if err := rows.Scan(&entry.Month, &entry.NumTourStarts, &entry.Tours); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan monthly plan", err)
		}
		plan = append(plan, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read monthly plan", err)
	}
	return plan, nil
}

// scanTour reads one full tour row in tourColumns order.
func scanTour(row pgx.Row) (*Tour, error) {
	var t Tour
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Duration, &t.MaxGroupSize,
		&t.Difficulty, &t.RatingsAverage, &t.RatingsQuantity, &t.Price,
		&t.PriceDiscount, &t.Summary, &t.Description, &t.ImageCover,
		&t.Images, &t.StartDates, &t.SecretTour, &t.StartLocation,
		&t.Locations, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// apiNameByColumn inverts the schema for rendering list rows with their
// exposed API field names.
var apiNameByColumn = func() map[string]string {
	m := make(map[string]string, len(tourSchema))
	for name, field := range tourSchema {
		m[field.Column] = name
	}
	return m
}()

// numericColumns are cast to float8 in list selects so they come back as
// plain floats rather than arbitrary-precision values.
var numericColumns = map[string]bool{
	"ratings_average": true,
	"price":           true,
	"price_discount":  true,
}

// selectExprs rewrites a comma-joined column list into select expressions,
// casting numeric columns.
func selectExprs(columns string) string {
	parts := strings.Split(columns, ", ")
	for i, col := range parts {
		if numericColumns[col] {
			parts[i] = fmt.Sprintf("%s::float8 AS %s", col, col)
		}
	}
	return strings.Join(parts, ", ")
}

// rowsToMaps renders generic rows as field maps keyed by API names.
func rowsToMaps(rows pgx.Rows) ([]map[string]any, error) {
	fields := rows.FieldDescriptions()
	results := []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		doc := make(map[string]any, len(fields))
		for i, fd := range fields {
			name := fd.Name
			if api, ok := apiNameByColumn[name]; ok {
				name = api
			}
			doc[name] = values[i]
		}
		results = append(results, doc)
	}
	return results, rows.Err()
}
