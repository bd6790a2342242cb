package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/natours-go/apperror"
)

var testSchema = Schema{
	"id":             {Column: "id", Kind: KindInt},
	"name":           {Column: "name", Kind: KindString},
	"duration":       {Column: "duration", Kind: KindInt},
	"difficulty":     {Column: "difficulty", Kind: KindString},
	"ratingsAverage": {Column: "ratings_average", Kind: KindFloat},
	"price":          {Column: "price", Kind: KindFloat},
	"secretTour":     {Column: "secret_tour", Kind: KindBool},
	"createdAt":      {Column: "created_at", Kind: KindTime},
}

func parse(t *testing.T, rawQuery string) *Options {
	t.Helper()
	values, err := url.ParseQuery(rawQuery)
	require.NoError(t, err)
	opts, err := Parse(values, testSchema)
	require.NoError(t, err)
	return opts
}

func parseErr(t *testing.T, rawQuery string) error {
	t.Helper()
	values, err := url.ParseQuery(rawQuery)
	require.NoError(t, err)
	_, err = Parse(values, testSchema)
	require.Error(t, err)
	return err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	appErr, ok := apperror.FromError(err)
	require.True(t, ok)
	return appErr.StatusCode()
}

func TestParseEqualityFilter(t *testing.T) {
	opts := parse(t, "difficulty=easy")
	require.Len(t, opts.Filters, 1)
	assert.Equal(t, Filter{Column: "difficulty", Op: OpEq, Value: "easy"}, opts.Filters[0])
}

func TestParseOperatorSuffixes(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		want     Filter
	}{
		{"gte", "price[gte]=100", Filter{Column: "price", Op: OpGte, Value: 100.0}},
		{"gt", "price[gt]=100", Filter{Column: "price", Op: OpGt, Value: 100.0}},
		{"lte", "duration[lte]=10", Filter{Column: "duration", Op: OpLte, Value: int64(10)}},
		{"lt", "duration[lt]=10", Filter{Column: "duration", Op: OpLt, Value: int64(10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := parse(t, tt.rawQuery)
			require.Len(t, opts.Filters, 1)
			assert.Equal(t, tt.want, opts.Filters[0])
		})
	}
}

func TestParseCombinedFilterAndControls(t *testing.T) {
	opts := parse(t, "duration[gte]=5&difficulty=easy&sort=price&fields=name,price&page=2&limit=10")

	require.Len(t, opts.Filters, 2)
	// Deterministic parse order: keys are handled sorted.
	assert.Equal(t, "difficulty", opts.Filters[0].Column)
	assert.Equal(t, "duration", opts.Filters[1].Column)
	assert.Equal(t, OpGte, opts.Filters[1].Op)

	require.Len(t, opts.Sort, 1)
	assert.Equal(t, SortField{Column: "price", Desc: false}, opts.Sort[0])
	assert.Equal(t, []string{"name", "price"}, opts.Fields)
	assert.Equal(t, 2, opts.Page)
	assert.Equal(t, 10, opts.Limit)
	assert.True(t, opts.PageRequested)
}

func TestParseUnknownFilterFieldRejected(t *testing.T) {
	err := parseErr(t, "sneaky=1")
	assert.Equal(t, 400, statusOf(t, err))
}

func TestParseUnknownOperatorRejected(t *testing.T) {
	err := parseErr(t, "price[between]=1")
	assert.Equal(t, 400, statusOf(t, err))
}

func TestParseBadValueForTypedFieldRejected(t *testing.T) {
	err := parseErr(t, "price[gte]=cheap")
	assert.Equal(t, 400, statusOf(t, err))
}

func TestParseSortDescending(t *testing.T) {
	opts := parse(t, "sort=-price,ratingsAverage")
	require.Len(t, opts.Sort, 2)
	assert.Equal(t, SortField{Column: "price", Desc: true}, opts.Sort[0])
	assert.Equal(t, SortField{Column: "ratings_average", Desc: false}, opts.Sort[1])
}

func TestParseSortUnknownFieldRejected(t *testing.T) {
	err := parseErr(t, "sort=-evil")
	assert.Equal(t, 400, statusOf(t, err))
}

func TestParseFieldsUnknownFieldRejected(t *testing.T) {
	err := parseErr(t, "fields=name,evil")
	assert.Equal(t, 400, statusOf(t, err))
}

func TestParsePaginationDefaults(t *testing.T) {
	opts := parse(t, "")
	assert.Equal(t, DefaultPage, opts.Page)
	assert.Equal(t, DefaultLimit, opts.Limit)
	assert.False(t, opts.PageRequested)
}

func TestParsePaginationStrict(t *testing.T) {
	for _, rawQuery := range []string{
		"page=abc", "page=0", "page=-1", "limit=xyz", "limit=0",
	} {
		t.Run(rawQuery, func(t *testing.T) {
			err := parseErr(t, rawQuery)
			assert.Equal(t, 400, statusOf(t, err))
		})
	}
}

func TestWhereClausePlaceholders(t *testing.T) {
	opts := parse(t, "difficulty=easy&price[lt]=500")
	where, args := opts.WhereClause()
	assert.Equal(t, "WHERE difficulty = $1 AND price < $2", where)
	assert.Equal(t, []any{"easy", 500.0}, args)
}

func TestWhereClauseEmpty(t *testing.T) {
	opts := parse(t, "")
	where, args := opts.WhereClause()
	assert.Empty(t, where)
	assert.Nil(t, args)
}

func TestAddFilterAfterParse(t *testing.T) {
	opts := parse(t, "price[gte]=100")
	assert.False(t, opts.HasFilter("secret_tour"))
	opts.AddFilter("secret_tour", OpEq, false)
	assert.True(t, opts.HasFilter("secret_tour"))

	where, args := opts.WhereClause()
	assert.Equal(t, "WHERE price >= $1 AND secret_tour = $2", where)
	assert.Equal(t, []any{100.0, false}, args)
}

func TestHasFilterSeesClientFilter(t *testing.T) {
	opts := parse(t, "secretTour=true")
	assert.True(t, opts.HasFilter("secret_tour"))
	require.Len(t, opts.Filters, 1)
	assert.Equal(t, true, opts.Filters[0].Value)
}

func TestSelectClauseDefault(t *testing.T) {
	opts := parse(t, "")
	assert.Equal(t, "id, name, price", opts.SelectClause([]string{"id", "name", "price"}))
}

func TestSelectClauseProjectionAlwaysIncludesID(t *testing.T) {
	opts := parse(t, "fields=name,price")
	assert.Equal(t, "id, name, price", opts.SelectClause([]string{"id", "name", "price", "duration"}))
}

func TestSelectClauseProjectionKeepsExplicitID(t *testing.T) {
	opts := parse(t, "fields=id,name")
	assert.Equal(t, "id, name", opts.SelectClause([]string{"id", "name", "price"}))
}

func TestOrderByClauseDefault(t *testing.T) {
	opts := parse(t, "")
	assert.Equal(t, "ORDER BY created_at DESC, id DESC", opts.OrderByClause())
}

func TestOrderByClauseExplicit(t *testing.T) {
	opts := parse(t, "sort=-price,name")
	assert.Equal(t, "ORDER BY price DESC, name ASC", opts.OrderByClause())
}

func TestLimitOffsetClause(t *testing.T) {
	opts := parse(t, "page=3&limit=10")
	assert.Equal(t, 20, opts.Skip())
	assert.Equal(t, "LIMIT 10 OFFSET 20", opts.LimitOffsetClause())
}

func TestCheckPageExists(t *testing.T) {
	opts := parse(t, "page=4&limit=10")

	assert.NoError(t, opts.CheckPageExists(31))

	err := opts.CheckPageExists(30)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	appErr, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, "This page does not exist", appErr.Message)
}

func TestCheckPageExistsImplicitPageNeverFails(t *testing.T) {
	opts := parse(t, "limit=10")
	assert.NoError(t, opts.CheckPageExists(0))
}
