package apperror

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respond(t *testing.T, dev bool, err error) (*httptest.ResponseRecorder, ErrorResponse, *bytes.Buffer) {
	t.Helper()
	var logBuf bytes.Buffer
	rs := NewResponder(dev, log.New(&logBuf, "", 0))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tours/1", nil)
	rs.Write(rec, req, err)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body, &logBuf
}

func TestWriteOperationalErrorInProduction(t *testing.T) {
	rec, body, logBuf := respond(t, false, NewNotFoundError("No tour found with that ID", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "fail", body.Status)
	assert.Equal(t, "No tour found with that ID", body.Message)
	assert.Empty(t, body.Error)
	assert.Empty(t, logBuf.String())
}

func TestWriteNonOperationalErrorInProduction(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	rec, body, logBuf := respond(t, false, NewDatabaseError("failed to list tours", cause))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "Something went very wrong!", body.Message)
	assert.Empty(t, body.Error)
	// The real cause is logged server-side, never sent to the client.
	assert.Contains(t, logBuf.String(), "connection refused")
}

func TestWriteEchoesCauseInDevelopment(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	rec, body, _ := respond(t, true, NewDatabaseError("failed to list tours", cause))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "failed to list tours", body.Message)
	assert.Contains(t, body.Error, "connection refused")
}

func TestWriteUnrecognizedErrorCollapses(t *testing.T) {
	rec, body, _ := respond(t, false, errors.New("surprise"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "Something went very wrong!", body.Message)
}

func TestTranslateNoRows(t *testing.T) {
	appErr := translateStoreError(pgx.ErrNoRows)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode())
	assert.Equal(t, "No document found with that ID", appErr.Message)
}

func TestTranslateUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:   "23505",
		Detail: "Key (name)=(The Forest Hiker) already exists.",
	}
	appErr := translateStoreError(pgErr)
	assert.Equal(t, http.StatusConflict, appErr.StatusCode())
	assert.Equal(t, "Duplicate field value: The Forest Hiker. Please use another value!", appErr.Message)
	assert.True(t, appErr.IsOperational())
}

func TestTranslateCheckViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23514",
		ConstraintName: "tours_difficulty_check",
	}
	appErr := translateStoreError(pgErr)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode())
	assert.Equal(t, "Invalid input data. tours difficulty was rejected", appErr.Message)
}

func TestTranslateInvalidTextRepresentation(t *testing.T) {
	appErr := translateStoreError(&pgconn.PgError{Code: "22P02"})
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode())
	assert.Equal(t, "Invalid id supplied", appErr.Message)
}

func TestTranslateUnknownErrorIsNonOperational(t *testing.T) {
	appErr := translateStoreError(errors.New("surprise"))
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode())
	assert.False(t, appErr.IsOperational())
}
