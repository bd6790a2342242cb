// The Responder is the single terminal error handler of the API. Every
// handler and middleware forwards failures here instead of formatting
// responses itself, which keeps the error contract in one place.
package apperror

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes recognized as client-caused failures.
const (
	pgUniqueViolation  = "23505" // duplicate value for a unique column
	pgCheckViolation   = "23514" // CHECK constraint rejected the row
	pgNotNullViolation = "23502"
	pgInvalidTextRep   = "22P02" // e.g. a non-numeric id cast to integer
)

// ErrorResponse is the JSON payload sent for any failed request.
// The status field follows the envelope convention: "fail" for client
// errors, "error" for server errors.
type ErrorResponse struct {
	Status  string `json:"status" example:"fail"`
	Message string `json:"message" example:"A description of the error"`
	// Error carries the raw wrapped cause. Populated only in development
	// mode; omitted entirely in production.
	Error string `json:"error,omitempty"`
}

// Responder formats errors into HTTP responses. Verbosity depends on the
// deployment mode: development echoes the raw cause for debugging,
// production returns only stable operational messages and hides everything
// else behind a generic 500.
type Responder struct {
	dev    bool
	logger *log.Logger
}

// NewResponder creates a Responder. dev selects the verbose development
// behavior. A nil logger falls back to the standard logger.
func NewResponder(dev bool, logger *log.Logger) *Responder {
	if logger == nil {
		logger = log.Default()
	}
	return &Responder{dev: dev, logger: logger}
}

// Write normalizes err and writes the error response. Unrecognized errors
// default to a 500 with status "error".
func (rs *Responder) Write(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := FromError(err)
	if !ok {
		appErr = translateStoreError(err)
	}

	if rs.dev {
		rs.writeJSON(w, appErr.StatusCode(), ErrorResponse{
			Status:  appErr.Status(),
			Message: appErr.Message,
			Error:   appErr.Error(),
		})
		return
	}

	// Production: operational errors keep their message, everything else is
	// logged server-side and collapsed into a generic response.
	if appErr.IsOperational() {
		rs.writeJSON(w, appErr.StatusCode(), ErrorResponse{
			Status:  appErr.Status(),
			Message: appErr.Message,
		})
		return
	}

	rs.logger.Printf("ERROR %s %s: %v", r.Method, r.URL.Path, appErr)
	rs.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Status:  "error",
		Message: "Something went very wrong!",
	})
}

func (rs *Responder) writeJSON(w http.ResponseWriter, status int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		rs.logger.Printf("failed to encode error response: %v", err)
	}
}

// detailValueRe pulls the offending value out of a Postgres unique-violation
// detail string, e.g. `Key (name)=(The Forest Hiker) already exists.`.
var detailValueRe = regexp.MustCompile(`\)=\((.*)\)`)

// translateStoreError rewrites recognized store-level failure shapes into
// operational errors with tailored messages, mirroring the classic
// cast/duplicate/validation translation of document-store backends. Anything
// unrecognized becomes an unexpected InternalError.
func translateStoreError(err error) *AppError {
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFoundError("No document found with that ID", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			value := ""
			if m := detailValueRe.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
				value = m[1]
			}
			return NewConflictError(
				"Duplicate field value: "+value+". Please use another value!", err)
		case pgCheckViolation, pgNotNullViolation:
			return NewValidationError(
				"Invalid input data. "+constraintMessage(pgErr.ConstraintName), err)
		case pgInvalidTextRep:
			return NewBadRequestError("Invalid id supplied", err)
		}
	}

	return NewInternalError("an unexpected error occurred", err)
}

// constraintMessage turns a CHECK constraint name into a readable message.
// Constraint names in the migrations are chosen so that this stays useful
// (e.g. tours_difficulty_check, tours_price_discount_check).
func constraintMessage(name string) string {
	if name == "" {
		return "a field value was rejected"
	}
	msg := strings.TrimSuffix(name, "_check")
	msg = strings.ReplaceAll(msg, "_", " ")
	return msg + " was rejected"
}
