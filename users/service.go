// Account self-service and administrative user management. Credential
// changes are deliberately out of scope here; they live in the auth
// package so password handling stays in one place.
package users

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/natours-go/apperror"
	"github.com/user/natours-go/auth"
	"github.com/user/natours-go/query"
	"github.com/user/natours-go/validation"
)

var userSchema = query.Schema{
	"id":        {Column: "id", Kind: query.KindInt},
	"name":      {Column: "name", Kind: query.KindString},
	"email":     {Column: "email", Kind: query.KindString},
	"role":      {Column: "role", Kind: query.KindString},
	"active":    {Column: "active", Kind: query.KindBool},
	"createdAt": {Column: "created_at", Kind: query.KindTime},
}

var defaultListColumns = []string{"id", "name", "email", "photo", "role", "created_at"}

const userColumns = `id, name, email, photo, role, active, created_at`

// UpdateMeRequest carries the fields an account owner may change. The
// password fields are decoded only so their presence can be rejected with
// a pointer at the dedicated password route.
type UpdateMeRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=1"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Photo           *string `json:"photo"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"passwordConfirm"`
}

// assignments lists the column writes this request asks for. The email is
// stored lowercased; credential lookups normalize the same way, so anything
// else stored here would lock the account out of login.
func (req *UpdateMeRequest) assignments() (columns []string, values []any) {
	if req.Name != nil {
		columns = append(columns, "name")
		values = append(values, *req.Name)
	}
	if req.Email != nil {
		columns = append(columns, "email")
		values = append(values, strings.ToLower(*req.Email))
	}
	if req.Photo != nil {
		columns = append(columns, "photo")
		values = append(values, *req.Photo)
	}
	return columns, values
}

// UpdateUserRequest carries the fields an administrator may change.
type UpdateUserRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Role   *string `json:"role" validate:"omitempty,oneof=user guide lead-guide admin"`
	Active *bool   `json:"active"`
}

// assignments lists the column writes this request asks for, with the same
// email normalization as the self-service path.
func (req *UpdateUserRequest) assignments() (columns []string, values []any) {
	if req.Name != nil {
		columns = append(columns, "name")
		values = append(values, *req.Name)
	}
	if req.Email != nil {
		columns = append(columns, "email")
		values = append(values, strings.ToLower(*req.Email))
	}
	if req.Role != nil {
		columns = append(columns, "role")
		values = append(values, *req.Role)
	}
	if req.Active != nil {
		columns = append(columns, "active")
		values = append(values, *req.Active)
	}
	return columns, values
}

// Service implements user reads and profile updates on top of the store.
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a user Service.
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// List runs a shaped listing over active accounts.
func (s *Service) List(ctx context.Context, params url.Values) ([]map[string]any, error) {
	opts, err := query.Parse(params, userSchema)
	if err != nil {
		return nil, err
	}
	if !opts.HasFilter("active") {
		opts.AddFilter("active", query.OpEq, true)
	}

	where, args := opts.WhereClause()

	if opts.PageRequested {
		var total int64
		countSQL := strings.TrimSpace("SELECT count(*) FROM users " + where)
		if err := s.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
			return nil, apperror.NewDatabaseError("failed to count users", err)
		}
		if err := opts.CheckPageExists(total); err != nil {
			return nil, err
		}
	}

	sql := fmt.Sprintf("SELECT %s FROM users %s %s %s",
		opts.SelectClause(defaultListColumns), where,
		opts.OrderByClause(), opts.LimitOffsetClause())

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list users", err)
	}
	defer rows.Close()

	results, err := rowsToMaps(rows)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to read user rows", err)
	}
	return results, nil
}

// GetByID reads one active user; a miss is a 404.
func (s *Service) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	user, err := scanUser(s.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1 AND active", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("No user found with that ID", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get user", err)
	}
	return user, nil
}

// UpdateMe applies an account owner's profile change. Attempting a
// password change here is a 400 that points at the password route.
func (s *Service) UpdateMe(ctx context.Context, userID int64, req *UpdateMeRequest) (*auth.User, error) {
	if req.Password != nil || req.PasswordConfirm != nil {
		return nil, apperror.NewBadRequestError(
			"This route is not for password updates. Please use /updateMyPassword.", nil)
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	columns, args := req.assignments()
	if len(columns) == 0 {
		return s.GetByID(ctx, userID)
	}
	setClauses := make([]string, len(columns))
	for i, column := range columns {
		setClauses[i] = fmt.Sprintf("%s = $%d", column, i+1)
	}

	args = append(args, userID)
	sql := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d AND active RETURNING %s",
		strings.Join(setClauses, ", "), len(args), userColumns)

	user, err := scanUser(s.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("No user found with that ID", nil)
		}
		// A duplicate email surfaces as a unique violation; the responder
		// translates it to a 409.
		return nil, err
	}
	return user, nil
}

// DeactivateMe soft-deletes the caller's account. The row stays; listings
// and logins stop seeing it.
func (s *Service) DeactivateMe(ctx context.Context, userID int64) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET active = FALSE WHERE id = $1`, userID)
	if err != nil {
		return apperror.NewDatabaseError("failed to deactivate user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError("No user found with that ID", nil)
	}
	return nil
}

// Update applies an administrative change to any account.
func (s *Service) Update(ctx context.Context, id int64, req *UpdateUserRequest) (*auth.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	columns, args := req.assignments()
	if len(columns) == 0 {
		return s.GetByID(ctx, id)
	}
	setClauses := make([]string, len(columns))
	for i, column := range columns {
		setClauses[i] = fmt.Sprintf("%s = $%d", column, i+1)
	}

	args = append(args, id)
	sql := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), len(args), userColumns)

	user, err := scanUser(s.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("No user found with that ID", nil)
		}
		return nil, err
	}
	return user, nil
}

// Delete hard-deletes an account. Administrative use only; account owners
// get the soft deactivation instead.
func (s *Service) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperror.NewDatabaseError("failed to delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError("No user found with that ID", nil)
	}
	return nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Photo, &u.Role, &u.Active, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

var apiNameByColumn = func() map[string]string {
	m := make(map[string]string, len(userSchema))
	for name, field := range userSchema {
		m[field.Column] = name
	}
	return m
}()

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
