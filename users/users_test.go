package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/natours-go/apperror"
	"github.com/user/natours-go/auth"
)

func TestUpdateMeRejectsPasswordFields(t *testing.T) {
	s := NewService(nil)
	password := "newpass123"

	for _, req := range []*UpdateMeRequest{
		{Password: &password},
		{PasswordConfirm: &password},
	} {
		_, err := s.UpdateMe(context.Background(), 1, req)
		require.Error(t, err)
		appErr, ok := apperror.FromError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, appErr.StatusCode())
		assert.Equal(t,
			"This route is not for password updates. Please use /updateMyPassword.",
			appErr.Message)
	}
}

func TestUpdateMeValidatesEmail(t *testing.T) {
	s := NewService(nil)
	bad := "not-an-email"

	_, err := s.UpdateMe(context.Background(), 1, &UpdateMeRequest{Email: &bad})
	require.Error(t, err)
	assert.True(t, apperror.IsValidationError(err))
}

func TestUpdateRejectsUnknownRole(t *testing.T) {
	s := NewService(nil)
	role := "superuser"

	_, err := s.Update(context.Background(), 1, &UpdateUserRequest{Role: &role})
	require.Error(t, err)
	assert.True(t, apperror.IsValidationError(err))
}

func TestHandleCreateIsNotDefined(t *testing.T) {
	h := NewHandlers(NewService(nil), apperror.NewResponder(false, nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", nil)
	h.HandleCreate().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body auth.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "This route is not defined! Please use /signup instead", body.Message)
}

func TestHandleGetMeRequiresPrincipal(t *testing.T) {
	h := NewHandlers(NewService(nil), apperror.NewResponder(false, nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	h.HandleGetMe().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleGetMeReturnsPrincipal(t *testing.T) {
	h := NewHandlers(NewService(nil), apperror.NewResponder(false, nil))
	user := &auth.User{ID: 7, Name: "Jonas", Email: "jonas@example.com", Role: auth.RoleUser}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req = req.WithContext(auth.NewContextWithUser(req.Context(), user))
	h.HandleGetMe().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string `json:"status"`
		Data   struct {
			User auth.User `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "Jonas", body.Data.User.Name)
}

func TestUserSchemaInversion(t *testing.T) {
	assert.Equal(t, "createdAt", apiNameByColumn["created_at"])
	assert.NotContains(t, defaultListColumns, "password")
	assert.NotContains(t, defaultListColumns, "password_reset_token")
}

func TestUpdateAssignmentsLowercaseEmail(t *testing.T) {
	email := "Foo@BAR.com"
	name := "Foo"

	columns, values := (&UpdateMeRequest{Name: &name, Email: &email}).assignments()
	require.Equal(t, []string{"name", "email"}, columns)
	assert.Equal(t, []any{"Foo", "foo@bar.com"}, values)

	columns, values = (&UpdateUserRequest{Email: &email}).assignments()
	require.Equal(t, []string{"email"}, columns)
	assert.Equal(t, []any{"foo@bar.com"}, values)
}
