package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/natours-go/apperror"
	"github.com/user/natours-go/config"
	"github.com/user/natours-go/validation"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations, used to detect duplicate signup emails.
const pgUniqueViolation = "23505"

// Mailer delivers outbound mail. The auth service depends on this small
// interface rather than a concrete SMTP client so the reset flow can be
// exercised in tests with a fake.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service implements the authentication pipeline. Dependencies are injected
// through the constructor: the database pool, the auth section of the
// configuration, and a mailer for the reset flow.
type Service struct {
	db     *pgxpool.Pool
	cfg    config.AuthConfig
	mailer Mailer
}

// NewService creates an auth Service.
func NewService(db *pgxpool.Pool, cfg config.AuthConfig, mailer Mailer) *Service {
	return &Service{db: db, cfg: cfg, mailer: mailer}
}

// Claims is the session token payload: the principal id plus the standard
// registered claims. IssuedAt is load-bearing — the Protect guard compares
// it against the principal's password-change timestamp.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// Signup registers a new principal and issues a session token. The response
// model never carries the password hash.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*User, string, error) {
	if err := validation.Struct(req); err != nil {
		return nil, "", err
	}

	hashed, err := hashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, "", err
	}

	user := &User{
		Name:  req.Name,
		Email: strings.ToLower(req.Email),
		Role:  RoleUser,
	}

	query := `INSERT INTO users (name, email, password)
	          VALUES ($1, $2, $3)
	          RETURNING id, role, active, created_at`
	err = s.db.QueryRow(ctx, query, user.Name, user.Email, hashed).
		Scan(&user.ID, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, "", apperror.NewConflictError("email already exists", nil)
		}
		return nil, "", apperror.NewDatabaseError("failed to create user", err)
	}

	token, err := s.SignToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies credentials and issues a session token. Whether the email
// is unknown or the password wrong, the caller sees the same 401 — never
// reveal which factor failed.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*User, string, error) {
	user, err := s.userByEmailWithPassword(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperror.NewAuthError("Incorrect email or password", nil)
		}
		log.Printf("database error during login lookup: %v", err)
		return nil, "", apperror.NewDatabaseError("failed to get user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		return nil, "", apperror.NewAuthError("Incorrect email or password", nil)
	}

	token, err := s.SignToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	user.HashedPassword = ""
	return user, token, nil
}

// ForgotPassword generates a one-time reset token, stores only its hash and
// expiry, and emails the plaintext token. A failed send rolls the stored
// token back so no dangling valid reset token survives the failure.
func (s *Service) ForgotPassword(ctx context.Context, email, resetURLBase string) error {
	user, err := s.userByEmailWithPassword(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NewNotFoundError("There is no user with that email address.", nil)
		}
		return apperror.NewDatabaseError("failed to get user", err)
	}

	plain, hash, err := generateResetToken()
	if err != nil {
		return apperror.NewInternalError("failed to generate reset token", err)
	}

	expires := time.Now().Add(s.cfg.ResetTokenExpiry)
	_, err = s.db.Exec(ctx,
		`UPDATE users SET password_reset_token = $1, password_reset_expires = $2 WHERE id = $3`,
		hash, expires, user.ID)
	if err != nil {
		return apperror.NewDatabaseError("failed to store reset token", err)
	}

	resetURL := fmt.Sprintf("%s/api/v1/users/resetPassword/%s", resetURLBase, plain)
	body := fmt.Sprintf(
		"Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s\nIf you didn't forget your password, please ignore this email!",
		resetURL)

	if err := s.mailer.Send(ctx, user.Email, "Your password reset token (valid for 10 min)", body); err != nil {
		// Best-effort rollback of the token fields; the reset token must not
		// remain valid when the user never received it.
		if _, rbErr := s.db.Exec(ctx,
			`UPDATE users SET password_reset_token = NULL, password_reset_expires = NULL WHERE id = $1`,
			user.ID); rbErr != nil {
			log.Printf("failed to roll back reset token for user %d: %v", user.ID, rbErr)
		}
		return apperror.NewEmailError("There was an error sending the email. Try again later!", err)
	}

	return nil
}

// ResetPassword exchanges a valid plaintext reset token for a password
// change and a fresh session token (auto-login after reset). The token is
// matched by its hash and must not be expired; it is single-use because the
// update clears the stored hash.
func (s *Service) ResetPassword(ctx context.Context, token string, req ResetPasswordRequest) (*User, string, error) {
	if err := validation.Struct(req); err != nil {
		return nil, "", err
	}

	hash := HashResetToken(token)
	var user User
	err := s.db.QueryRow(ctx,
		`SELECT id, name, email, role, active, created_at
		 FROM users
		 WHERE password_reset_token = $1 AND password_reset_expires > now()`,
		hash).Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperror.NewValidationError("Token is invalid or has expired", nil)
		}
		return nil, "", apperror.NewDatabaseError("failed to look up reset token", err)
	}

	if err := s.setPassword(ctx, user.ID, req.Password); err != nil {
		return nil, "", err
	}

	signed, err := s.SignToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return &user, signed, nil
}

// UpdatePassword changes the password of an authenticated principal after
// re-verifying the current one, then issues a fresh session token.
func (s *Service) UpdatePassword(ctx context.Context, userID int64, req UpdatePasswordRequest) (string, error) {
	if err := validation.Struct(req); err != nil {
		return "", err
	}

	var currentHash string
	err := s.db.QueryRow(ctx, `SELECT password FROM users WHERE id = $1 AND active`, userID).
		Scan(&currentHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperror.NewAuthError("The user belonging to this token does no longer exist.", nil)
		}
		return "", apperror.NewDatabaseError("failed to get user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(req.PasswordCurrent)); err != nil {
		return "", apperror.NewAuthError("Your current password is wrong.", nil)
	}

	if err := s.setPassword(ctx, userID, req.Password); err != nil {
		return "", err
	}
	return s.SignToken(userID)
}

// UserByID resolves an active principal by id. Soft-deleted users are
// treated as nonexistent.
func (s *Service) UserByID(ctx context.Context, id int64) (*User, error) {
	var user User
	err := s.db.QueryRow(ctx,
		`SELECT id, name, email, photo, role, password_changed_at, active, created_at
		 FROM users WHERE id = $1 AND active`, id).
		Scan(&user.ID, &user.Name, &user.Email, &user.Photo, &user.Role,
			&user.PasswordChangedAt, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("user with ID %d not found", id), nil)
		}
		return nil, apperror.NewDatabaseError("failed to get user by id", err)
	}
	return &user, nil
}

// SignToken issues a signed session token for the given principal.
func (s *Service) SignToken(userID int64) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "natours",
			Subject:   strconv.FormatInt(userID, 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a session token string, checking the
// signature, the expiry and the signing method.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is invalid")
	}
	if claims.UserID == 0 {
		return nil, errors.New("token has no user_id claim")
	}
	return claims, nil
}

// hashPassword bcrypt-hashes a password. The DTO max tag counts runes while
// bcrypt's 72 limit counts bytes, so a multi-byte password can slip past
// validation; that case is still the client's input, not a server fault.
func hashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperror.NewValidationError(
				"Invalid input data. Password must be at most 72 characters.", err)
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// setPassword hashes and stores a new password, stamps the change time and
// clears any outstanding reset token. The change timestamp is backdated one
// second so a session token issued in the same second remains valid.
func (s *Service) setPassword(ctx context.Context, userID int64, password string) error {
	hashed, err := hashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	changedAt := time.Now().Add(-1 * time.Second)
	_, err = s.db.Exec(ctx,
		`UPDATE users
		 SET password = $1, password_changed_at = $2,
		     password_reset_token = NULL, password_reset_expires = NULL
		 WHERE id = $3`,
		hashed, changedAt, userID)
	if err != nil {
		return apperror.NewDatabaseError("failed to update password", err)
	}
	return nil
}

// userByEmailWithPassword fetches a principal by email including the stored
// hash, which default queries exclude. Inactive users cannot log in or
// request resets.
func (s *Service) userByEmailWithPassword(ctx context.Context, email string) (*User, error) {
	var user User
	err := s.db.QueryRow(ctx,
		`SELECT id, name, email, photo, role, password, password_changed_at, active, created_at
		 FROM users WHERE email = $1 AND active`, strings.ToLower(email)).
		Scan(&user.ID, &user.Name, &user.Email, &user.Photo, &user.Role,
			&user.HashedPassword, &user.PasswordChangedAt, &user.Active, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// generateResetToken returns a fresh high-entropy token in plaintext (for
// the email) and as a SHA-256 hex digest (for storage).
func generateResetToken() (plain, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	plain = hex.EncodeToString(buf)
	return plain, HashResetToken(plain), nil
}

// HashResetToken computes the storage form of a reset token. Only this
// irreversible digest is ever persisted.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
