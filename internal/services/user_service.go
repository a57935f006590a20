package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	db "github.com/coursehub-api/coursehub/internal/core/database"
	"github.com/coursehub-api/coursehub/internal/core/errs"
	objectclient "github.com/coursehub-api/coursehub/internal/core/object-client"
	"github.com/coursehub-api/coursehub/internal/models"
)

const tokenTTL = 24 * time.Hour

// AuthResult is the signed token plus the authenticated user.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// UserService handles signup, login and profile management.
type UserService struct {
	db        db.DbClient
	objects   objectclient.ObjectClient
	bucket    string
	jwtSecret []byte
	logger    *zap.Logger
}

func NewUserService(dbClient db.DbClient, objects objectclient.ObjectClient, bucket, jwtSecret string, logger *zap.Logger) *UserService {
	return &UserService{
		db:        dbClient,
		objects:   objects,
		bucket:    bucket,
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
	}
}

// Signup creates the user with a bcrypt password hash and returns a fresh
// token.
func (s *UserService) Signup(ctx context.Context, email, password string, fullName *string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errs.BadRequest("Invalid email")
	}
	if len(password) < 8 {
		return nil, errs.BadRequest("Password must be at least 8 characters")
	}

	existing, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	if existing != nil {
		return nil, errs.BadRequest("Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.issueToken(user)
}

// Login verifies credentials and returns a fresh token. Wrong email and wrong
// password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	if user == nil {
		return nil, errs.Unauthorized("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errs.Unauthorized("Invalid email or password")
	}
	return s.issueToken(user)
}

func (s *UserService) issueToken(user *models.User) (*AuthResult, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"exp":     time.Now().Add(tokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// GetProfile returns the user's own record.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	if user == nil {
		return nil, errs.NotFound("User not found")
	}
	return user, nil
}

// UpdateProfile updates the display fields. Nil fields are left unchanged.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, fullName, avatarURL *string) (*models.User, error) {
	user, err := s.db.UpdateUserProfile(ctx, userID, fullName, avatarURL)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if user == nil {
		return nil, errs.NotFound("User not found")
	}
	return user, nil
}

// UploadAvatar stores the image and points the profile at it.
func (s *UserService) UploadAvatar(ctx context.Context, userID, contentType string, data []byte) (*models.User, error) {
	if len(data) == 0 {
		return nil, errs.BadRequest("Missing file")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errs.BadRequest("Avatar must be an image")
	}

	key := fmt.Sprintf("avatars/%s/%s", userID, uuid.NewString())
	url, err := s.objects.UploadFile(ctx, s.bucket, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	user, err := s.UpdateProfile(ctx, userID, nil, &url)
	if err != nil {
		if derr := s.objects.DeleteFile(ctx, s.bucket, key); derr != nil {
			s.logger.Warn("failed to roll back uploaded avatar", zap.String("key", key), zap.Error(derr))
		}
		return nil, err
	}
	return user, nil
}
