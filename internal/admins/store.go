package admins

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/argon2"

	"github.com/evotehq/evote-backend/internal/models"
)

var (
	ErrExists             = errors.New("admin already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// argon2id parameters: 64 MiB memory, 3 passes, 1 lane.
const (
	argonMemory  = 64 * 1024
	argonTime    = 3
	argonThreads = 1
	argonKeyLen  = 32
	argonSaltLen = 16
)

// Store manages admin accounts with argon2id password hashes.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func adminKey(email string) string {
	return "admin:" + strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) Register(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	created, err := s.rdb.HSetNX(ctx, adminKey(email), "email", email).Result()
	if err != nil {
		return fmt.Errorf("register admin: %w", err)
	}
	if !created {
		return ErrExists
	}
	err = s.rdb.HSet(ctx, adminKey(email), map[string]interface{}{
		"password_hash": hash,
		"roles":         "admin",
		"created_at":    time.Now().Format(time.RFC3339),
	}).Err()
	if err != nil {
		return fmt.Errorf("register admin: %w", err)
	}
	return nil
}

func (s *Store) Authenticate(ctx context.Context, email, password string) (*models.Admin, error) {
	data, err := s.rdb.HGetAll(ctx, adminKey(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	if len(data) == 0 || !verifyPassword(data["password_hash"], password) {
		return nil, ErrInvalidCredentials
	}
	var createdAt time.Time
	if t, err := time.Parse(time.RFC3339, data["created_at"]); err == nil {
		createdAt = t
	}
	return &models.Admin{
		Email:     data["email"],
		Roles:     strings.Split(data["roles"], ","),
		CreatedAt: createdAt,
	}, nil
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func verifyPassword(encoded, password string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}
	var memory, timeCost uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, timeCost, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
