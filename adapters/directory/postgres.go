// Package directory adapts the external user store behind the UserDirectory
// port. The Postgres implementation owns nothing but the columns the auth
// core reads, plus the password hash it writes back during reset.
package directory

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/acmebet/gatekeeper/core"
	"github.com/acmebet/gatekeeper/ports"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type userModel struct {
	ID           string    `gorm:"column:id;primaryKey"`
	Username     string    `gorm:"column:username;uniqueIndex"`
	SignAddress  *string   `gorm:"column:sign_address;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash"`
	Roles        string    `gorm:"column:roles"`
	Status       string    `gorm:"column:status"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

// PostgresDirectory is the gorm-backed user directory.
type PostgresDirectory struct {
	db *gorm.DB
}

// Open connects to Postgres with error translation enabled, so uniqueness
// violations surface as gorm.ErrDuplicatedKey.
func Open(databaseURL string) (*PostgresDirectory, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&userModel{}); err != nil {
		return nil, fmt.Errorf("migrate users: %w", err)
	}
	return &PostgresDirectory{db: db}, nil
}

// NewPostgresDirectory wraps an existing gorm handle.
func NewPostgresDirectory(db *gorm.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

var _ ports.UserDirectory = (*PostgresDirectory)(nil)

// anchoredPattern builds the ^name$ case-insensitive match. Anchoring keeps
// "Ali" from resolving "Alice"; QuoteMeta keeps user input out of the regex.
func anchoredPattern(username string) string {
	return "^" + regexp.QuoteMeta(username) + "$"
}

// FindByUsername resolves a user by anchored case-insensitive username.
func (d *PostgresDirectory) FindByUsername(ctx context.Context, username string) (*core.User, error) {
	var m userModel
	err := d.db.WithContext(ctx).Where("username ~* ?", anchoredPattern(username)).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return m.toDomain(), nil
}

// FindByUsernameOrAddress resolves a user matching either the username
// (anchored, case-insensitive) or the exact wallet address. Sign-up uses it
// for its collision check.
func (d *PostgresDirectory) FindByUsernameOrAddress(ctx context.Context, username, signAddress string) (*core.User, error) {
	q := d.db.WithContext(ctx).Where("username ~* ?", anchoredPattern(username))
	if signAddress != "" {
		q = q.Or("sign_address = ?", signAddress)
	}
	var m userModel
	err := q.First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by username or address: %w", err)
	}
	return m.toDomain(), nil
}

// FindByID resolves a user by identifier.
func (d *PostgresDirectory) FindByID(ctx context.Context, id string) (*core.User, error) {
	var m userModel
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return m.toDomain(), nil
}

// Create inserts a new user. Duplicate username or address returns
// core.ErrDuplicateKey.
func (d *PostgresDirectory) Create(ctx context.Context, user *core.User) (*core.User, error) {
	m := fromDomain(user)
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	err := d.db.WithContext(ctx).Create(&m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, core.ErrDuplicateKey
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return m.toDomain(), nil
}

// UpdatePassword persists a new password hash for a user.
func (d *PostgresDirectory) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res := d.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).
		Updates(map[string]interface{}{"password_hash": passwordHash, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (m userModel) toDomain() *core.User {
	u := &core.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Roles:        core.SplitRoles(m.Roles),
		Status:       core.Status(m.Status),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.SignAddress != nil {
		u.SignAddress = *m.SignAddress
	}
	return u
}

func fromDomain(u *core.User) userModel {
	m := userModel{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Roles:        core.JoinRoles(u.Roles),
		Status:       string(u.Status),
	}
	if u.SignAddress != "" {
		addr := u.SignAddress
		m.SignAddress = &addr
	}
	return m
}
