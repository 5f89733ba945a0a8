package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// PersistentToken is the persisted remember-me record. Series is the
// primary key; TokenValue is replaced in place on every rotation.
type PersistentToken struct {
	Series     string    `gorm:"primaryKey;size:64"`
	TokenValue string    `gorm:"size:64;not null"`
	UserID     string    `gorm:"index;size:64"`
	Login      string    `gorm:"index;size:255"`
	IssuedAt   time.Time `gorm:"index"`
	IP         string    `gorm:"size:64"`
	UserAgent  string    `gorm:"size:512"`
}

// User is the minimal account record the session subsystem needs.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Login        string `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string `gorm:"size:512;not null"`
	Activated    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store implements [goSession.TokenStore] and [goSession.UserStore].
type Store struct {
	db *gorm.DB
}

// Open connects using the dialector implied by the DSN: ":memory:" and
// "file:" DSNs open SQLite, anything else PostgreSQL.
func Open(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		dialector = sqlite.Open(dsn)
	} else {
		dialector = postgres.Open(dsn)
	}
	return gorm.Open(dialector, &gorm.Config{})
}

// New migrates the schema and returns a [Store].
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&PersistentToken{}, &User{}); err != nil {
		return nil, fmt.Errorf("%w: %v", goSession.ErrStoreUnavailable, err)
	}
	return &Store{db: db}, nil
}

// FindBySeries describes the findbyseries operation and its observable behavior.
func (s *Store) FindBySeries(ctx context.Context, series string) (*goSession.PersistentLoginToken, error) {
	var record PersistentToken
	err := s.db.WithContext(ctx).First(&record, "series = ?", series).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goSession.ErrSeriesNotFound
		}
		return nil, fmt.Errorf("%w: %v", goSession.ErrStoreUnavailable, err)
	}
	return &goSession.PersistentLoginToken{
		Series:     record.Series,
		TokenValue: record.TokenValue,
		UserID:     record.UserID,
		Login:      record.Login,
		IssuedAt:   record.IssuedAt,
		IP:         record.IP,
		UserAgent:  record.UserAgent,
	}, nil
}

// Save describes the save operation and its observable behavior.
//
// Save upserts by series, so both initial issuance and rotation go through
// the same call.
func (s *Store) Save(ctx context.Context, token *goSession.PersistentLoginToken) error {
	record := PersistentToken{
		Series:     token.Series,
		TokenValue: token.TokenValue,
		UserID:     token.UserID,
		Login:      token.Login,
		IssuedAt:   token.IssuedAt,
		IP:         token.IP,
		UserAgent:  token.UserAgent,
	}
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("%w: %v", goSession.ErrStoreUnavailable, err)
	}
	return nil
}

// Delete describes the delete operation and its observable behavior.
func (s *Store) Delete(ctx context.Context, series string) error {
	if err := s.db.WithContext(ctx).Delete(&PersistentToken{}, "series = ?", series).Error; err != nil {
		return fmt.Errorf("%w: %v", goSession.ErrStoreUnavailable, err)
	}
	return nil
}

// FindByLogin describes the findbylogin operation and its observable behavior.
func (s *Store) FindByLogin(ctx context.Context, login string) (*goSession.Identity, error) {
	user, err := s.userByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	return &goSession.Identity{
		UserID: fmt.Sprintf("%d", user.ID),
		Login:  user.Login,
	}, nil
}

// PasswordHashByLogin returns the stored credential hash for interactive
// login verification.
func (s *Store) PasswordHashByLogin(ctx context.Context, login string) (string, error) {
	user, err := s.userByLogin(ctx, login)
	if err != nil {
		return "", err
	}
	return user.PasswordHash, nil
}

// CreateUser describes the createuser operation and its observable behavior.
func (s *Store) CreateUser(ctx context.Context, login, passwordHash string) (*goSession.Identity, error) {
	user := User{
		Login:        login,
		PasswordHash: passwordHash,
		Activated:    true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", goSession.ErrStoreUnavailable, err)
	}
	return &goSession.Identity{
		UserID: fmt.Sprintf("%d", user.ID),
		Login:  user.Login,
	}, nil
}

// DeleteExpired removes tokens whose last rotation predates the cutoff.
// Intended for a periodic maintenance job; the engine also deletes expired
// tokens lazily on presentation.
func (s *Store) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&PersistentToken{}, "issued_at < ?", cutoff)
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", goSession.ErrStoreUnavailable, res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) userByLogin(ctx context.Context, login string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, "login = ?", login).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goSession.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", goSession.ErrStoreUnavailable, err)
	}
	if !user.Activated {
		return nil, goSession.ErrUserNotFound
	}
	return &user, nil
}
