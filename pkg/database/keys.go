package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DefaultRateLimit applies to keys created without an explicit limit.
const DefaultRateLimit = 10000

// CreateKey stores a new API key record.
func (s *Store) CreateKey(ctx context.Context, key *APIKey) error {
	if key.RateLimit == 0 {
		key.RateLimit = DefaultRateLimit
	}
	if err := s.db.WithContext(ctx).Create(key).Error; err != nil {
		return fmt.Errorf("create key: %w", err)
	}
	return nil
}

// FindOrCreateKey returns the record of a signed key, creating it on first use.
func (s *Store) FindOrCreateKey(ctx context.Context, key, name string) (*APIKey, error) {
	var apiKey APIKey
	err := s.db.WithContext(ctx).
		Where(&APIKey{Key: key}).
		Attrs(APIKey{Name: name, RateLimit: DefaultRateLimit}).
		FirstOrCreate(&apiKey).Error
	if err != nil {
		return nil, fmt.Errorf("lookup key: %w", err)
	}
	return &apiKey, nil
}

// TouchKey records the time a key was last used.
func (s *Store) TouchKey(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Model(&APIKey{}).Where("id = ?", id).Update("last_used", time.Now()).Error
}

// ListKeys returns every API key.
func (s *Store) ListKeys(ctx context.Context) ([]APIKey, error) {
	var keys []APIKey
	if err := s.db.WithContext(ctx).Order("id").Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// UpdateKeyLimit changes the rate limit of a key.
func (s *Store) UpdateKeyLimit(ctx context.Context, id uint, limit int) error {
	res := s.db.WithContext(ctx).Model(&APIKey{}).Where("id = ?", id).Update("rate_limit", limit)
	if res.Error != nil {
		return fmt.Errorf("update key %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeKey deletes a key.
func (s *Store) RevokeKey(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&APIKey{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete key %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindUser looks up an admin by username.
func (s *Store) FindUser(ctx context.Context, username string) (*MasterUser, error) {
	var user MasterUser
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// CountUsers returns the number of admin users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&MasterUser{}).Count(&count).Error
	return count, err
}

// CreateUser stores an admin user.
func (s *Store) CreateUser(ctx context.Context, user *MasterUser) error {
	return s.db.WithContext(ctx).Create(user).Error
}
