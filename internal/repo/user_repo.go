// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
// Users are owned by the external auth layer; this repo only reads the
// directory and seeds rows in development.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-direct-chat/internal/domain"
)

// CreateUser inserts a user row. Intended for seeding and tests; production
// rows arrive through the auth collaborator's own migrations.
func CreateUser(ctx context.Context, db *gorm.DB, name, email string) (*domain.User, error) {
	u := &domain.User{Name: name, Email: email}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser fetches a user by id, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id int) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsersExcept returns every user except the given one, ordered by name.
// Backs the recipient picker; callers project to (id, name).
func ListUsersExcept(ctx context.Context, db *gorm.DB, userID int) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Where("id <> ?", userID).
		Order("name ASC").
		Find(&out).Error
	return out, err
}
