package repositories

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/directory"
	"github.com/avatarctic/services-marketplace/go/internal/core/ports"
	"github.com/avatarctic/services-marketplace/go/internal/infrastructure/db"
)

// DirectoryRepository reads the marketplace categories and cities.
type DirectoryRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewDirectoryRepository(database *db.Database, logger *logrus.Logger) ports.DirectoryRepository {
	return &DirectoryRepository{db: database, logger: logger}
}

func (r *DirectoryRepository) ListCategories(ctx context.Context) ([]directory.Category, error) {
	categories := []directory.Category{}
	query := `SELECT id, name, slug, icon FROM categories ORDER BY name`
	if err := r.db.DB.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *DirectoryRepository) ListCities(ctx context.Context, state string) ([]directory.City, error) {
	cities := []directory.City{}
	query := `SELECT id, name, state FROM cities WHERE state = $1 ORDER BY name`
	if err := r.db.DB.SelectContext(ctx, &cities, query, state); err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	return cities, nil
}
