package ports

import (
	"context"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/directory"
)

// DirectoryAPI is the client-side view of the near-static marketplace lists.
type DirectoryAPI interface {
	Categories(ctx context.Context) ([]directory.Category, error)
	Cities(ctx context.Context, state string) ([]directory.City, error)
}

// DirectoryRepository defines storage operations for categories and cities
type DirectoryRepository interface {
	ListCategories(ctx context.Context) ([]directory.Category, error)
	ListCities(ctx context.Context, state string) ([]directory.City, error)
}

// DirectoryService defines the directory business logic
type DirectoryService interface {
	Categories(ctx context.Context) ([]directory.Category, error)
	Cities(ctx context.Context, state string) ([]directory.City, error)
}
