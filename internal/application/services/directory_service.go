package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/directory"
	"github.com/avatarctic/services-marketplace/go/internal/core/domain/fault"
	"github.com/avatarctic/services-marketplace/go/internal/core/ports"
)

type DirectoryService struct {
	repo   ports.DirectoryRepository
	logger *logrus.Logger
}

func NewDirectoryService(repo ports.DirectoryRepository, logger *logrus.Logger) ports.DirectoryService {
	return &DirectoryService{repo: repo, logger: logger}
}

func (s *DirectoryService) Categories(ctx context.Context) ([]directory.Category, error) {
	return s.repo.ListCategories(ctx)
}

// Cities lists the cities of a two-letter state code, case-insensitively.
func (s *DirectoryService) Cities(ctx context.Context, state string) ([]directory.City, error) {
	state = strings.ToUpper(strings.TrimSpace(state))
	if len(state) != 2 {
		return nil, fault.New(fault.ClassBadRequest, "directory.Cities", errInvalidState)
	}
	return s.repo.ListCities(ctx, state)
}
