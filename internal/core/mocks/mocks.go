package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockProjectAccessRepository is a mock implementation of
// ports.ProjectAccessRepository
type MockProjectAccessRepository struct {
	mock.Mock
}

func NewMockProjectAccessRepository() *MockProjectAccessRepository {
	return &MockProjectAccessRepository{}
}

func (m *MockProjectAccessRepository) ProjectExists(ctx context.Context, projectID int64) (bool, error) {
	args := m.Called(ctx, projectID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProjectAccessRepository) IsProjectOwner(ctx context.Context, userID uuid.UUID, projectID int64) (bool, error) {
	args := m.Called(ctx, userID, projectID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProjectAccessRepository) IsProjectMember(ctx context.Context, userID uuid.UUID, projectID int64) (bool, error) {
	args := m.Called(ctx, userID, projectID)
	return args.Bool(0), args.Error(1)
}
