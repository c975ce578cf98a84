package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chgk-bot/internal/models"
)

// MockStore is a testify mock for quiz.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetTeamByChatID(ctx context.Context, chatID int64) (*models.Team, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockStore) ListTeams(ctx context.Context) ([]models.Team, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Team), args.Error(1)
}

func (m *MockStore) CreateTeam(ctx context.Context, t models.Team) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockStore) CreateAnswer(ctx context.Context, a models.Answer) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockStore) ListAnswers(ctx context.Context) ([]models.Answer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Answer), args.Error(1)
}

func (m *MockStore) ListAnswersByTeam(ctx context.Context, teamName string) ([]models.Answer, error) {
	args := m.Called(ctx, teamName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Answer), args.Error(1)
}
