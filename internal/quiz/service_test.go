package quiz_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chgk-bot/internal/models"
	"chgk-bot/internal/quiz"
	"chgk-bot/internal/testutil"
)

func newService(store quiz.Store) *quiz.Service {
	return quiz.NewService(store, zap.NewNop())
}

func TestRegisterTeam(t *testing.T) {
	ctx := context.Background()

	t.Run("appends one trimmed row with fresh timestamp", func(t *testing.T) {
		store := new(testutil.MockStore)
		store.On("GetTeamByChatID", mock.Anything, int64(100)).Return(nil, nil)
		store.On("CreateTeam", mock.Anything, mock.MatchedBy(func(tm models.Team) bool {
			return tm.Name == "Знатоки" && tm.Members == "Иван, Петр, Мария" && tm.ChatID == 100
		})).Return(nil)

		team, err := newService(store).RegisterTeam(ctx, 100, "  Знатоки ", " Иван, Петр, Мария ")
		require.NoError(t, err)
		assert.Equal(t, "Знатоки", team.Name)
		assert.Equal(t, "Иван, Петр, Мария", team.Members)

		ts, err := time.Parse(time.RFC3339, team.RegisteredAt)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), ts, time.Minute)

		store.AssertNumberOfCalls(t, "CreateTeam", 1)
	})

	t.Run("duplicate registration reports existing name and does not append", func(t *testing.T) {
		store := new(testutil.MockStore)
		store.On("GetTeamByChatID", mock.Anything, int64(100)).
			Return(&models.Team{Name: "Знатоки", ChatID: 100}, nil)

		_, err := newService(store).RegisterTeam(ctx, 100, "Другие", "Анна")
		var already *quiz.AlreadyRegisteredError
		require.ErrorAs(t, err, &already)
		assert.Equal(t, "Знатоки", already.TeamName)
		store.AssertNotCalled(t, "CreateTeam", mock.Anything, mock.Anything)
	})

	t.Run("empty fields rejected before any store call", func(t *testing.T) {
		store := new(testutil.MockStore)
		_, err := newService(store).RegisterTeam(ctx, 100, "  ", "Анна")
		assert.ErrorIs(t, err, quiz.ErrEmptyField)
		store.AssertNotCalled(t, "GetTeamByChatID", mock.Anything, mock.Anything)
	})

	t.Run("lookup failure surfaces", func(t *testing.T) {
		store := new(testutil.MockStore)
		store.On("GetTeamByChatID", mock.Anything, int64(100)).Return(nil, errors.New("timeout"))

		_, err := newService(store).RegisterTeam(ctx, 100, "Знатоки", "Иван")
		assert.Error(t, err)
	})

	t.Run("concurrent registrations for one chat append once", func(t *testing.T) {
		fake := &sequencedStore{}
		svc := newService(fake)

		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = svc.RegisterTeam(ctx, 100, "Знатоки", "Иван")
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, fake.creates)
	})
}

// sequencedStore remembers the created team so a second serialized lookup
// sees it, the way the real sheet would.
type sequencedStore struct {
	mu      sync.Mutex
	team    *models.Team
	creates int
}

func (s *sequencedStore) GetTeamByChatID(ctx context.Context, chatID int64) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.team, nil
}

func (s *sequencedStore) ListTeams(ctx context.Context) ([]models.Team, error) { return nil, nil }

func (s *sequencedStore) CreateTeam(ctx context.Context, t models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	s.team = &t
	return nil
}

func (s *sequencedStore) CreateAnswer(ctx context.Context, a models.Answer) error { return nil }

func (s *sequencedStore) ListAnswers(ctx context.Context) ([]models.Answer, error) {
	return nil, nil
}

func (s *sequencedStore) ListAnswersByTeam(ctx context.Context, teamName string) ([]models.Answer, error) {
	return nil, nil
}

func TestSubmitAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("appends answer row", func(t *testing.T) {
		store := new(testutil.MockStore)
		store.On("CreateAnswer", mock.Anything, mock.MatchedBy(func(a models.Answer) bool {
			return a.TeamName == "Знатоки" && a.QuestionNumber == 1 && a.Text == "Пушкин"
		})).Return(nil)

		a, err := newService(store).SubmitAnswer(ctx, "Знатоки", 1, "Пушкин")
		require.NoError(t, err)
		assert.Equal(t, "Знатоки", a.TeamName)
		assert.NotEmpty(t, a.SubmittedAt)
	})

	t.Run("duplicates are kept", func(t *testing.T) {
		store := new(testutil.MockStore)
		store.On("CreateAnswer", mock.Anything, mock.Anything).Return(nil)

		svc := newService(store)
		_, err := svc.SubmitAnswer(ctx, "Знатоки", 1, "Пушкин")
		require.NoError(t, err)
		_, err = svc.SubmitAnswer(ctx, "Знатоки", 1, "Пушкин")
		require.NoError(t, err)

		store.AssertNumberOfCalls(t, "CreateAnswer", 2)
	})

	t.Run("fresh lookup variant resolves the team", func(t *testing.T) {
		store := new(testutil.MockStore)
		store.On("GetTeamByChatID", mock.Anything, int64(100)).
			Return(&models.Team{Name: "Знатоки", ChatID: 100}, nil)
		store.On("CreateAnswer", mock.Anything, mock.MatchedBy(func(a models.Answer) bool {
			return a.TeamName == "Знатоки"
		})).Return(nil)

		_, err := newService(store).SubmitAnswerByChat(ctx, 100, 2, "Лермонтов")
		require.NoError(t, err)
	})

	t.Run("fresh lookup variant for unregistered chat", func(t *testing.T) {
		store := new(testutil.MockStore)
		store.On("GetTeamByChatID", mock.Anything, int64(100)).Return(nil, nil)

		_, err := newService(store).SubmitAnswerByChat(ctx, 100, 2, "Лермонтов")
		assert.ErrorIs(t, err, quiz.ErrTeamNotFound)
		store.AssertNotCalled(t, "CreateAnswer", mock.Anything, mock.Anything)
	})
}

func TestTeamSummary(t *testing.T) {
	ctx := context.Background()

	store := new(testutil.MockStore)
	store.On("GetTeamByChatID", mock.Anything, int64(100)).
		Return(&models.Team{Name: "Знатоки", Members: "Иван, Петр, Мария", ChatID: 100}, nil)
	store.On("ListAnswersByTeam", mock.Anything, "Знатоки").
		Return([]models.Answer{{QuestionNumber: 1}, {QuestionNumber: 2}}, nil)

	sum, err := newService(store).TeamSummary(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.AnswersCount)
	assert.Equal(t, 3, sum.MembersCount)
}

func TestTeamByChat_NotFound(t *testing.T) {
	store := new(testutil.MockStore)
	store.On("GetTeamByChatID", mock.Anything, int64(7)).Return(nil, nil)

	_, err := newService(store).TeamByChat(context.Background(), 7)
	assert.ErrorIs(t, err, quiz.ErrTeamNotFound)
}

func TestTeamChatIDs_SkipsZero(t *testing.T) {
	store := new(testutil.MockStore)
	store.On("ListTeams", mock.Anything).Return([]models.Team{
		{Name: "A", ChatID: 1},
		{Name: "B", ChatID: 0},
		{Name: "C", ChatID: 3},
	}, nil)

	ids, err := newService(store).TeamChatIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)
}
