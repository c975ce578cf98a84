package quiz

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"chgk-bot/internal/models"
	"chgk-bot/internal/util"
)

// Store is the tabular backend the quiz runs on. Reads re-fetch every time;
// writes are plain appends. Implemented by sheets.Client.
type Store interface {
	GetTeamByChatID(ctx context.Context, chatID int64) (*models.Team, error)
	ListTeams(ctx context.Context) ([]models.Team, error)
	CreateTeam(ctx context.Context, t models.Team) error
	CreateAnswer(ctx context.Context, a models.Answer) error
	ListAnswers(ctx context.Context) ([]models.Answer, error)
	ListAnswersByTeam(ctx context.Context, teamName string) ([]models.Answer, error)
}

// ErrTeamNotFound is returned when a chat ID has no registered team.
var ErrTeamNotFound = errors.New("team not found")

// AlreadyRegisteredError reports a duplicate registration attempt together
// with the existing team's name, so callers can echo it back.
type AlreadyRegisteredError struct {
	TeamName string
}

func (e *AlreadyRegisteredError) Error() string {
	return "team already registered: " + e.TeamName
}

// Service holds the registration and answer logic shared by the Telegram
// handlers and the HTTP API.
type Service struct {
	store  Store
	logger *zap.Logger

	// Per-chat locks serialize the lookup-then-append in RegisterTeam so two
	// near-simultaneous registrations for one chat cannot both pass the
	// existence check. Only guards this process; Sheets itself has no
	// uniqueness constraint.
	regMu sync.Mutex
	reg   map[int64]*sync.Mutex
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		reg:    make(map[int64]*sync.Mutex),
	}
}

func (s *Service) chatLock(chatID int64) *sync.Mutex {
	s.regMu.Lock()
	defer s.regMu.Unlock()
	mu, ok := s.reg[chatID]
	if !ok {
		mu = &sync.Mutex{}
		s.reg[chatID] = mu
	}
	return mu
}

// RegisterTeam creates a team for the chat unless one already exists.
// Name and members arrive already parsed; both must be non-empty.
func (s *Service) RegisterTeam(ctx context.Context, chatID int64, name, members string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	members = strings.TrimSpace(members)
	if name == "" || members == "" {
		return nil, ErrEmptyField
	}

	mu := s.chatLock(chatID)
	mu.Lock()
	defer mu.Unlock()

	existing, err := s.store.GetTeamByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &AlreadyRegisteredError{TeamName: existing.Name}
	}

	t := models.Team{
		Name:         name,
		Members:      members,
		RegisteredAt: util.NowISO(),
		ChatID:       chatID,
	}
	if err := s.store.CreateTeam(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("team registered",
		zap.Int64("chat_id", chatID),
		zap.String("team", t.Name),
	)
	return &t, nil
}

// TeamByChat resolves the team owning a chat ID.
func (s *Service) TeamByChat(ctx context.Context, chatID int64) (*models.Team, error) {
	t, err := s.store.GetTeamByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTeamNotFound
	}
	return t, nil
}

// SubmitAnswer appends an answer for an already-resolved team name.
// Duplicates are intentionally kept: the jury sees every submission.
func (s *Service) SubmitAnswer(ctx context.Context, teamName string, questionNumber int, text string) (*models.Answer, error) {
	teamName = strings.TrimSpace(teamName)
	text = strings.TrimSpace(text)
	if teamName == "" || text == "" {
		return nil, ErrEmptyField
	}
	if questionNumber < 1 {
		return nil, ErrBadQuestion
	}

	a := models.Answer{
		TeamName:       teamName,
		QuestionNumber: questionNumber,
		Text:           text,
		SubmittedAt:    util.NowISO(),
	}
	if err := s.store.CreateAnswer(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("answer submitted",
		zap.String("team", a.TeamName),
		zap.Int("question", a.QuestionNumber),
	)
	return &a, nil
}

// SubmitAnswerByChat is the fresh-lookup variant: the team is resolved by
// chat ID at submission time instead of being carried in conversation state.
func (s *Service) SubmitAnswerByChat(ctx context.Context, chatID int64, questionNumber int, text string) (*models.Answer, error) {
	t, err := s.TeamByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return s.SubmitAnswer(ctx, t.Name, questionNumber, text)
}

// AnswersByChat lists everything the chat's team has submitted.
func (s *Service) AnswersByChat(ctx context.Context, chatID int64) ([]models.Answer, error) {
	t, err := s.TeamByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return s.store.ListAnswersByTeam(ctx, t.Name)
}

// TeamSummary returns the team plus the counters the web app renders.
func (s *Service) TeamSummary(ctx context.Context, chatID int64) (*models.TeamSummary, error) {
	t, err := s.TeamByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	answers, err := s.store.ListAnswersByTeam(ctx, t.Name)
	if err != nil {
		return nil, err
	}
	return &models.TeamSummary{
		Team:         *t,
		AnswersCount: len(answers),
		MembersCount: countMembers(t.Members),
	}, nil
}

// AllAnswers feeds the admin CSV export.
func (s *Service) AllAnswers(ctx context.Context) ([]models.Answer, error) {
	return s.store.ListAnswers(ctx)
}

// TeamChatIDs lists broadcast recipients.
func (s *Service) TeamChatIDs(ctx context.Context) ([]int64, error) {
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(teams))
	for _, t := range teams {
		if t.ChatID != 0 {
			ids = append(ids, t.ChatID)
		}
	}
	return ids, nil
}

func countMembers(members string) int {
	n := 0
	for _, p := range strings.Split(members, ",") {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}
