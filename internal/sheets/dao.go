package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"chgk-bot/internal/models"
)

const (
	SheetTeams   = "teams"
	SheetAnswers = "answers"
)

// ---------- teams ----------

// GetTeamByChatID scans the teams sheet for the row owned by chatID.
// A missing team is (nil, nil), not an error.
func (c *Client) GetTeamByChatID(ctx context.Context, chatID int64) (*models.Team, error) {
	values, err := c.readAll(ctx, SheetTeams)
	if err != nil {
		return nil, err
	}
	for i := c.firstDataRow(); i < len(values); i++ {
		t := decodeTeam(values[i])
		if t == nil {
			continue
		}
		if t.ChatID == chatID {
			return t, nil
		}
	}
	return nil, nil
}

func (c *Client) ListTeams(ctx context.Context) ([]models.Team, error) {
	values, err := c.readAll(ctx, SheetTeams)
	if err != nil {
		return nil, err
	}
	teams := []models.Team{}
	for i := c.firstDataRow(); i < len(values); i++ {
		if t := decodeTeam(values[i]); t != nil {
			teams = append(teams, *t)
		}
	}
	return teams, nil
}

func (c *Client) CreateTeam(ctx context.Context, t models.Team) error {
	return c.appendRow(ctx, SheetTeams, []interface{}{
		t.Name, t.Members, t.RegisteredAt, t.ChatID,
	})
}

// ---------- answers ----------

func (c *Client) CreateAnswer(ctx context.Context, a models.Answer) error {
	return c.appendRow(ctx, SheetAnswers, []interface{}{
		a.TeamName, strconv.Itoa(a.QuestionNumber), a.Text, a.SubmittedAt,
	})
}

func (c *Client) ListAnswers(ctx context.Context) ([]models.Answer, error) {
	values, err := c.readAll(ctx, SheetAnswers)
	if err != nil {
		return nil, err
	}
	answers := []models.Answer{}
	for i := c.firstDataRow(); i < len(values); i++ {
		if a := decodeAnswer(values[i]); a != nil {
			answers = append(answers, *a)
		}
	}
	return answers, nil
}

func (c *Client) ListAnswersByTeam(ctx context.Context, teamName string) ([]models.Answer, error) {
	all, err := c.ListAnswers(ctx)
	if err != nil {
		return nil, err
	}
	answers := []models.Answer{}
	for _, a := range all {
		if strings.EqualFold(strings.TrimSpace(a.TeamName), strings.TrimSpace(teamName)) {
			answers = append(answers, a)
		}
	}
	return answers, nil
}

// ---------- row decoding ----------

// Rows are decoded into named fields here and nowhere else, so a column
// reorder only touches these two functions.

// teams columns: teamName, people, dateReg, chatId
func decodeTeam(row []interface{}) *models.Team {
	name := cell(row, 0)
	if strings.TrimSpace(name) == "" {
		return nil
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(cell(row, 3)), 10, 64)
	if err != nil {
		return nil
	}
	return &models.Team{
		Name:         name,
		Members:      cell(row, 1),
		RegisteredAt: cell(row, 2),
		ChatID:       chatID,
	}
}

// answers columns: teamName, questionNumber, answer, timeSend
func decodeAnswer(row []interface{}) *models.Answer {
	name := cell(row, 0)
	if strings.TrimSpace(name) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(cell(row, 1)))
	if err != nil {
		return nil
	}
	return &models.Answer{
		TeamName:       name,
		QuestionNumber: n,
		Text:           cell(row, 2),
		SubmittedAt:    cell(row, 3),
	}
}

func cell(row []interface{}, idx int) string {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return ""
	}
	return fmt.Sprint(row[idx])
}
