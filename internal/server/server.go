package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"chgk-bot/internal/config"
	"chgk-bot/internal/models"
	"chgk-bot/internal/quiz"
	"chgk-bot/internal/util"
)

// UpdateHandler receives Telegram updates relayed through POST /webhook.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd *tgbotapi.Update)
}

type registerRequest struct {
	TeamName string `json:"teamName"`
	Members  string `json:"members"`
	ChatID   int64  `json:"chatId"`
}

type answerRequest struct {
	TeamName string `json:"teamName"`
	// the web form posts the question number as a string
	QuestionNumber string `json:"questionNumber"`
	Answer         string `json:"answer"`
	ChatID         int64  `json:"chatId"`
}

type apiResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Team    *teamView `json:"team,omitempty"`
}

// listAnswersResponse always carries the answers key, even when the team has
// not submitted anything yet; the web app indexes into it unconditionally.
type listAnswersResponse struct {
	Success bool        `json:"success"`
	Answers []answerRow `json:"answers"`
}

type teamView struct {
	Name             string `json:"name"`
	Members          string `json:"members"`
	RegistrationDate string `json:"registrationDate"`
	AnswersCount     int    `json:"answersCount"`
	MembersCount     int    `json:"membersCount"`
}

type answerRow struct {
	QuestionNumber int    `json:"questionNumber"`
	Answer         string `json:"answer"`
	Timestamp      string `json:"timestamp"`
}

// New builds the HTTP side of the bot: the JSON API for the web forms, the
// Telegram webhook relay, the CSV export and a liveness probe. Business
// failures are HTTP 200 with success=false; only malformed requests get 4xx.
func New(cfg config.Config, svc *quiz.Service, bot UpdateHandler, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("Bot is running!"))
	})

	// Telegram retries undelivered webhooks, so this always acknowledges;
	// processing errors only go to the log.
	mux.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		var upd tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			logger.Warn("webhook: bad update payload", zap.Error(err))
			w.WriteHeader(http.StatusOK)
			return
		}
		go bot.HandleUpdate(context.Background(), &upd)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.TeamName) == "" || strings.TrimSpace(req.Members) == "" || req.ChatID == 0 {
			writeJSON(w, apiResponse{Success: false, Message: "Название команды и список участников не могут быть пустыми"})
			return
		}

		_, err := svc.RegisterTeam(r.Context(), req.ChatID, req.TeamName, req.Members)
		var already *quiz.AlreadyRegisteredError
		if errors.As(err, &already) {
			writeJSON(w, apiResponse{Success: false, Message: "Вы уже зарегистрировали команду: " + already.TeamName})
			return
		}
		if err != nil {
			logger.Error("api register failed", zap.Int64("chat_id", req.ChatID), zap.Error(err))
			writeJSON(w, apiResponse{Success: false, Message: "Ошибка при регистрации. Попробуйте позже."})
			return
		}
		writeJSON(w, apiResponse{Success: true})
	})

	mux.HandleFunc("/answer", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Answer) == "" || req.ChatID == 0 {
			writeJSON(w, apiResponse{Success: false, Message: "Номер вопроса и ответ не могут быть пустыми"})
			return
		}
		n, err := quiz.ParseQuestionNumber(req.QuestionNumber)
		if err != nil {
			writeJSON(w, apiResponse{Success: false, Message: "Номер вопроса должен быть числом"})
			return
		}

		if strings.TrimSpace(req.TeamName) != "" {
			_, err = svc.SubmitAnswer(r.Context(), req.TeamName, n, req.Answer)
		} else {
			_, err = svc.SubmitAnswerByChat(r.Context(), req.ChatID, n, req.Answer)
		}
		if errors.Is(err, quiz.ErrTeamNotFound) {
			writeJSON(w, apiResponse{Success: false, Message: "Сначала зарегистрируйте команду"})
			return
		}
		if err != nil {
			logger.Error("api answer failed", zap.Int64("chat_id", req.ChatID), zap.Error(err))
			writeJSON(w, apiResponse{Success: false, Message: "Ошибка при отправке ответа. Попробуйте позже."})
			return
		}
		writeJSON(w, apiResponse{Success: true})
	})

	mux.HandleFunc("/team", func(w http.ResponseWriter, r *http.Request) {
		chatID, err := chatIDParam(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sum, err := svc.TeamSummary(r.Context(), chatID)
		if errors.Is(err, quiz.ErrTeamNotFound) {
			writeJSON(w, apiResponse{Success: false, Message: "Команда не найдена"})
			return
		}
		if err != nil {
			logger.Error("api team failed", zap.Int64("chat_id", chatID), zap.Error(err))
			writeJSON(w, apiResponse{Success: false, Message: "Ошибка при получении данных команды"})
			return
		}
		writeJSON(w, apiResponse{Success: true, Team: &teamView{
			Name:             sum.Team.Name,
			Members:          sum.Team.Members,
			RegistrationDate: sum.Team.RegisteredAt,
			AnswersCount:     sum.AnswersCount,
			MembersCount:     sum.MembersCount,
		}})
	})

	mux.HandleFunc("/answers", func(w http.ResponseWriter, r *http.Request) {
		chatID, err := chatIDParam(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		answers, err := svc.AnswersByChat(r.Context(), chatID)
		if errors.Is(err, quiz.ErrTeamNotFound) {
			writeJSON(w, apiResponse{Success: false, Message: "Команда не найдена"})
			return
		}
		if err != nil {
			logger.Error("api answers failed", zap.Int64("chat_id", chatID), zap.Error(err))
			writeJSON(w, apiResponse{Success: false, Message: "Ошибка при получении ответов"})
			return
		}
		rows := make([]answerRow, 0, len(answers))
		for _, a := range answers {
			rows = append(rows, answerRow{
				QuestionNumber: a.QuestionNumber,
				Answer:         a.Text,
				Timestamp:      a.SubmittedAt,
			})
		}
		writeJSON(w, listAnswersResponse{Success: true, Answers: rows})
	})

	// CSV export (admin-only link with token = HMAC)
	mux.HandleFunc("/export/answers.csv", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "token required", http.StatusBadRequest)
			return
		}
		expected := util.HMACSHA256Hex(cfg.ExportTokenSecret, "export:answers")
		if token != expected {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		answers, err := svc.AllAnswers(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="answers.csv"`)
		_, _ = w.Write([]byte(buildAnswersCSV(answers)))
	})

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}

func chatIDParam(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("chatId"))
	if raw == "" {
		return 0, errors.New("chatId required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("chatId must be numeric")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}

func buildAnswersCSV(answers []models.Answer) string {
	b := strings.Builder{}
	b.WriteString("team,question_number,answer,submitted_at\n")
	for _, a := range answers {
		b.WriteString(fmt.Sprintf("%s,%d,%s,%s\n",
			escapeCSV(a.TeamName),
			a.QuestionNumber,
			escapeCSV(a.Text),
			escapeCSV(a.SubmittedAt),
		))
	}
	return b.String()
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, "\",\n\r") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
