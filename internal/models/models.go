package models

// Team is one registered quiz team. Column order in the "teams" sheet:
// teamName, people, dateReg, chatId.
type Team struct {
	Name         string
	Members      string
	RegisteredAt string // RFC3339
	ChatID       int64
}

// Answer is one submitted answer. Column order in the "answers" sheet:
// teamName, questionNumber, answer, timeSend. Answers are append-only;
// repeated submissions for the same question all stay.
type Answer struct {
	TeamName       string
	QuestionNumber int
	Text           string
	SubmittedAt    string // RFC3339
}

// TeamSummary is what the web app shows on the "my team" screen.
type TeamSummary struct {
	Team         Team
	AnswersCount int
	MembersCount int
}
