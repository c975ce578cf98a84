package quiz

import (
	"errors"
	"strconv"
	"strings"
)

// Separator for chat submissions: "Название команды | Участники" and
// "Номер вопроса | Ответ". Exactly one occurrence is required.
const Separator = "|"

var (
	ErrNoSeparator   = errors.New("no separator in input")
	ErrManySeparator = errors.New("more than one separator in input")
	ErrEmptyField    = errors.New("empty field")
	ErrBadQuestion   = errors.New("question number is not a positive integer")
)

// SplitPair splits text on the single pipe into two trimmed fields.
func SplitPair(text string) (string, string, error) {
	if !strings.Contains(text, Separator) {
		return "", "", ErrNoSeparator
	}
	parts := strings.Split(text, Separator)
	if len(parts) != 2 {
		return "", "", ErrManySeparator
	}
	first := strings.TrimSpace(parts[0])
	second := strings.TrimSpace(parts[1])
	if first == "" || second == "" {
		return "", "", ErrEmptyField
	}
	return first, second, nil
}

// ParseQuestionNumber validates the first field of an answer submission.
func ParseQuestionNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, ErrBadQuestion
	}
	return n, nil
}
