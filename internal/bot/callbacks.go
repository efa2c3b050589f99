package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Callback data of inline buttons.
const (
	callbackStartTest      = "start_test"
	callbackTestContinue   = "test_continue"
	callbackTestRestart    = "test_restart"
	callbackTestCancel     = "test_cancel"
	callbackExerciseFinish = "exercise_finish"

	prefixTestAnswer = "test_answer_"
	prefixExercise   = "ex"
)

var (
	ErrCallbackFormat = errors.New("malformed callback data")
	ErrCallbackIndex  = errors.New("invalid exercise index in callback data")
)

// exerciseCallback is a decoded "ex:<session>:<index>:<letter>" payload.
type exerciseCallback struct {
	Session string
	Index   int
	Letter  string
}

func encodeExerciseCallback(session string, index int, letter string) string {
	return fmt.Sprintf("%s:%s:%d:%s", prefixExercise, session, index, letter)
}

func parseExerciseCallback(data string) (exerciseCallback, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 4 || parts[0] != prefixExercise {
		return exerciseCallback{}, fmt.Errorf("%w: %q", ErrCallbackFormat, data)
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil {
		return exerciseCallback{}, fmt.Errorf("%w: %q", ErrCallbackIndex, parts[2])
	}
	letter := strings.ToUpper(strings.TrimSpace(parts[3]))
	if len(letter) != 1 || letter < "A" || letter > "D" {
		return exerciseCallback{}, fmt.Errorf("%w: letter %q", ErrCallbackFormat, parts[3])
	}
	return exerciseCallback{Session: parts[1], Index: index, Letter: letter}, nil
}

func encodeTestAnswer(label string) string {
	return prefixTestAnswer + label
}

func parseTestAnswer(data string) (string, error) {
	label, ok := strings.CutPrefix(data, prefixTestAnswer)
	label = strings.ToLower(strings.TrimSpace(label))
	if !ok || len(label) != 1 || label < "a" || label > "d" {
		return "", fmt.Errorf("%w: %q", ErrCallbackFormat, data)
	}
	return label, nil
}

// questionNumber reads N from a rendered "❓ Вопрос N/M" message.
func questionNumber(text string) (int, bool) {
	rest, ok := strings.CutPrefix(text, questionPrefix)
	if !ok {
		return 0, false
	}
	num, _, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
