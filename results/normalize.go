// Package results reconciles the result shapes returned by the different
// grading paths into models.QuizResult.
package results

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"medprep-server/models"
	"medprep-server/utils"
)

type object = map[string]interface{}

// Normalize decodes raw and reconciles it into a QuizResult. It reports false
// when none of the known shapes carries result counts.
func Normalize(raw []byte) (*models.QuizResult, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var data object
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, false
	}
	return NormalizeObject(data)
}

// NormalizeObject tries data.result.analysis, data.analysis and data, in that
// order, and uses the first one carrying counts.
func NormalizeObject(data object) (*models.QuizResult, bool) {
	if data == nil {
		return nil, false
	}
	wrapped := asObject(data["result"])
	var shape object
	for _, candidate := range []object{asObject(wrapped["analysis"]), asObject(data["analysis"]), data} {
		if hasCounts(candidate) {
			shape = candidate
			break
		}
	}
	if shape == nil {
		return nil, false
	}

	res := &models.QuizResult{
		QuizID:         firstString(data, wrapped, "quizId", "quiz_id"),
		Title:          firstString(data, wrapped, "title", "quizTitle"),
		TotalQuestions: intField(shape, "totalQuestions", "total_questions"),
		CorrectAnswers: intField(shape, "correctAnswers", "correct_answers"),
		Unanswered:     intField(shape, "unanswered", "unansweredQuestions", "skipped"),
	}
	if has(shape, "wrongAnswers", "incorrectAnswers", "wrong_answers", "incorrect_answers") {
		res.IncorrectAnswers = intField(shape, "wrongAnswers", "incorrectAnswers", "wrong_answers", "incorrect_answers")
	} else {
		res.IncorrectAnswers = res.TotalQuestions - res.CorrectAnswers - res.Unanswered
		if res.IncorrectAnswers < 0 {
			res.IncorrectAnswers = 0
		}
	}
	if has(shape, "percentage", "scorePercent", "score_percent") {
		res.Percentage = intField(shape, "percentage", "scorePercent", "score_percent")
	} else {
		res.Percentage = utils.RoundPercent(res.CorrectAnswers, res.TotalQuestions)
	}

	for _, src := range []object{shape, wrapped, data} {
		if has(src, "timeTaken", "time_taken", "timeTakenSeconds") {
			res.TimeTaken = intField(src, "timeTaken", "time_taken", "timeTakenSeconds")
			break
		}
	}

	res.Review = reviewItems(data, wrapped)
	return res, true
}

// reviewItems takes the first non-empty list among review, questions,
// result.details and details.
func reviewItems(data, wrapped object) []models.ReviewItem {
	for _, list := range []interface{}{data["review"], data["questions"], wrapped["details"], data["details"]} {
		items, ok := list.([]interface{})
		if !ok || len(items) == 0 {
			continue
		}
		out := make([]models.ReviewItem, 0, len(items))
		for _, it := range items {
			if obj := asObject(it); obj != nil {
				out = append(out, reviewItem(obj))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []models.ReviewItem{}
}

func reviewItem(obj object) models.ReviewItem {
	item := models.ReviewItem{
		QuestionText:     stringField(obj, "questionText", "question_text", "question", "text"),
		Options:          options(obj["options"]),
		UserAnswerKey:    strings.ToLower(stringField(obj, "userAnswerKey", "userAnswer", "selectedKey", "selectedOption", "selected_option", "user_answer")),
		CorrectAnswerKey: strings.ToLower(stringField(obj, "correctAnswerKey", "correctAnswer", "correct_answer", "correct_key")),
		Explanation:      stringField(obj, "explanation"),
	}
	if b, ok := boolField(obj, "isCorrect", "is_correct", "correct"); ok {
		item.IsCorrect = b
	} else {
		item.IsCorrect = item.UserAnswerKey != "" && item.UserAnswerKey == item.CorrectAnswerKey
	}
	return item
}

// options accepts a list of strings, a list of {text} objects or a letter-keyed map.
func options(v interface{}) []string {
	switch opts := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(opts))
		for _, o := range opts {
			switch o := o.(type) {
			case string:
				out = append(out, o)
			case map[string]interface{}:
				out = append(out, stringField(o, "text", "option", "value"))
			}
		}
		return out
	case map[string]interface{}:
		keys := make([]string, 0, len(opts))
		for k := range opts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			if s, ok := opts[k].(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func hasCounts(o object) bool {
	return has(o, "totalQuestions", "total_questions", "correctAnswers", "correct_answers")
}

func has(o object, keys ...string) bool {
	if o == nil {
		return false
	}
	for _, k := range keys {
		if v, ok := o[k]; ok && v != nil {
			return true
		}
	}
	return false
}

func asObject(v interface{}) object {
	o, _ := v.(map[string]interface{})
	return o
}

func intField(o object, keys ...string) int {
	for _, k := range keys {
		switch v := o[k].(type) {
		case float64:
			return int(math.Round(v))
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return int(math.Round(f))
			}
		}
	}
	return 0
}

func stringField(o object, keys ...string) string {
	for _, k := range keys {
		switch v := o[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func boolField(o object, keys ...string) (bool, bool) {
	for _, k := range keys {
		if b, ok := o[k].(bool); ok {
			return b, true
		}
	}
	return false, false
}

func firstString(a, b object, keys ...string) string {
	if s := stringField(a, keys...); s != "" {
		return s
	}
	return stringField(b, keys...)
}
