package results_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"medprep-server/models"
	"medprep-server/results"
)

const analysis = `{"totalQuestions":3,"correctAnswers":2,"wrongAnswers":1,"timeTaken":120}`

func TestNormalize_ShapesAgree(t *testing.T) {
	shapes := map[string]string{
		"flat":    analysis,
		"nested":  `{"analysis":` + analysis + `}`,
		"wrapped": `{"result":{"analysis":` + analysis + `}}`,
	}
	var want *models.QuizResult
	for name, raw := range shapes {
		got, ok := results.Normalize([]byte(raw))
		if !ok {
			t.Fatalf("%s: expected shape to be recognized", name)
		}
		if got.TotalQuestions != 3 || got.CorrectAnswers != 2 || got.IncorrectAnswers != 1 || got.Percentage != 67 || got.TimeTaken != 120 {
			t.Errorf("%s: unexpected result %+v", name, got)
		}
		if want == nil {
			want = got
			continue
		}
		if !reflect.DeepEqual(want, got) {
			t.Errorf("%s: expected %+v, got %+v", name, want, got)
		}
	}
}

func TestNormalize_PrefersWrappedAnalysis(t *testing.T) {
	raw := `{"totalQuestions":10,"correctAnswers":1,"result":{"analysis":{"totalQuestions":4,"correctAnswers":4}}}`
	got, ok := results.Normalize([]byte(raw))
	if !ok {
		t.Fatal("expected shape to be recognized")
	}
	if got.TotalQuestions != 4 || got.Percentage != 100 {
		t.Errorf("expected result.analysis to win, got %+v", got)
	}
}

func TestNormalize_IncorrectAlias(t *testing.T) {
	got, _ := results.Normalize([]byte(`{"totalQuestions":5,"correctAnswers":2,"incorrectAnswers":2,"unanswered":1,"percentage":40}`))
	if got.IncorrectAnswers != 2 || got.Unanswered != 1 || got.Percentage != 40 {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestNormalize_DerivesWrongAnswers(t *testing.T) {
	got, _ := results.Normalize([]byte(`{"analysis":{"total_questions":"4","correct_answers":3}}`))
	if got.IncorrectAnswers != 1 {
		t.Errorf("expected 1 wrong answer, got %d", got.IncorrectAnswers)
	}
}

func TestNormalize_Unrecognized(t *testing.T) {
	for _, raw := range []string{``, `not json`, `{}`, `{"result":{"message":"pending"}}`, `[1,2]`} {
		if _, ok := results.Normalize([]byte(raw)); ok {
			t.Errorf("expected %q to be rejected", raw)
		}
	}
}

func TestNormalize_ReviewFallbacks(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"review", `{"totalQuestions":1,"correctAnswers":1,"review":[{"questionText":"Q1","options":["a","b"],"isCorrect":true,"userAnswerKey":"a","correctAnswerKey":"a"}]}`},
		{"questions", `{"totalQuestions":1,"correctAnswers":1,"review":[],"questions":[{"question":"Q1","options":["a","b"],"selectedKey":"A","correct_answer":"a"}]}`},
		{"result.details", `{"result":{"analysis":{"totalQuestions":1,"correctAnswers":1},"details":[{"question_text":"Q1","options":{"b":"b","a":"a"},"is_correct":true,"selected_option":"a","correct_answer":"a"}]}}`},
		{"details", `{"totalQuestions":1,"correctAnswers":1,"details":[{"text":"Q1","options":[{"text":"a"},{"text":"b"}],"userAnswer":"a","correctAnswer":"a"}]}`},
	}
	want := models.ReviewItem{QuestionText: "Q1", Options: []string{"a", "b"}, IsCorrect: true, UserAnswerKey: "a", CorrectAnswerKey: "a"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := results.Normalize([]byte(tt.raw))
			if !ok {
				t.Fatal("expected shape to be recognized")
			}
			if len(got.Review) != 1 {
				t.Fatalf("expected 1 review item, got %d", len(got.Review))
			}
			if !reflect.DeepEqual(got.Review[0], want) {
				t.Errorf("expected %+v, got %+v", want, got.Review[0])
			}
		})
	}
}

func TestNormalize_DirectResultRoundTrip(t *testing.T) {
	in := models.QuizResult{
		Title:            "Cardiology",
		TotalQuestions:   3,
		CorrectAnswers:   2,
		IncorrectAnswers: 1,
		Percentage:       67,
		TimeTaken:        30,
		Review: []models.ReviewItem{
			{QuestionText: "Q1", Options: []string{"x", "y"}, IsCorrect: true, UserAnswerKey: "a", CorrectAnswerKey: "a"},
		},
	}
	raw, _ := json.Marshal(in)
	got, ok := results.Normalize(raw)
	if !ok {
		t.Fatal("expected stored direct result to be recognized")
	}
	if !reflect.DeepEqual(*got, in) {
		t.Errorf("expected %+v, got %+v", in, *got)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		id       string
		wantKind results.Kind
		wantKey  string
	}{
		{"direct", results.KindDirect, ""},
		{"att-9-mock-test", results.KindMockTest, "att-9"},
		{"-mock-test", results.KindQuiz, "-mock-test"},
		{"res-1", results.KindQuiz, "res-1"},
	}
	for _, tt := range tests {
		kind, key := results.ParseID(tt.id)
		if kind != tt.wantKind || key != tt.wantKey {
			t.Errorf("ParseID(%q): expected (%v, %q), got (%v, %q)", tt.id, tt.wantKind, tt.wantKey, kind, key)
		}
	}
	if got := results.Route(results.MockTestID("att-9")); got != "/quiz-results/att-9-mock-test" {
		t.Errorf("unexpected route %s", got)
	}
}
