package models

import (
	"encoding/json"
	"testing"
)

func TestUser_UnmarshalAliases(t *testing.T) {
	tests := []struct {
		name string
		body string
		want User
	}{
		{
			name: "snake case",
			body: `{"user_id":"u1","has_active_subscription":true,"course_id":"c1"}`,
			want: User{UserID: "u1", HasActiveSubscription: true, CourseID: "c1"},
		},
		{
			name: "id and camel case",
			body: `{"id":"u2","hasActiveSubscription":true,"courseId":"c2"}`,
			want: User{UserID: "u2", HasActiveSubscription: true, CourseID: "c2"},
		},
		{
			name: "numeric uuid",
			body: `{"uuid":42,"name":"Asha"}`,
			want: User{UserID: "42", Name: "Asha"},
		},
		{
			name: "user_id wins over id",
			body: `{"id":"legacy","user_id":"u3"}`,
			want: User{UserID: "u3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got User
			if err := json.Unmarshal([]byte(tt.body), &got); err != nil {
				t.Fatal(err)
			}
			if got.UserID != tt.want.UserID || got.HasActiveSubscription != tt.want.HasActiveSubscription ||
				got.CourseID != tt.want.CourseID || got.Name != tt.want.Name {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestUser_Subscriptions(t *testing.T) {
	var u User
	body := `{"id":"u1","subscriptions":[{"course_id":"c1","status":"active"},{"courseId":7}]}`
	if err := json.Unmarshal([]byte(body), &u); err != nil {
		t.Fatal(err)
	}
	if len(u.Subscriptions) != 2 || u.Subscriptions[0].CourseID != "c1" || u.Subscriptions[1].CourseID != "7" {
		t.Errorf("unexpected subscriptions %+v", u.Subscriptions)
	}
}

func TestQuestion_UnmarshalAliases(t *testing.T) {
	var q Question
	body := `{"question_id":11,"question_text":"Which nerve?","options":["A","B"],"correctAnswer":" B "}`
	if err := json.Unmarshal([]byte(body), &q); err != nil {
		t.Fatal(err)
	}
	if q.ID != "11" || q.Text != "Which nerve?" || q.CorrectAnswerKey != "b" || len(q.Options) != 2 {
		t.Errorf("unexpected question %+v", q)
	}
}

func TestOptionKeys(t *testing.T) {
	for i := 0; i < 26; i++ {
		if got := OptionIndex(OptionKey(i)); got != i {
			t.Errorf("round trip of %d gave %d", i, got)
		}
	}
	if OptionKey(26) != "" || OptionKey(-1) != "" {
		t.Error("expected no key outside a..z")
	}
	if OptionIndex("C") != 2 || OptionIndex("ab") != -1 || OptionIndex("1") != -1 {
		t.Error("unexpected OptionIndex result")
	}
}
