package api

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/abhisek/coursetrack/internal/course"
)

func TestID_Unmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want ID
		err  bool
	}{
		{`"abc"`, "abc", false},
		{`42`, "42", false},
		{`null`, "", false},
		{`true`, "", true},
	}
	for _, tt := range tests {
		var id ID
		err := json.Unmarshal([]byte(tt.in), &id)
		if (err != nil) != tt.err {
			t.Errorf("Unmarshal(%s) err = %v, want err %v", tt.in, err, tt.err)
			continue
		}
		if id != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, id, tt.want)
		}
	}
}

func TestValidateCourseTracking(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		valid bool
	}{
		{"minimal", `{"course":{"id":"c1"}}`, true},
		{"numeric ids", `{"course":{"id":1,"modules":[{"id":2,"lessons":[{"id":3}]}]}}`, true},
		{"null arrays", `{"course":{"id":"c1","modules":null},"assignments":null}`, true},
		{"missing course", `{}`, false},
		{"module without id", `{"course":{"id":"c1","modules":[{"name":"x"}]}}`, false},
		{"negative duration", `{"course":{"id":"c1","modules":[{"id":"m","lessons":[{"id":"l","duration_minutes":-1}]}]}}`, false},
		{"resource without id", `{"course":{"id":"c1","modules":[{"id":"m","lessons":[{"id":"l","resources":[{"title":"x"}]}]}]}}`, false},
		{"not json", `{`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCourseTracking([]byte(tt.raw))
			if tt.valid && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidPayload) {
					t.Errorf("err = %v, want ErrInvalidPayload", err)
				}
			}
		})
	}
}

func TestToCourse(t *testing.T) {
	p := CoursePayload{
		ID: "c1",
		Modules: []ModulePayload{{
			ID: "A",
			Lessons: []LessonPayload{
				{ID: "A1", LessonType: "video", Resources: []ResourcePayload{
					{ID: "r1", ResourceType: "mystery", ExternalURL: "https://x"},
					{ID: "r2", ResourceType: "mystery", FileURL: "/f"},
					{ID: "r3", ResourceType: "note", FileURL: "/n"},
				}},
				{ID: "A2", LessonType: "livestream"},
			},
		}},
	}
	c, unknown := ToCourse(p)
	if len(unknown) != 1 || unknown[0] != "livestream" {
		t.Errorf("unknown = %v, want [livestream]", unknown)
	}
	lessons := c.Modules[0].Lessons
	if lessons[1].Type != course.LessonReading {
		t.Errorf("unknown lesson type = %s, want reading", lessons[1].Type)
	}
	wantRes := []course.ResourceType{course.ResourceLink, course.ResourceDocument, course.ResourceNote}
	for i, want := range wantRes {
		if got := lessons[0].Resources[i].Type; got != want {
			t.Errorf("resource %d type = %s, want %s", i, got, want)
		}
	}
}

func TestErrorMatching(t *testing.T) {
	se := &StatusError{Op: "x", StatusCode: 500}
	te := &TransportError{Op: "x", Err: errors.New("dial")}
	pe := &PayloadError{What: "x", Err: errors.New("bad")}

	if !errors.Is(se, ErrNetworkFailure) || !errors.Is(te, ErrNetworkFailure) {
		t.Error("status and transport errors must match ErrNetworkFailure")
	}
	if errors.Is(pe, ErrNetworkFailure) {
		t.Error("payload errors must not match ErrNetworkFailure")
	}
	if !errors.Is(pe, ErrInvalidPayload) {
		t.Error("payload errors must match ErrInvalidPayload")
	}
	if !se.Temporary() || (&StatusError{StatusCode: 400}).Temporary() {
		t.Error("Temporary misclassifies status codes")
	}
}
