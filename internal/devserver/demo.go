package devserver

import "github.com/abhisek/coursetrack/internal/course"

// DemoCourseID is the ID of the course seeded into every new Server.
const DemoCourseID = "go-fundamentals"

// DemoCourse returns the seeded demo course. It includes an empty module so
// navigation across it can be exercised by hand.
func DemoCourse() course.Course {
	return course.Course{
		ID:           DemoCourseID,
		Title:        "Go Fundamentals",
		HasFinalExam: true,
		Modules: []course.Module{
			{
				ID:   "m1",
				Name: "Getting Started",
				Lessons: []course.Lesson{
					{
						ID: "l1", Title: "Why Go", Type: course.LessonVideo, DurationMinutes: 2,
						VideoURL: "https://videos.example.com/why-go.mp4",
						Resources: []course.Resource{
							{ID: "r1", Title: "Slides", Type: course.ResourceDocument, FileURL: "/files/why-go.pdf"},
							{ID: "r2", Title: "go.dev", Type: course.ResourceLink, ExternalURL: "https://go.dev"},
						},
					},
					{ID: "l2", Title: "Installing the toolchain", Type: course.LessonReading, DurationMinutes: 10},
					{ID: "l3", Title: "Basics check", Type: course.LessonQuiz, DurationMinutes: 5},
				},
			},
			{
				ID:   "m2",
				Name: "Concurrency",
				Lessons: []course.Lesson{
					{
						ID: "l4", Title: "Goroutines and channels", Type: course.LessonVideo, DurationMinutes: 3,
						VideoURL: "https://videos.example.com/goroutines.mp4",
					},
					{ID: "l5", Title: "Build a worker pool", Type: course.LessonAssignment, DurationMinutes: 45},
				},
			},
			{ID: "m3", Name: "Bonus material"},
			{
				ID:   "m4",
				Name: "Wrap-up",
				Lessons: []course.Lesson{
					{
						ID: "l6", Title: "Where to go next", Type: course.LessonVideo, DurationMinutes: 1,
						VideoURL: "https://videos.example.com/next.mp4",
						Resources: []course.Resource{
							{ID: "r3", Title: "Effective Go", Type: course.ResourceLink, ExternalURL: "https://go.dev/doc/effective_go"},
						},
					},
				},
			},
		},
	}
}
