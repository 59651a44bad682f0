package components

import (
	"github.com/abhisek/coursetrack/internal/course"
)

// TypeLabel is the display form of a lesson or resource type.
type TypeLabel struct {
	Icon  string
	Label string
}

var lessonTypes = map[course.LessonType]TypeLabel{
	course.LessonVideo:      {Icon: "▶", Label: "Video"},
	course.LessonQuiz:       {Icon: "?", Label: "Quiz"},
	course.LessonAssignment: {Icon: "✎", Label: "Assignment"},
	course.LessonReading:    {Icon: "≡", Label: "Reading"},
}

var resourceTypes = map[course.ResourceType]TypeLabel{
	course.ResourceDocument: {Icon: "□", Label: "Document"},
	course.ResourceVideo:    {Icon: "▶", Label: "Video"},
	course.ResourceLink:     {Icon: "↗", Label: "Link"},
	course.ResourceNote:     {Icon: "✎", Label: "Note"},
}

// LessonType returns the icon and label of a lesson type.
func LessonType(t course.LessonType) TypeLabel {
	if l, ok := lessonTypes[t]; ok {
		return l
	}
	return lessonTypes[course.LessonReading]
}

// ResourceType returns the icon and label of a resource type.
func ResourceType(t course.ResourceType) TypeLabel {
	if l, ok := resourceTypes[t]; ok {
		return l
	}
	return resourceTypes[course.ResourceDocument]
}

// Checkmark renders a lesson completion mark.
func Checkmark(done bool) string {
	if done {
		return "✓"
	}
	return "○"
}
