package api

import (
	"github.com/abhisek/coursetrack/internal/course"
)

// resourceTypes maps wire tags to resource types.
var resourceTypes = map[string]course.ResourceType{
	"document": course.ResourceDocument,
	"file":     course.ResourceDocument,
	"pdf":      course.ResourceDocument,
	"video":    course.ResourceVideo,
	"link":     course.ResourceLink,
	"url":      course.ResourceLink,
	"note":     course.ResourceNote,
}

// ToCourse converts a validated payload into the tracker's course model.
// Unknown lesson types become readings and unknown resource types are
// inferred from the URL they carry. The unknown lesson tags are returned
// so the caller can log them.
func ToCourse(p CoursePayload) (course.Course, []string) {
	var unknown []string
	c := course.Course{
		ID:           string(p.ID),
		Title:        p.Title,
		HasFinalExam: p.HasFinalExam,
		Modules:      make([]course.Module, 0, len(p.Modules)),
	}
	for _, mp := range p.Modules {
		m := course.Module{
			ID:      string(mp.ID),
			Name:    mp.Name,
			Lessons: make([]course.Lesson, 0, len(mp.Lessons)),
		}
		for _, lp := range mp.Lessons {
			lt, ok := course.ParseLessonType(lp.LessonType)
			if !ok {
				unknown = append(unknown, lp.LessonType)
			}
			l := course.Lesson{
				ID:              string(lp.ID),
				Title:           lp.Title,
				Type:            lt,
				DurationMinutes: lp.DurationMinutes,
				Completed:       lp.Completed,
				VideoURL:        lp.VideoURL,
				Resources:       make([]course.Resource, 0, len(lp.Resources)),
			}
			for _, rp := range lp.Resources {
				l.Resources = append(l.Resources, toResource(rp))
			}
			m.Lessons = append(m.Lessons, l)
		}
		c.Modules = append(c.Modules, m)
	}
	return c, unknown
}

func toResource(rp ResourcePayload) course.Resource {
	rt, ok := resourceTypes[rp.ResourceType]
	if !ok {
		rt = course.ResourceDocument
		if rp.ExternalURL != "" {
			rt = course.ResourceLink
		}
	}
	return course.Resource{
		ID:          string(rp.ID),
		Title:       rp.Title,
		Type:        rt,
		FileURL:     rp.FileURL,
		ExternalURL: rp.ExternalURL,
	}
}

// FromCourse converts the course model back into its wire form.
func FromCourse(c course.Course) CoursePayload {
	p := CoursePayload{
		ID:           ID(c.ID),
		Title:        c.Title,
		HasFinalExam: c.HasFinalExam,
		Modules:      make([]ModulePayload, 0, len(c.Modules)),
	}
	for _, m := range c.Modules {
		mp := ModulePayload{ID: ID(m.ID), Name: m.Name, Lessons: make([]LessonPayload, 0, len(m.Lessons))}
		for _, l := range m.Lessons {
			lp := LessonPayload{
				ID:              ID(l.ID),
				Title:           l.Title,
				DurationMinutes: l.DurationMinutes,
				LessonType:      string(l.Type),
				Completed:       l.Completed,
				VideoURL:        l.VideoURL,
				Resources:       make([]ResourcePayload, 0, len(l.Resources)),
			}
			for _, r := range l.Resources {
				lp.Resources = append(lp.Resources, ResourcePayload{
					ID:           ID(r.ID),
					Title:        r.Title,
					ResourceType: string(r.Type),
					FileURL:      r.FileURL,
					ExternalURL:  r.ExternalURL,
				})
			}
			mp.Lessons = append(mp.Lessons, lp)
		}
		p.Modules = append(p.Modules, mp)
	}
	return p
}
