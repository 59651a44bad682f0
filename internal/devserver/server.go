// Package devserver is an in-memory course backend for local development
// and client tests. It serves the tracking, progress, completion and
// certificate endpoints.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/abhisek/coursetrack/internal/api"
	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/logger"
	"github.com/abhisek/coursetrack/internal/validation"
)

// courseState is the server-side record of one enrolled course.
type courseState struct {
	course      course.Course
	certificate *api.Certificate
	progress    map[string]api.VideoProgress
}

// Server holds the in-memory backend state.
type Server struct {
	mu      sync.Mutex
	courses map[string]*courseState
	token   string
	log     *logger.Logger
	now     func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires every request to carry "Authorization: Bearer token".
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithCourse adds or replaces a served course.
func WithCourse(c course.Course) Option {
	c.Modules = append([]course.Module(nil), c.Modules...)
	for i := range c.Modules {
		c.Modules[i].Lessons = append([]course.Lesson(nil), c.Modules[i].Lessons...)
	}
	return func(s *Server) {
		s.courses[c.ID] = &courseState{course: c, progress: make(map[string]api.VideoProgress)}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New creates a server seeded with the demo course.
func New(opts ...Option) *Server {
	s := &Server{
		courses: make(map[string]*courseState),
		log:     logger.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	WithCourse(DemoCourse())(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the gin engine serving the API.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLog())

	router.GET("/healthcheck", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api")
	apiGroup.Use(s.requireToken())
	{
		apiGroup.GET("/courses/:id/tracking", s.getTracking)
		apiGroup.GET("/courses/:id/completion", s.getCompletion)
		apiGroup.POST("/progress/lessons/complete", s.completeLesson)
		apiGroup.POST("/progress/video", s.reportVideo)
		apiGroup.POST("/certificates", s.generateCertificate)
	}
	return router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.token == "" {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+s.token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

func (s *Server) getTracking(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.courses[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"course": api.FromCourse(st.course),
		"enrollment": gin.H{
			"course_id":   st.course.ID,
			"enrolled_at": "2025-01-01T00:00:00Z",
		},
		"assignments": []any{},
		"exams":       []any{},
		"quizzes":     []any{},
		"final_exam":  nil,
	})
}

func (s *Server) getCompletion(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.courses[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	c.JSON(http.StatusOK, s.completion(st))
}

func (s *Server) completeLesson(c *gin.Context) {
	var req api.CompleteLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.courses[req.CourseID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	if !setCompleted(&st.course, req.LessonID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lesson not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lesson_id": req.LessonID, "completed": true})
}

func (s *Server) reportVideo(c *gin.Context) {
	var req api.VideoProgress
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.courses[req.CourseID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	if !hasLesson(st.course, req.LessonID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lesson not found"})
		return
	}
	st.progress[req.LessonID] = req
	c.JSON(http.StatusOK, gin.H{"lesson_id": req.LessonID, "progress_percentage": req.ProgressPercentage})
}

func (s *Server) generateCertificate(c *gin.Context) {
	var req api.CertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.courses[req.CourseID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	if st.certificate != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Certificate already issued for this course"})
		return
	}
	if !s.completion(st).IsCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Complete all lessons before requesting a certificate"})
		return
	}

	st.certificate = &api.Certificate{
		ID:                api.ID(uuid.NewString()),
		CourseID:          api.ID(st.course.ID),
		CertificateNumber: fmt.Sprintf("CT-%s-%d", strings.ToUpper(st.course.ID), s.now().Unix()),
		IssuedAt:          s.now(),
	}
	c.JSON(http.StatusCreated, st.certificate)
}

// completion derives the completion status of a course. A module counts as
// completed when none of its lessons is pending.
func (s *Server) completion(st *courseState) api.CompletionStatus {
	total, done := 0, 0
	out := api.CompletionStatus{
		TotalModules:   len(st.course.Modules),
		HasCertificate: st.certificate != nil,
	}
	for _, m := range st.course.Modules {
		total += m.TotalLessons()
		done += m.CompletedLessons()
		if m.CompletedLessons() == m.TotalLessons() {
			out.CompletedModules++
		}
	}
	out.IsCompleted = total > 0 && done == total
	return out
}

// SetLessonCompleted flips a lesson without going through HTTP, for tests
// that need the server to disagree with a client.
func (s *Server) SetLessonCompleted(courseID, lessonID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.courses[courseID]
	if !ok {
		return false
	}
	return setCompleted(&st.course, lessonID)
}

// VideoProgress returns the last progress report received for a lesson.
func (s *Server) VideoProgress(courseID, lessonID string) (api.VideoProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.courses[courseID]
	if !ok {
		return api.VideoProgress{}, false
	}
	p, ok := st.progress[lessonID]
	return p, ok
}

func setCompleted(c *course.Course, lessonID string) bool {
	found := false
	for mi := range c.Modules {
		for li := range c.Modules[mi].Lessons {
			if c.Modules[mi].Lessons[li].ID == lessonID {
				c.Modules[mi].Lessons[li].Completed = true
				found = true
			}
		}
	}
	return found
}

func hasLesson(c course.Course, lessonID string) bool {
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			if l.ID == lessonID {
				return true
			}
		}
	}
	return false
}
