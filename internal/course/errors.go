package course

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every lookup failure in the graph.
	ErrNotFound = errors.New("not found")

	ErrModuleNotFound = fmt.Errorf("module %w", ErrNotFound)
	ErrLessonNotFound = fmt.Errorf("lesson %w", ErrNotFound)

	// ErrInvalidRange is returned for playback values outside their bounds.
	ErrInvalidRange = errors.New("value out of range")

	// ErrDuplicateID is returned when a course payload reuses an ID.
	ErrDuplicateID = errors.New("duplicate id")
)
