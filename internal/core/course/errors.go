package course

import "github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"

var (
	// ErrEnrollmentNotFound は受講情報が存在しない場合に返却されます。
	ErrEnrollmentNotFound = shared.NewError("course", "FindEnrollment", shared.ErrNotFound, "enrollment not found")
	// ErrCourseNotFound はコースが存在しない場合に返却されます。
	ErrCourseNotFound = shared.NewError("course", "FindCourse", shared.ErrNotFound, "course not found")
	// ErrLessonNotInCourse は受講中のコースに属さないレッスンが指定された場合に返却されます。
	ErrLessonNotInCourse = shared.NewError("course", "CompleteLesson", shared.ErrNotFound, "lesson not found in course")
	// ErrNoLessons はレッスン ID が指定されていない場合に返却されます。
	ErrNoLessons = shared.NewError("course", "Validate", shared.ErrValidation, "lesson ids are required")
)
