package dispatch

import "fmt"

// Stage is the step of Handle that failed.
type Stage int

const (
	StageRender Stage = iota
	StagePublish
)

func (s Stage) String() string {
	if s == StagePublish {
		return "publish"
	}
	return "render"
}

// Error carries the failed event alongside the cause, which is a
// *templates.TemplateError for StageRender and the publisher's error for
// StagePublish.
type Error struct {
	Stage Stage
	Event Event
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("dispatch %s %s/%s (%s): %v", e.Stage, e.Event.Group, e.Event.Name, e.Event.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
