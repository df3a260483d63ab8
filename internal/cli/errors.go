package cli

import (
	"fmt"

	"gridedit/internal/grid"
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

// noticeError carries a failure notice from the controller to the exit code.
type noticeError struct {
	notice grid.Notice
}

func (e noticeError) Error() string { return e.notice.Text }

// noticeErr returns nil unless n reports a failure.
func noticeErr(n grid.Notice) error {
	if n.Kind != grid.NoticeError {
		return nil
	}
	return noticeError{notice: n}
}

type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

func errUsage(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}
