package apperr

import (
	"fmt"
	"runtime"
	"strings"
)

const maxStackDepth = 32

// Frame is one entry of a captured call stack.
type Frame struct {
	Function string
	File     string
	Line     int
}

func (f Frame) String() string {
	return fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line)
}

// CaptureStack records the stack of its caller, skipping skip additional frames.
func CaptureStack(skip int) []Frame {
	var pcs [maxStackDepth]uintptr

	n := runtime.Callers(skip+2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]Frame, 0, n)

	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			stack = append(stack, Frame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})
		}

		if !more {
			break
		}
	}

	return stack
}

// TrimPackage drops the leading frames that belong to pkgPath, leaving the
// first frame outside of it at index zero.
func TrimPackage(stack []Frame, pkgPath string) []Frame {
	prefix := pkgPath + "."

	for i, frame := range stack {
		if !strings.HasPrefix(frame.Function, prefix) {
			return stack[i:]
		}
	}

	return stack
}

// FormatStack renders a stack the way it is attached to developer-facing reports.
func FormatStack(stack []Frame) string {
	var sb strings.Builder

	for i, frame := range stack {
		fmt.Fprintf(&sb, "  %d. %s\n     %s:%d\n", i+1, frame.Function, frame.File, frame.Line)
	}

	return sb.String()
}
