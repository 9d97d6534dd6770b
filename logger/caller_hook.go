package logger

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// wrapperPackages are skipped when resolving the caller of a log line, so
// Entry.Info and friends report the component's file rather than ours.
var wrapperPackages = []string{
	"github.com/sirupsen/logrus.",
	"hstrader/logger.",
}

type callerHook struct{}

func (h *callerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *callerHook) Fire(entry *logrus.Entry) error {
	if frame, ok := firstForeignFrame(); ok {
		entry.Caller = &frame
	}
	return nil
}

func firstForeignFrame() (runtime.Frame, bool) {
	var pcs [24]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !isWrapperFrame(frame.Function) {
			return frame, true
		}
		if !more {
			return runtime.Frame{}, false
		}
	}
}

func isWrapperFrame(function string) bool {
	for _, prefix := range wrapperPackages {
		if strings.HasPrefix(function, prefix) {
			return true
		}
	}
	return false
}
