package soothsayer

import "fmt"

// Level classifies an Event.
type Level int

const (
	// LevelVerbose events are only emitted when Logger.Verbose reports true.
	LevelVerbose Level = iota
	LevelText
	LevelInfo
	LevelWarn
)

func (l Level) String() string {
	switch l {
	case LevelVerbose:
		return "verbose"
	case LevelText:
		return "text"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Event is one progress message emitted while migrating. Indent nests a
// message under the one before it, e.g. script names under a count.
type Event struct {
	Level   Level
	Indent  int
	Message string
}

// Logger receives the events of a migration run. Formatting and destination
// are up to the implementation.
type Logger interface {
	Log(e Event)
	Verbose() bool
}

// emitter wraps an optional Logger.
type emitter struct {
	log Logger
}

func (e emitter) emit(level Level, indent int, format string, v ...interface{}) {
	if e.log == nil {
		return
	}
	if level == LevelVerbose && !e.log.Verbose() {
		return
	}
	e.log.Log(Event{Level: level, Indent: indent, Message: fmt.Sprintf(format, v...)})
}

func (e emitter) text(format string, v ...interface{}) { e.emit(LevelText, 0, format, v...) }

func (e emitter) info(format string, v ...interface{}) { e.emit(LevelInfo, 0, format, v...) }

func (e emitter) warn(indent int, format string, v ...interface{}) {
	e.emit(LevelWarn, indent, format, v...)
}

func (e emitter) verbose(indent int, format string, v ...interface{}) {
	e.emit(LevelVerbose, indent, format, v...)
}
