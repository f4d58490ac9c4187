// Package applog provides the prefixed log.Printf wrappers used
// throughout srscore, following a "backup: ...", "server: ..." tag
// convention for a single-process daemon.
package applog

import "log"

// Logger writes lines prefixed with a fixed component tag.
type Logger struct {
	component string
}

// New returns a Logger tagging every line with component, e.g. "server".
func New(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) Printf(format string, args ...any) {
	log.Printf("["+l.component+"] "+format, args...)
}

func (l *Logger) Println(args ...any) {
	log.Println(append([]any{"[" + l.component + "]"}, args...)...)
}
