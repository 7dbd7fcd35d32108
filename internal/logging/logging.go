package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

type Logger struct {
	Verbose bool
	Debug   bool

	// Out and Err default to os.Stdout and os.Stderr
	Out io.Writer
	Err io.Writer
}

// New returns a logger writing to the standard streams
func New(verbose, debug bool) *Logger {
	return &Logger{Verbose: verbose || debug, Debug: debug}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return &Logger{Out: io.Discard, Err: io.Discard}
}

func (l *Logger) out() io.Writer {
	if l.Out != nil {
		return l.Out
	}
	return os.Stdout
}

func (l *Logger) err() io.Writer {
	if l.Err != nil {
		return l.Err
	}
	return os.Stderr
}

func (l *Logger) Infof(msg string, args ...any) {
	if l == nil || !l.Verbose {
		return
	}
	fmt.Fprintf(l.out(), color.GreenString("[info] ")+msg+"\n", args...)
}

func (l *Logger) Debugf(msg string, args ...any) {
	if l == nil || !l.Debug {
		return
	}
	fmt.Fprintf(l.out(), color.CyanString("[debug] ")+msg+"\n", args...)
}

func (l *Logger) Warnf(msg string, args ...any) {
	if l == nil {
		return
	}
	fmt.Fprintf(l.err(), color.YellowString("[warn] ")+msg+"\n", args...)
}

func (l *Logger) Errorf(msg string, args ...any) {
	if l == nil {
		return
	}
	fmt.Fprintf(l.err(), color.RedString("[error] ")+msg+"\n", args...)
}

// ErrorfAndReturn logs the error and returns it for the caller to propagate
func (l *Logger) ErrorfAndReturn(msg string, args ...any) error {
	err := fmt.Errorf(msg, args...)
	if l != nil && l.Debug {
		l.Errorf("%v", err)
	}
	return err
}
