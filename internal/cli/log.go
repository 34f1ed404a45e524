package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/soothsayer-db/soothsayer"
)

const indentation = "    "

// Log represents the logger
type Log struct {
	logger  *logrus.Logger
	verbose bool
}

// NewLog returns a Log writing to out. Format is either "text" or "json".
func NewLog(out io.Writer, verbose bool, format string) (*Log, error) {
	logger := logrus.New()
	logger.SetOutput(out)
	switch strings.ToLower(format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableQuote: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q, expected text or json", format)
	}
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return &Log{logger: logger, verbose: verbose}, nil
}

// Log writes a migration event, indented under the event before it.
func (l *Log) Log(e soothsayer.Event) {
	msg := strings.Repeat(indentation, e.Indent) + e.Message
	switch e.Level {
	case soothsayer.LevelVerbose:
		l.logger.Debug(msg)
	case soothsayer.LevelWarn:
		l.logger.Warn(msg)
	default:
		l.logger.Info(msg)
	}
}

// Printf prints out formatted string into a log
func (l *Log) Printf(format string, v ...any) {
	l.logger.Infof(strings.TrimSuffix(format, "\n"), v...)
}

// Println prints out args into a log
func (l *Log) Println(args ...any) {
	l.logger.Infoln(args...)
}

// Verbose shows if verbose print enabled
func (l *Log) Verbose() bool {
	return l.verbose
}

func (l *Log) setVerbose(verbose bool) {
	l.verbose = verbose
	if verbose {
		l.logger.SetLevel(logrus.DebugLevel)
	} else {
		l.logger.SetLevel(logrus.InfoLevel)
	}
}

func (l *Log) fatalErr(err error) {
	l.logger.Error(err)
	os.Exit(1)
}
