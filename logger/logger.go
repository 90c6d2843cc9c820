package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	InfoLogger  *logrus.Logger
	WarnLogger  *logrus.Logger
	ErrorLogger *logrus.Logger
)

// InitLoggers sets up the shared loggers. Each logger writes to stdout and to a
// rotating file so container logs and on-disk logs stay in sync.
func InitLoggers() {
	fileOutput := &lumberjack.Logger{
		Filename:   "logs/app.log",
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}

	InfoLogger = newLogger(logrus.InfoLevel, fileOutput)
	WarnLogger = newLogger(logrus.WarnLevel, fileOutput)
	ErrorLogger = newLogger(logrus.ErrorLevel, fileOutput)
}

func newLogger(level logrus.Level, fileOutput io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.MultiWriter(os.Stdout, fileOutput))
	l.SetLevel(level)

	if os.Getenv("ENV") == "production" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return l
}
