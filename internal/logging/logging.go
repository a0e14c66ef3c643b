// Package logging настраивает logrus для всех бинарников.
package logging

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// Setup задаёт формат (text | json) и уровень логов.
// Неизвестный уровень оставляет info.
func Setup(format, level string) {
	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	log.SetOutput(os.Stdout)

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
