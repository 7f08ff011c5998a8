package config

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the logger every component receives. Debug lowers the
// level so resolution traces show up.
func NewLogger(out io.Writer, debug bool) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		DisableTimestamp: !debug,
	})
	if debug {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return logrus.NewEntry(log)
}
