package logger

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLogrusLoggerWithConfig(t *testing.T) {
	config := Configuration{
		EnableConsole:     true,
		ConsoleLevel:      Debug,
		ConsoleJSONFormat: false,
		EnableFile:        true,
		FileLevel:         Info,
		FileJSONFormat:    true,
		Filename:          filepath.Join(t.TempDir(), "connector.log"),
	}

	log := NewLogrusLoggerWithConfig(config)

	contextLogger := log.WithFields(Fields{"key1": "value1"})
	contextLogger.Debugf("Starting with logrus")
	contextLogger.Infof("Logrus is awesome")
}

func TestLogrusLogger(t *testing.T) {
	log := NewLogrusLogger(logrus.StandardLogger())

	contextLogger := log.WithFields(Fields{"key1": "value1"})
	contextLogger.Infof("Standard logrus logger")
}

func TestZapLoggerWithConfig(t *testing.T) {
	config := Configuration{
		EnableConsole:     true,
		ConsoleLevel:      Debug,
		ConsoleJSONFormat: true,
		EnableFile:        true,
		FileLevel:         Info,
		FileJSONFormat:    true,
		Filename:          filepath.Join(t.TempDir(), "connector.log"),
	}

	log := NewZapLoggerWithConfig(config)

	contextLogger := log.WithFields(Fields{"key1": "value1"})
	contextLogger.Debugf("Starting with zap")
	contextLogger.Infof("Zap is awesome")
}

func TestGetDefaultLogger(t *testing.T) {
	log := GetDefaultLogger()
	log.Infof("Default logger is logrus at info level")
}

func TestLogrusPanicfPanics(t *testing.T) {
	// Panicf must panic, not exit the process like Fatalf.
	lLogger := logrus.New()
	lLogger.ExitFunc = func(int) { t.Fatal("Panicf exited instead of panicking") }

	log := NewLogrusLogger(lLogger)

	assertPanics := func(name string, fn func()) {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("%s did not panic", name)
			}
		}()
		fn()
	}

	assertPanics("Panicf", func() { log.Panicf("boom") })
	assertPanics("entry Panicf", func() { log.WithFields(Fields{"key1": "value1"}).Panicf("boom") })
}
