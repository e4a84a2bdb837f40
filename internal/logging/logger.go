package logging

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/zzenonn/raiden/internal/config"
)

// InitLogger sets the log level and format based on the provided configuration.
// Log output goes to stderr so it never mixes with progress bars or command results.
func InitLogger(cfg *config.Config) {
	setLogLevel(cfg.LogLevel)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	log.SetOutput(os.Stderr)
}

// InitFromEnv initializes logging from the LOG_LEVEL environment variable
func InitFromEnv() {
	setLogLevel(os.Getenv("LOG_LEVEL"))
}

// ForDiskSet returns a logger tagged with the source file and disk count of
// the operation.
func ForDiskSet(source string, diskCount int) *log.Entry {
	return log.WithFields(log.Fields{
		"source": source,
		"disks":  diskCount,
	})
}

// setLogLevel accepts any logrus level name; unknown or empty names log errors only
func setLogLevel(logLevel string) {
	level, err := log.ParseLevel(strings.TrimSpace(logLevel))
	if err != nil {
		level = log.ErrorLevel
	}
	log.SetLevel(level)
}

func init() {
	InitFromEnv()
}
