package middleware

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// Logger only logs slow or failed requests; gallery browsing produces a lot
// of fast successful reads.
func Logger() fiber.Handler {
	return logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		Output:     newFilteredWriter(os.Stdout),
	})
}

func newFilteredWriter(dest io.Writer) *filteredWriter {
	return &filteredWriter{
		dest:             dest,
		slowThreshold:    500 * time.Millisecond,
		errorStatusFloor: 400,
	}
}

// filteredWriter drops log lines of the form
//
//	"15:04:05 | 200 | 1.23ms | GET /path\n"
//
// unless the status is an error or the latency is over the threshold.
// Lines it cannot parse are written through.
type filteredWriter struct {
	dest             io.Writer
	slowThreshold    time.Duration
	errorStatusFloor int
}

func (w *filteredWriter) Write(p []byte) (int, error) {
	parts := strings.Split(string(p), " | ")
	if len(parts) < 3 {
		return w.dest.Write(p)
	}

	if status, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && status >= w.errorStatusFloor {
		return w.dest.Write(p)
	}

	if dur, err := time.ParseDuration(strings.TrimSpace(parts[2])); err == nil && dur >= w.slowThreshold {
		return w.dest.Write(p)
	}

	return len(p), nil
}
