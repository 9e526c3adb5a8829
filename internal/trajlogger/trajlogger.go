// Package trajlogger is the Trajectory Logger: a best-effort, one
// JSON-file-per-call recorder keyed by the key hash of the proxy key
// that made the call.
package trajlogger

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/memcomp/harness/internal/logging"
)

// Record is one model-call trajectory entry, mirroring the upstream
// proxy's standard_logging_object field-for-field.
type Record struct {
	Status           *string        `json:"status"`
	KeyHash          string         `json:"keyhash"`
	UserID           *string        `json:"user_id"`
	StartTime        float64        `json:"start_time"`
	EndTime          *float64       `json:"end_time"`
	CallType         *string        `json:"call_type"`
	Model            *string        `json:"model"`
	UsageObject      any            `json:"usage_object"`
	CostBreakdown    any            `json:"cost_breakdown"`
	ModelParameters  any            `json:"model_parameters"`
	Instructions     any            `json:"instructions"`
	Messages         any            `json:"messages"`
	ErrorInformation any            `json:"error_information"`
	Response         any            `json:"response"`
	ResponseHeaders  any            `json:"response_headers"`
}

// Logger writes Records under <base>/<keyhash[:20]>/<serial>.json.
type Logger struct {
	base string
}

// New returns a Logger rooted at base (e.g. /mnt/trajs).
func New(base string) *Logger {
	return &Logger{base: base}
}

// Write persists rec. Failures are logged; a record that fails to
// serialize is replaced on disk by an exception record at the same
// path. The logger never returns an error, matching the original
// callback contract which must not disrupt the proxy's own request
// handling.
func (l *Logger) Write(rec Record) {
	defer func() {
		if p := recover(); p != nil {
			logging.WithComponent("trajlogger").Error().
				Interface("panic", p).Msg("trajectory write panicked")
		}
	}()

	if rec.KeyHash == "" {
		logging.WithComponent("trajlogger").Error().Msg("trajectory record missing keyhash")
		return
	}

	keyPrefix := rec.KeyHash
	if len(keyPrefix) > 20 {
		keyPrefix = keyPrefix[:20]
	}

	dir := filepath.Join(l.base, keyPrefix)
	serial := fmt.Sprintf("%.0f_%06d", rec.StartTime*1000, rand.Intn(1_000_000))
	outPath := filepath.Join(dir, serial+".json")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		logging.WithComponent("trajlogger").Error().Err(err).Msg("failed to create trajectory dir")
		return
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		l.writeFallback(outPath, err)
		return
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		logging.WithComponent("trajlogger").Error().Err(err).Str("path", outPath).Msg("failed to write trajectory file")
	}
}

// fallbackRecord is written in place of a Record that failed to
// serialize, so the call is still accounted for on disk.
type fallbackRecord struct {
	Status          string `json:"status"`
	ExceptionType   string `json:"exception_type"`
	ExceptionMessage string `json:"exception_message"`
}

func (l *Logger) writeFallback(outPath string, cause error) {
	logging.WithComponent("trajlogger").Error().Err(cause).Msg("failed to log trajectory")

	data, _ := json.MarshalIndent(fallbackRecord{
		Status:           "exception",
		ExceptionType:    fmt.Sprintf("%T", cause),
		ExceptionMessage: cause.Error(),
	}, "", "  ")
	_ = os.WriteFile(outPath, data, 0o644)
}

// Now returns the current time as the float64 epoch-seconds value the
// original implementation's start_time/end_time fields use.
func Now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
