// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"encoding/json"
	"io"
	"time"
)

// StandardObserver records per-stage timings for the screening pipeline.
type StandardObserver struct {
	level         ObservabilityLevel
	writer        io.Writer
	DebugObserver *DebugObserver // set when running in debug mode
}

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityDebug   ObservabilityLevel = 2
)

// NewStandardObserver creates an observer writing to writer at the given level.
func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	return &StandardObserver{
		level:  level,
		writer: writer,
	}
}

// StartTiming returns a function to complete timing for one stage.
func (o *StandardObserver) StartTiming(component, operation, inputPath string) func(success bool, metadata map[string]interface{}) {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		duration := time.Since(start)

		data := StageObservabilityData{
			Component:  component,
			Operation:  operation,
			InputPath:  inputPath,
			DurationMs: duration.Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		}

		o.LogOperation(data)
	}
}

// LogOperation logs one stage record.
func (o *StandardObserver) LogOperation(data StageObservabilityData) {
	if o.level == ObservabilityOff {
		return
	}

	data.RunID = "run-" + time.Now().Format("20060102-150405")

	// Only log JSON in debug mode
	if o.level == ObservabilityDebug {
		json.NewEncoder(o.writer).Encode(data)
	}
}

// StageObservabilityData describes one pipeline stage execution.
type StageObservabilityData struct {
	Component   string                 `json:"component"`
	Operation   string                 `json:"operation"`
	RunID       string                 `json:"run_id"`
	InputPath   string                 `json:"input_path,omitempty"`
	DurationMs  int64                  `json:"duration_ms,omitempty"`
	Success     bool                   `json:"success"`
	Error       string                 `json:"error,omitempty"`
	RecordCount int                    `json:"record_count,omitempty"`
	FlagCount   int                    `json:"flag_count,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
