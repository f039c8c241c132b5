package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LogSink implements Sink by writing structured log output to a writer.
//
// Supports two output modes:
//   - Text mode (default): human-readable, key=value pairs.
//   - JSON mode: one JSON object per line (JSONL).
type LogSink struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogSink creates a LogSink. A nil writer defaults to os.Stdout.
func NewLogSink(writer io.Writer, jsonMode bool) *LogSink {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogSink{writer: writer, jsonMode: jsonMode}
}

// Emit writes a single event.
func (l *LogSink) Emit(event Event) {
	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

func (l *LogSink) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		RunID      string         `json:"run_id"`
		SeqID      int64          `json:"seq_id"`
		Type       string         `json:"type"`
		ProducerID string         `json:"producer_id"`
		Payload    map[string]any `json:"payload"`
	}{event.RunID, event.SeqID, event.Type, event.ProducerID, event.Payload})
	if err != nil {
		_, _ = fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	_, _ = fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogSink) emitText(event Event) {
	_, _ = fmt.Fprintf(l.writer, "[%s] run_id=%s seq=%d producer=%s",
		event.Type, event.RunID, event.SeqID, event.ProducerID)
	if len(event.Payload) > 0 {
		if payloadJSON, err := json.Marshal(event.Payload); err == nil {
			_, _ = fmt.Fprintf(l.writer, " payload=%s", payloadJSON)
		} else {
			_, _ = fmt.Fprintf(l.writer, " payload=%v", event.Payload)
		}
	}
	_, _ = fmt.Fprint(l.writer, "\n")
}

// EmitBatch writes every event in order.
func (l *LogSink) EmitBatch(_ context.Context, events []Event) error {
	for _, event := range events {
		l.Emit(event)
	}
	return nil
}

// Flush is a no-op: LogSink writes synchronously with no internal buffer.
func (l *LogSink) Flush(_ context.Context) error { return nil }
