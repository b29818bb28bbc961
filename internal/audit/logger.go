package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of audit event
type EventType string

const (
	// Record operations
	EventRecordSearch EventType = "RECORD_SEARCH"
	EventRecordGet    EventType = "RECORD_GET"
	EventRecordCreate EventType = "RECORD_CREATE"
	EventRecordUpdate EventType = "RECORD_UPDATE"
	EventRecordDelete EventType = "RECORD_DELETE"

	// Normalization events
	EventFieldMapped  EventType = "FIELD_MAPPED"
	EventSchemaFetch  EventType = "SCHEMA_FETCH"
	EventConfigReload EventType = "CONFIG_RELOAD"

	// System events
	EventStartup  EventType = "STARTUP"
	EventShutdown EventType = "SHUTDOWN"
	EventAccess   EventType = "ACCESS"
	EventError    EventType = "ERROR"
)

// Severity represents the severity level of an audit event
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Event is a single audit log entry
type Event struct {
	ID           string                 `json:"id"`
	Timestamp    time.Time              `json:"timestamp"`
	Type         EventType              `json:"type"`
	Severity     Severity               `json:"severity"`
	Source       string                 `json:"source"`
	Profile      string                 `json:"profile,omitempty"`
	ResourceType string                 `json:"resource_type,omitempty"`
	RecordID     string                 `json:"record_id,omitempty"`
	Action       string                 `json:"action"`
	Result       string                 `json:"result"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Error        string                 `json:"error,omitempty"`
	SessionID    string                 `json:"session_id,omitempty"`
}

// Logger writes structured audit events as JSON lines, one event per
// line, to a file or stderr. Writes happen on a background worker so
// request handling never blocks on disk.
type Logger struct {
	mu        sync.Mutex
	file      *os.File
	filepath  string
	maxSize   int64
	encoder   *json.Encoder
	eventChan chan *Event
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// Config configures the audit logger.
type Config struct {
	FilePath string // empty writes to stderr
	MaxSize  int64  // rotate when the file exceeds this many bytes; 0 disables
}

// NewLogger creates an audit logger and starts its worker.
func NewLogger(config Config) (*Logger, error) {
	logger := &Logger{
		filepath:  config.FilePath,
		maxSize:   config.MaxSize,
		eventChan: make(chan *Event, 100),
		stopChan:  make(chan struct{}),
	}

	if config.FilePath == "" {
		logger.encoder = json.NewEncoder(os.Stderr)
	} else {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0700); err != nil {
			return nil, fmt.Errorf("failed to create audit log directory: %w", err)
		}
		file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log file: %w", err)
		}
		logger.file = file
		logger.encoder = json.NewEncoder(file)
	}

	logger.wg.Add(1)
	go logger.worker()

	return logger, nil
}

// Log queues an audit event for writing.
func (l *Logger) Log(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case l.eventChan <- event:
	case <-time.After(time.Second):
		fmt.Fprintf(os.Stderr, "audit: dropped event after timeout\n")
	}
}

// LogRecordOperation logs one CRUD operation against the CRM.
func (l *Logger) LogRecordOperation(op EventType, resourceType, recordID, profile string, success bool, details map[string]interface{}) {
	result := "SUCCESS"
	severity := SeverityInfo
	if !success {
		result = "FAILED"
		severity = SeverityError
	}

	l.Log(&Event{
		Type:         op,
		Severity:     severity,
		Source:       "records",
		Profile:      profile,
		ResourceType: resourceType,
		RecordID:     recordID,
		Action:       string(op),
		Result:       result,
		Details:      scrubSensitive(details),
	})
}

// LogFieldWarnings logs the non-fatal warnings produced while mapping a
// record's field names.
func (l *Logger) LogFieldWarnings(resourceType string, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	l.Log(&Event{
		Type:         EventFieldMapped,
		Severity:     SeverityWarning,
		Source:       "normalize",
		ResourceType: resourceType,
		Action:       "map_fields",
		Result:       "MAPPED",
		Details:      map[string]interface{}{"warnings": warnings},
	})
}

// LogError logs an error event.
func (l *Logger) LogError(source string, err error, details map[string]interface{}) {
	l.Log(&Event{
		Type:     EventError,
		Severity: SeverityError,
		Source:   source,
		Action:   "error",
		Result:   "ERROR",
		Error:    err.Error(),
		Details:  details,
	})
}

// LogSystem logs a system event.
func (l *Logger) LogSystem(eventType EventType, message string, details map[string]interface{}) {
	l.Log(&Event{
		Type:     eventType,
		Severity: SeverityInfo,
		Source:   "system",
		Action:   string(eventType),
		Result:   message,
		Details:  details,
	})
}

func (l *Logger) worker() {
	defer l.wg.Done()

	for {
		select {
		case event := <-l.eventChan:
			l.writeEvent(event)
		case <-l.stopChan:
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.encoder.Encode(event); err != nil {
		fmt.Fprintf(os.Stderr, "audit: failed to write event: %v\n", err)
	}

	if l.file != nil && l.maxSize > 0 {
		if info, err := l.file.Stat(); err == nil && info.Size() > l.maxSize {
			l.rotate()
		}
	}
}

func (l *Logger) rotate() {
	_ = l.file.Close()

	rotated := fmt.Sprintf("%s.%s", l.filepath, time.Now().Format("20060102-150405"))
	_ = os.Rename(l.filepath, rotated)

	file, err := os.OpenFile(l.filepath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit: failed to reopen log file: %v\n", err)
		return
	}
	l.file = file
	l.encoder = json.NewEncoder(file)
}

// Close flushes pending events and closes the log file.
func (l *Logger) Close() error {
	close(l.stopChan)
	l.wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// scrubSensitive drops detail keys that look like credentials. API keys
// must never reach the audit trail.
func scrubSensitive(details map[string]interface{}) map[string]interface{} {
	if details == nil {
		return nil
	}
	out := make(map[string]interface{}, len(details))
	for k, v := range details {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "key") || strings.Contains(lower, "token") ||
			strings.Contains(lower, "secret") || strings.Contains(lower, "auth") {
			continue
		}
		out[k] = v
	}
	return out
}
