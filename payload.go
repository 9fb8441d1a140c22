package sentry_sender

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// TimestampLayout is ISO-8601 in UTC with second precision and no zone suffix
	TimestampLayout = "2006-01-02T15:04:05"

	levelError     = "error"
	loggerName     = "org.acra"
	platformName   = "android"
	causedByPrefix = "Caused by: "
)

// Payload is the JSON body of a store request
type Payload struct {
	EventID    string               `json:"event_id"`
	Culprit    *string              `json:"culprit,omitempty"`
	Message    *string              `json:"message,omitempty"`
	Level      string               `json:"level"`
	Timestamp  string               `json:"timestamp"`
	Logger     string               `json:"logger"`
	Platform   string               `json:"platform"`
	Tags       map[string]*string   `json:"tags"`
	Extra      map[string]*string   `json:"extra"`
	Exception  *ExceptionInterface  `json:"sentry.interfaces.Exception,omitempty"`
	Stacktrace *StacktraceInterface `json:"sentry.interfaces.Stacktrace,omitempty"`
}

// ExceptionInterface summarizes the top-level exception
type ExceptionInterface struct {
	Type   string  `json:"type"`
	Value  *string `json:"value,omitempty"`
	Module string  `json:"module"`
}

// StacktraceInterface is the flattened frame list of the whole cause chain
type StacktraceInterface struct {
	Frames []StacktraceFrame `json:"frames"`
}

// StacktraceFrame is one frame of the flattened stack trace. Caused-by
// markers carry only a filename and LineUnknown.
type StacktraceFrame struct {
	Filename string `json:"filename"`
	Function string `json:"function,omitempty"`
	Lineno   int    `json:"lineno"`
}

// Formatter builds the auth header and the JSON body for a report
type Formatter struct {
	dsn          *DSN
	customFields []ReportField
	logger       *zap.Logger
	now          func() time.Time
}

// FormatterOption configures a Formatter
type FormatterOption func(f *Formatter)

// WithClock replaces the wall clock used for event timestamps
func WithClock(now func() time.Time) FormatterOption {
	return func(f *Formatter) {
		f.now = now
	}
}

// NewFormatter creates a formatter. customFields extend the default extra fields.
func NewFormatter(dsn *DSN, customFields []ReportField, logger *zap.Logger, opts ...FormatterOption) *Formatter {
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &Formatter{
		dsn:          dsn,
		customFields: customFields,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// AuthHeader returns the X-Sentry-Auth value for the configured DSN
func (f *Formatter) AuthHeader() string {
	return BuildAuthHeader(f.dsn)
}

// Timestamp returns the current wall-clock time in TimestampLayout
func (f *Formatter) Timestamp() string {
	return f.now().UTC().Format(TimestampLayout)
}

// Payload maps a crash report onto the store payload
func (f *Formatter) Payload(report *CrashReport) *Payload {
	if report == nil {
		report = &CrashReport{}
	}

	payload := &Payload{
		EventID:   EventID(report),
		Level:     levelError,
		Timestamp: f.Timestamp(),
		Logger:    loggerName,
		Platform:  platformName,
	}

	if len(report.Exception) == 0 {
		stackTrace, _ := report.Get(StackTrace)
		firstLine, _, _ := strings.Cut(stackTrace, "\n")
		payload.Culprit = &firstLine
		payload.Message = &firstLine
	} else {
		if culprit, ok := report.Exception.Culprit(); ok {
			payload.Culprit = &culprit
		}
		top := report.Exception[0]
		payload.Message = top.Message
		payload.Exception = &ExceptionInterface{
			Type:   top.Class,
			Value:  top.Message,
			Module: top.Module,
		}
		payload.Stacktrace = buildStacktrace(report.Exception)
	}

	payload.Tags = f.remap(report, TagFields, nil)

	extra := f.remap(report, ExtraFields, nil)
	if len(f.customFields) > 0 {
		extra = f.remap(report, f.customFields, extra)
	}
	payload.Extra = extra

	return payload
}

// Encode builds the payload and encodes it as JSON
func (f *Formatter) Encode(report *CrashReport) ([]byte, error) {
	payload := f.Payload(report)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &SerializationError{EventID: payload.EventID, Err: err}
	}

	if ce := f.logger.Check(zap.DebugLevel, "Sentry payload built"); ce != nil {
		ce.Write(zap.String("event_id", payload.EventID), zap.ByteString("payload", body))
	}

	return body, nil
}

// remap copies the given fields into extend, or into a new map when extend is nil.
// Missing fields are kept as null values.
func (f *Formatter) remap(report *CrashReport, fields []ReportField, extend map[string]*string) map[string]*string {
	result := extend
	if result == nil {
		result = make(map[string]*string, len(fields))
	}

	for _, field := range fields {
		var value *string
		if v, ok := report.Get(field); ok {
			value = &v
		}
		result[string(field)] = value

		if ce := f.logger.Check(zap.DebugLevel, "Report field remapped"); ce != nil {
			ce.Write(zap.String("field", string(field)), zap.Stringp("value", value))
		}
	}

	return result
}

// EventID is the event_id sent for report: REPORT_ID without hyphens. Reports
// without a REPORT_ID get a name-based UUID derived from their content, so the
// same report always maps to the same event.
func EventID(report *CrashReport) string {
	if report == nil {
		report = &CrashReport{}
	}

	id, ok := report.Get(ReportID)
	if !ok || id == "" {
		// map keys are encoded in sorted order
		content, _ := json.Marshal(report)
		id = uuid.NewSHA1(uuid.NameSpaceOID, content).String()
	}
	return strings.ReplaceAll(id, "-", "")
}

func buildStacktrace(chain CauseChain) *StacktraceInterface {
	frames := make([]StacktraceFrame, 0)

	for i := range chain {
		cause := &chain[i]
		if len(cause.Frames) == 0 {
			continue
		}

		marker := causedByPrefix + cause.QualifiedName()
		if cause.Message != nil {
			marker += ` ("` + *cause.Message + `")`
		}
		frames = append(frames, StacktraceFrame{Filename: marker, Lineno: LineUnknown})

		for _, frame := range cause.Frames {
			frames = append(frames, StacktraceFrame{
				Filename: frame.Class,
				Function: frame.Method,
				Lineno:   frame.Line,
			})
		}
	}

	return &StacktraceInterface{Frames: frames}
}
