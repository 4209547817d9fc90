package audit

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Sink records pipeline decisions for audit. Implementations must never block
// or fail the pipeline.
type Sink interface {
	LogDecision(stage string, fields map[string]interface{}, inputPreview string)
	Close()
}

type decisionRecord struct {
	stage   string
	fields  map[string]interface{}
	preview string
}

// LogSink writes decision records as JSON lines on a dedicated logrus logger.
// Records go through a buffered channel and are dropped when the buffer is
// full rather than stalling a pipeline run.
type LogSink struct {
	log     *logrus.Logger
	records chan decisionRecord
	done    chan struct{}
}

func NewLogSink(out io.Writer, buffer int) *LogSink {
	if buffer <= 0 {
		buffer = 256
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.JSONFormatter{})

	s := &LogSink{
		log:     log,
		records: make(chan decisionRecord, buffer),
		done:    make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *LogSink) LogDecision(stage string, fields map[string]interface{}, inputPreview string) {
	select {
	case s.records <- decisionRecord{stage: stage, fields: fields, preview: inputPreview}:
	default:
		// Audit must never block the pipeline; drop under pressure.
	}
}

func (s *LogSink) drain() {
	defer close(s.done)
	for rec := range s.records {
		entry := s.log.WithField("stage", rec.stage).WithField("input_preview", rec.preview)
		for k, v := range rec.fields {
			entry = entry.WithField(k, v)
		}
		entry.Info("safety decision")
	}
}

// Close flushes queued records and stops the drain goroutine.
func (s *LogSink) Close() {
	close(s.records)
	<-s.done
}

// NopSink discards all records. Used in tests.
type NopSink struct{}

func (NopSink) LogDecision(string, map[string]interface{}, string) {}
func (NopSink) Close()                                             {}
