//  logger.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Host log forwarding: a zapcore.Core that renders entries into flat
//  level/message pairs a host application can relay.

package engine

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/log"
)

// LogSink receives toolkit log entries in the host application.
type LogSink interface {
	Log(level string, message string)
}

// SetLogSink routes toolkit logging through sink at the given minimum level.
// A nil sink restores zap's production logger.
func SetLogSink(sink LogSink, level string) error {
	if sink == nil {
		log.SetLogger(zap.Must(zap.NewProduction()))
		return nil
	}
	if level == "" {
		level = "info"
	}
	minLevel, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	core := &sinkCore{sink: sink, minLevel: minLevel}
	log.SetLogger(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
	return nil
}

type sinkCore struct {
	sink     LogSink
	minLevel zapcore.Level
	fields   []zapcore.Field
}

func (c *sinkCore) Enabled(level zapcore.Level) bool {
	return level >= c.minLevel
}

func (c *sinkCore) With(fields []zapcore.Field) zapcore.Core {
	base := make([]zapcore.Field, len(c.fields), len(c.fields)+len(fields))
	copy(base, c.fields)
	return &sinkCore{
		sink:     c.sink,
		minLevel: c.minLevel,
		fields:   append(base, fields...),
	}
}

func (c *sinkCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *sinkCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, field := range c.fields {
		field.AddTo(enc)
	}
	for _, field := range fields {
		field.AddTo(enc)
	}

	msg := strings.TrimSpace(ent.Message)
	if msg == "" {
		msg = ent.Level.String()
	}
	if len(enc.Fields) > 0 {
		msg += " " + renderFields(enc.Fields)
	}
	c.sink.Log(ent.Level.String(), msg)
	return nil
}

func (c *sinkCore) Sync() error { return nil }

func renderFields(values map[string]any) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("[")
	for i, key := range keys {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(key)
		b.WriteString("=")
		fmt.Fprint(&b, values[key])
	}
	b.WriteString("]")
	return b.String()
}
