// Neha - Hinglish chat companion
// License: MIT
//
// Copyright (c) 2026 Neha contributors

// Package logger provides leveled, component-tagged logging for all
// subsystems. Components pass a short tag ("engine", "memory", "speech")
// so log lines stay grep-able.
package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var (
	mu       sync.Mutex
	level    = INFO
	output   = os.Stderr
	levelTag = map[Level]string{
		DEBUG: "DEBUG",
		INFO:  "INFO",
		WARN:  "WARN",
		ERROR: "ERROR",
	}
)

// SetLevel sets the minimum level emitted.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

func emit(l Level, component, msg string, fields map[string]interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString(" [")
	b.WriteString(levelTag[l])
	b.WriteString("] [")
	b.WriteString(component)
	b.WriteString("] ")
	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf(" %s=%v", k, fields[k]))
		}
	}
	fmt.Fprintln(output, b.String())
}

func DebugC(component, msg string) { emit(DEBUG, component, msg, nil) }
func InfoC(component, msg string)  { emit(INFO, component, msg, nil) }
func WarnC(component, msg string)  { emit(WARN, component, msg, nil) }
func ErrorC(component, msg string) { emit(ERROR, component, msg, nil) }

func DebugCF(component, msg string, fields map[string]interface{}) {
	emit(DEBUG, component, msg, fields)
}

func InfoCF(component, msg string, fields map[string]interface{}) {
	emit(INFO, component, msg, fields)
}

func WarnCF(component, msg string, fields map[string]interface{}) {
	emit(WARN, component, msg, fields)
}

func ErrorCF(component, msg string, fields map[string]interface{}) {
	emit(ERROR, component, msg, fields)
}
