// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	for _, debug := range []bool{true, false} {
		logger, err := NewLogger(debug)
		if err != nil {
			t.Fatalf("NewLogger(%v) error: %v", debug, err)
		}
		if logger == nil {
			t.Fatalf("NewLogger(%v) returned nil logger", debug)
		}
		_ = logger.Sync()
	}
}

func TestNewCLILogger_Level(t *testing.T) {
	quiet, err := NewCLILogger(false)
	if err != nil {
		t.Fatalf("NewCLILogger(false) error: %v", err)
	}
	if quiet.Core().Enabled(zap.InfoLevel) {
		t.Error("non-debug CLI logger should not emit info")
	}
	if !quiet.Core().Enabled(zap.WarnLevel) {
		t.Error("non-debug CLI logger should emit warnings")
	}

	loud, err := NewCLILogger(true)
	if err != nil {
		t.Fatalf("NewCLILogger(true) error: %v", err)
	}
	if !loud.Core().Enabled(zap.DebugLevel) {
		t.Error("debug CLI logger should emit debug")
	}
}
