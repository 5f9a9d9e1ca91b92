package observability

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"

	"restaurant-backoffice/internal/config"
)

func TestNewLogger_Levels(t *testing.T) {
	logger, err := NewLogger("warn", "test", nil)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info must be disabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("error must be enabled at warn level")
	}

	if _, err := NewLogger("loud", "test", nil); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestSetup_WithoutEndpointIsNoop(t *testing.T) {
	tel, err := Setup(context.Background(), &config.Config{ServiceName: "test"})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if tel.LoggerProvider != nil || tel.TracerProvider != nil {
		t.Error("no providers should be installed without an endpoint")
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
