package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigValidator_Required(t *testing.T) {
	cv := NewConfigValidator("Config")
	cv.Required("Workspace", "")
	if cv.Validate() == nil {
		t.Error("Expected error for empty required field")
	}

	cv2 := NewConfigValidator("Config")
	cv2.Required("Workspace", "default")
	if err := cv2.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestConfigValidator_RangeFloat(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		expectErr bool
	}{
		{"below", 0.01, true},
		{"at min", 0.05, false},
		{"inside", 0.3, false},
		{"at max", 1, false},
		{"above", 1.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("Simulation")
			cv.RangeFloat("ClusterTightness", tt.value, 0.05, 1)
			if got := cv.Validate() != nil; got != tt.expectErr {
				t.Errorf("RangeFloat(%v) error = %v, want %v", tt.value, got, tt.expectErr)
			}
		})
	}
}

func TestConfigValidator_CollectsAll(t *testing.T) {
	cv := NewConfigValidator("Config")
	cv.Required("Workspace", "").
		RangeInt("FPS", 0, 1, 120).
		RangeDuration("Debounce", time.Hour, 0, time.Minute).
		OneOf("Prefs.Backend", "redis", []string{"file", "badger", "memory"})

	if n := len(cv.Errors()); n != 4 {
		t.Fatalf("Expected 4 errors, got %d: %v", n, cv.Errors())
	}
	err := cv.Validate()
	if !strings.Contains(err.Error(), "Config.Prefs.Backend") {
		t.Errorf("Expected joined error to name the field, got %v", err)
	}
}

func TestConfigValidator_CustomAndWhen(t *testing.T) {
	sentinel := errors.New("bad url")

	cv := NewConfigValidator("Backend")
	cv.Custom("URL", func() error { return sentinel })
	if !errors.Is(cv.Validate(), sentinel) {
		t.Error("Expected custom error to be wrapped")
	}

	cv2 := NewConfigValidator("Prefs")
	cv2.When(false, func(v *ConfigValidator) { v.Required("Dir", "") })
	if err := cv2.Validate(); err != nil {
		t.Errorf("When(false) should skip validations, got %v", err)
	}
	cv2.When(true, func(v *ConfigValidator) { v.RangeInt("Port", 0, 1, 65535) })
	if cv2.Validate() == nil {
		t.Error("When(true) should apply validations")
	}
}

func TestDefaultOr(t *testing.T) {
	if got := DefaultOr("", "default"); got != "default" {
		t.Errorf("DefaultOr empty = %q", got)
	}
	if got := DefaultOr("alpha", "default"); got != "alpha" {
		t.Errorf("DefaultOr set = %q", got)
	}
	if got := DefaultOrDuration(-time.Second, time.Second); got != time.Second {
		t.Errorf("DefaultOrDuration = %v", got)
	}
}
