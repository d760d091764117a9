package misc

import (
	"testing"
	"time"
)

func TestGetenv(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		val    string
		def    string
		expect string
	}{
		{"value present", "X_FOO", "bar", "zzz", "bar"},
		{"value empty -> default", "X_EMPTY", "", "defv", "defv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.val != "" {
				t.Setenv(tt.key, tt.val)
			} else {
				t.Setenv(tt.key, "")
			}
			got := Getenv(tt.key, tt.def)
			if got != tt.expect {
				t.Errorf("Getenv(%s) = %q, want %q", tt.key, got, tt.expect)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name    string
		val     string
		expect  time.Duration
		wantErr bool
	}{
		{"integer is milliseconds", "1500", 1500 * time.Millisecond, false},
		{"duration", "2s", 2 * time.Second, false},
		{"zero disables", "0", 0, false},
		{"negative disables", "-5", 0, false},
		{"negative duration disables", "-1m", 0, false},
		{"bad format", "soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeriod(tt.val)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePeriod(%q) err = %v", tt.val, err)
			}
			if got != tt.expect {
				t.Errorf("ParsePeriod(%q) = %v, want %v", tt.val, got, tt.expect)
			}
		})
	}
}

func TestGetInt(t *testing.T) {
	t.Setenv("X_INT", "42")
	if got := GetInt("X_INT", 1); got != 42 {
		t.Errorf("GetInt = %d, want 42", got)
	}
	t.Setenv("X_INT", "many")
	if got := GetInt("X_INT", 7); got != 7 {
		t.Errorf("GetInt(bad) = %d, want 7", got)
	}
}
