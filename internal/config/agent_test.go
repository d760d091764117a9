package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var agentEnv = []string{
	"ADDRESS", "METRICS_ADDRESS", "KEY", "CLIENT_ID", "CALL_ID", "ROOM_ID", "USER_ID", "BROWSER_NAME", "BROWSER_VERSION",
	"LOG_LEVEL", "MAX_SAMPLES", "COLLECTING_PERIOD", "SAMPLING_PERIOD", "SENDING_PERIOD", "STATS_EXPIRATION",
}

func TestLoadAgentConfig(t *testing.T) {
	tests := []struct {
		env       map[string]string
		name      string
		wantError string
		args      []string
		want      AgentConfig
	}{
		{
			name: "defaults",
			want: AgentConfig{
				Address:          defaultServerAddr,
				LogLevel:         defaultLogLevel,
				CollectingPeriod: defaultCollectingPeriod,
				SamplingPeriod:   defaultSamplingPeriod,
				SendingPeriod:    defaultSendingPeriod,
				StatsExpiration:  defaultStatsExpiration,
			},
		},
		{
			name: "env overrides flags",
			args: []string{"-a", "https://srv.example.com:9090", "-c", "700", "-k", "hello", "-b", "5", "-log", "debug"},
			env: map[string]string{
				"ADDRESS":           "https://env:1234",
				"METRICS_ADDRESS":   "127.0.0.1:9200",
				"COLLECTING_PERIOD": "1500",
				"KEY":               "world",
				"MAX_SAMPLES":       "3",
				"LOG_LEVEL":         "WARN",
				"CALL_ID":           "call-1",
				"BROWSER_NAME":      "chrome",
				"BROWSER_VERSION":   "90.0",
			},
			want: AgentConfig{
				Address:          "https://env:1234",
				MetricsAddress:   "127.0.0.1:9200",
				Key:              "world",
				CallID:           "call-1",
				BrowserName:      "chrome",
				BrowserVersion:   "90.0",
				LogLevel:         "warn",
				MaxSamples:       3,
				CollectingPeriod: 1500 * time.Millisecond,
				SamplingPeriod:   defaultSamplingPeriod,
				SendingPeriod:    defaultSendingPeriod,
				StatsExpiration:  defaultStatsExpiration,
			},
		},
		{
			name: "only flags",
			args: []string{"-a", "srv.example.com:9090", "-m", ":9100", "-c", "1s", "-s", "0", "-r", "20s", "-e", "0", "-b", "10"},
			want: AgentConfig{
				Address:          "http://srv.example.com:9090",
				MetricsAddress:   ":9100",
				LogLevel:         defaultLogLevel,
				MaxSamples:       10,
				CollectingPeriod: time.Second,
				SendingPeriod:    20 * time.Second,
			},
		},
		{
			name:      "invalid period from env",
			env:       map[string]string{"SAMPLING_PERIOD": "often"},
			wantError: "invalid SAMPLING_PERIOD",
		},
		{
			name:      "flag parse error",
			args:      []string{"-b", "oops"},
			wantError: "invalid value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range agentEnv {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := LoadAgentConfig(tt.args, os.Stderr)
			if tt.wantError != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tt.wantError)
				}
				if !strings.Contains(err.Error(), tt.wantError) {
					t.Fatalf("expected error %q, got %v", tt.wantError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("config:\n got %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeAddressURL(t *testing.T) {
	cases := map[string]string{
		"":                   "http://localhost:8080",
		"   ":                "http://localhost:8080",
		"example.com:9999":   "http://example.com:9999",
		":8081":              "http://localhost:8081",
		"  :8081  ":          "http://localhost:8081",
		"https://ex.com:443": "https://ex.com:443",
	}
	for in, want := range cases {
		if got := normalizeAddressURL(in); got != want {
			t.Errorf("normalizeAddressURL(%q): want %q, got %q", in, want, got)
		}
	}
}
