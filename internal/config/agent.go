package config

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

const (
	defaultServerAddr       = "http://localhost:8080"
	defaultCollectingPeriod = 2 * time.Second
	defaultSamplingPeriod   = 5 * time.Second
	defaultSendingPeriod    = 10 * time.Second
	defaultStatsExpiration  = 30 * time.Second
	defaultLogLevel         = "info"
)

// AgentConfig configures the observer agent. Periods of zero disable the
// matching cadence.
type AgentConfig struct {
	Address          string
	MetricsAddress   string
	Key              string
	ClientID         string
	CallID           string
	RoomID           string
	UserID           string
	BrowserName      string
	BrowserVersion   string
	LogLevel         string
	CollectingPeriod time.Duration
	SamplingPeriod   time.Duration
	SendingPeriod    time.Duration
	StatsExpiration  time.Duration
	MaxSamples       int
}

// ENV > CLI > defaults
func LoadAgentConfig(args []string, out io.Writer) (AgentConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	fs.SetOutput(out)

	var addrOpt, metricsOpt, keyOpt, logOpt string
	var collectOpt, sampleOpt, sendOpt, expireOpt string
	var batchOpt int

	fs.StringVar(&addrOpt, "a", "", fmt.Sprintf("collector address (host:port or URL), default: %s", defaultServerAddr))
	fs.StringVar(&metricsOpt, "m", "", "listen address of the prometheus /metrics endpoint, default: disabled")
	fs.StringVar(&keyOpt, "k", "", "secret key for HashSHA256 header")
	fs.StringVar(&collectOpt, "c", "", fmt.Sprintf("collecting period (ms or duration, 0 disables), default: %s", defaultCollectingPeriod))
	fs.StringVar(&sampleOpt, "s", "", fmt.Sprintf("sampling period (ms or duration, 0 disables), default: %s", defaultSamplingPeriod))
	fs.StringVar(&sendOpt, "r", "", fmt.Sprintf("sending period (ms or duration, 0 disables), default: %s", defaultSendingPeriod))
	fs.StringVar(&expireOpt, "e", "", fmt.Sprintf("stats expiration (ms or duration, 0 keeps stats), default: %s", defaultStatsExpiration))
	fs.IntVar(&batchOpt, "b", 0, "max samples per sent batch, default: unlimited")
	fs.StringVar(&logOpt, "log", "", fmt.Sprintf("log level, default: %s", defaultLogLevel))

	if err := fs.Parse(args); err != nil {
		return AgentConfig{}, err
	}

	addr := normalizeAddressURL(FromEnvOrFlag("ADDRESS", addrOpt, defaultServerAddr))
	if _, err := url.ParseRequestURI(addr); err != nil {
		return AgentConfig{}, fmt.Errorf("invalid server address: %q", addr)
	}

	cfg := AgentConfig{
		Address:        addr,
		MetricsAddress: FromEnvOrFlag("METRICS_ADDRESS", metricsOpt, ""),
		Key:            FromEnvOrFlag("KEY", keyOpt, ""),
		ClientID:       FromEnvOrFlag("CLIENT_ID", "", ""),
		CallID:         FromEnvOrFlag("CALL_ID", "", ""),
		RoomID:         FromEnvOrFlag("ROOM_ID", "", ""),
		UserID:         FromEnvOrFlag("USER_ID", "", ""),
		BrowserName:    FromEnvOrFlag("BROWSER_NAME", "", ""),
		BrowserVersion: FromEnvOrFlag("BROWSER_VERSION", "", ""),
		LogLevel:       strings.ToLower(FromEnvOrFlag("LOG_LEVEL", logOpt, defaultLogLevel)),
		MaxSamples:     FromEnvOrFlagInt("MAX_SAMPLES", batchOpt, 0, 1),
	}

	periods := []struct {
		dst  *time.Duration
		env  string
		flag string
		def  time.Duration
	}{
		{&cfg.CollectingPeriod, "COLLECTING_PERIOD", collectOpt, defaultCollectingPeriod},
		{&cfg.SamplingPeriod, "SAMPLING_PERIOD", sampleOpt, defaultSamplingPeriod},
		{&cfg.SendingPeriod, "SENDING_PERIOD", sendOpt, defaultSendingPeriod},
		{&cfg.StatsExpiration, "STATS_EXPIRATION", expireOpt, defaultStatsExpiration},
	}
	for _, p := range periods {
		d, err := FromEnvOrFlagPeriod(p.env, p.flag, p.def)
		if err != nil {
			return AgentConfig{}, err
		}
		*p.dst = d
	}
	return cfg, nil
}

func normalizeAddressURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultServerAddr
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	if strings.HasPrefix(s, ":") {
		return "http://localhost" + s
	}
	return "http://" + s
}
