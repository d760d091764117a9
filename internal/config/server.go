package config

import (
	"flag"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"
)

const (
	defaultListenAndServeAddr = ":8080"
	defaultFilePath           = "samples-db.json"
	defaultStoreInterval      = 300
	defaultRestore            = false
	defaultRetainSamples      = 100
)

// ServerConfig configures the collector server.
type ServerConfig struct {
	Address       string
	File          string
	DSN           string
	Key           string
	AuditFile     string
	AuditURL      string
	LogLevel      string
	Interval      time.Duration
	RetainSamples int
	Restore       bool
}

// ENV > CLI > defaults
func LoadServerConfig(args []string, out io.Writer) (ServerConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("collector", flag.ContinueOnError)
	fs.SetOutput(out)

	var addrOpt, fileOpt, dsnOpt, keyOpt, auditFileOpt, auditURLOpt, logOpt string
	var ivalOpt, retainOpt int
	var restoreOpt bool

	fs.StringVar(&addrOpt, "a", "", fmt.Sprintf("HTTP listen address, default: %s", defaultListenAndServeAddr))
	fs.StringVar(&fileOpt, "f", "", fmt.Sprintf("FILE_STORAGE_PATH, default: %s", defaultFilePath))
	fs.StringVar(&dsnOpt, "d", "", "DATABASE_DSN for Postgres, default: in-memory storage")
	fs.IntVar(&ivalOpt, "i", -1, fmt.Sprintf("STORE_INTERVAL seconds (0 - sync), default: %d", defaultStoreInterval))
	fs.BoolVar(&restoreOpt, "r", false, fmt.Sprintf("RESTORE on start (true/false), default: %t", defaultRestore))
	fs.StringVar(&keyOpt, "k", "", "secret key for HashSHA256 verification")
	fs.StringVar(&auditFileOpt, "audit-file", "", "append audit events to this file")
	fs.StringVar(&auditURLOpt, "audit-url", "", "post audit events to this URL")
	fs.IntVar(&retainOpt, "retain", 0, fmt.Sprintf("samples kept per client in memory, default: %d", defaultRetainSamples))
	fs.StringVar(&logOpt, "log", "", fmt.Sprintf("log level, default: %s", defaultLogLevel))

	if err := fs.Parse(args); err != nil {
		return ServerConfig{}, err
	}

	addr := normalizeListenAndServeURL(FromEnvOrFlag("ADDRESS", addrOpt, defaultListenAndServeAddr))
	if _, port, err := net.SplitHostPort(addr); err != nil || port == "" {
		return ServerConfig{}, fmt.Errorf("invalid listen address: %q", addr)
	}

	auditURL := FromEnvOrFlag("AUDIT_URL", auditURLOpt, "")
	if auditURL != "" {
		if _, err := url.ParseRequestURI(auditURL); err != nil {
			return ServerConfig{}, fmt.Errorf("invalid audit url: %q", auditURL)
		}
	}

	interval, err := storeInterval(ivalOpt)
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		Address:       addr,
		File:          FromEnvOrFlag("FILE_STORAGE_PATH", fileOpt, defaultFilePath),
		DSN:           FromEnvOrFlag("DATABASE_DSN", dsnOpt, ""),
		Key:           FromEnvOrFlag("KEY", keyOpt, ""),
		AuditFile:     FromEnvOrFlag("AUDIT_FILE", auditFileOpt, ""),
		AuditURL:      auditURL,
		LogLevel:      strings.ToLower(FromEnvOrFlag("LOG_LEVEL", logOpt, defaultLogLevel)),
		Interval:      interval,
		RetainSamples: FromEnvOrFlagInt("RETAIN_SAMPLES", retainOpt, defaultRetainSamples, 1),
		Restore:       FromEnvOrFlagBool("RESTORE", restoreOpt, defaultRestore),
	}, nil
}

// storeInterval reads STORE_INTERVAL as seconds or a Go duration. Zero means
// every ingest is persisted synchronously.
func storeInterval(flagSeconds int) (time.Duration, error) {
	flagVal := ""
	if flagSeconds >= 0 {
		flagVal = fmt.Sprintf("%ds", flagSeconds)
	}
	v := FromEnvOrFlag("STORE_INTERVAL", flagVal, "")
	if v == "" {
		return time.Duration(defaultStoreInterval) * time.Second, nil
	}
	if !strings.ContainsAny(v, "hmsuµn") {
		v += "s"
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid STORE_INTERVAL %q: %w", v, err)
	}
	return max(d, 0), nil
}

func normalizeListenAndServeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultListenAndServeAddr
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			return u.Host
		}
	}
	if !strings.Contains(s, ":") {
		return ":" + s
	}
	return s
}
