// Package util provides helpers shared by the rtcobserver binaries.
package util

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Build describes the binary; the fields are set with -ldflags at link time.
type Build struct {
	Version string
	Date    string
	Commit  string
}

// na returns "N/A" if the input string is empty, otherwise it returns the input string.
func na(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

// Fields renders the build as log fields.
func (b Build) Fields() []zap.Field {
	return []zap.Field{
		zap.String("version", na(b.Version)),
		zap.String("buildDate", na(b.Date)),
		zap.String("commit", na(b.Commit)),
	}
}

// Print writes the build version, date, and commit information.
func (b Build) Print(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", na(b.Version))
	fmt.Fprintf(w, "Build date: %s\n", na(b.Date))
	fmt.Fprintf(w, "Build commit: %s\n", na(b.Commit))
}
