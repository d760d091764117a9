package dialect

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/ports"
)

// Select picks the dialect matching the browser that produces the reports.
// Unknown browsers get the current Chromium dialect.
func Select(b domain.Browser, logger *zap.Logger) ports.Adapter {
	logger = orNop(logger)
	name := strings.ToLower(strings.TrimSpace(b.Name))
	var a ports.Adapter
	switch name {
	case "chrome", "chromium":
		if v, ok := majorVersion(b.Version); ok && v <= 86 {
			a = NewChrome86(logger)
		} else {
			a = NewChrome86to96(logger)
		}
	case "firefox", "safari":
		a = NewFirefox94(logger)
	case "pion":
		a = NewPion(logger)
	default:
		a = NewChrome86to96(logger)
	}
	logger.Debug("stats dialect selected",
		zap.String("browser", b.Name),
		zap.String("version", b.Version),
		zap.String("adapter", Name(a)))
	return a
}

// Name returns a short name of a dialect from this package.
func Name(a ports.Adapter) string {
	switch a.(type) {
	case *Chrome86:
		return "chrome86"
	case *Chrome86to96:
		return "chrome86to96"
	case *Firefox94:
		return "firefox94"
	case *Pion:
		return "pion"
	}
	return "custom"
}

func majorVersion(v string) (int, bool) {
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, '.'); i >= 0 {
		v = v[:i]
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
