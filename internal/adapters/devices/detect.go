// Package devices describes the host the observer runs on and tracks the
// media devices the application reports.
package devices

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/vshulcz/rtcobserver/internal/domain"
)

const pionModule = "github.com/pion/webrtc/v3"

// Overrides replaces detected browser facts. Empty fields keep the detected
// value.
type Overrides struct {
	BrowserName    string
	BrowserVersion string
}

// hostInfo is swapped in tests.
var hostInfo = host.InfoWithContext

// Detect builds the client device description from the host and the linked
// pion module. The browser defaults to pion, which selects the pion dialect.
func Detect(ctx context.Context, o Overrides) (domain.ClientDevices, error) {
	info, err := hostInfo(ctx)
	if err != nil {
		return domain.ClientDevices{}, fmt.Errorf("host info: %w", err)
	}
	engine := domain.Engine{Name: "pion", Version: moduleVersion(pionModule)}

	d := domain.ClientDevices{
		OS: domain.OperationSystem{
			Name:        info.OS,
			Version:     info.PlatformVersion,
			VersionName: info.Platform,
		},
		Browser: domain.Browser{Name: engine.Name, Version: engine.Version},
		Platform: domain.Platform{
			Type:   platformType(info.VirtualizationRole),
			Vendor: info.PlatformFamily,
			Model:  info.KernelArch,
		},
		Engine: engine,
	}
	if o.BrowserName != "" {
		d.Browser.Name = o.BrowserName
	}
	if o.BrowserVersion != "" {
		d.Browser.Version = o.BrowserVersion
	}
	return d, nil
}

func platformType(virtualizationRole string) string {
	switch {
	case virtualizationRole == "guest":
		return "virtual"
	case runtime.GOOS == "darwin" || runtime.GOOS == "windows":
		return "desktop"
	default:
		return "server"
	}
}

func moduleVersion(path string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, dep := range bi.Deps {
		if dep.Path != path {
			continue
		}
		if dep.Replace != nil {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return ""
}
