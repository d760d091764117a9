package devices

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/host"
)

func stubHost(t *testing.T, info *host.InfoStat, err error) {
	t.Helper()
	prev := hostInfo
	hostInfo = func(context.Context) (*host.InfoStat, error) { return info, err }
	t.Cleanup(func() { hostInfo = prev })
}

func TestDetect(t *testing.T) {
	stubHost(t, &host.InfoStat{
		OS:                 "linux",
		Platform:           "ubuntu",
		PlatformFamily:     "debian",
		PlatformVersion:    "22.04",
		KernelArch:         "x86_64",
		VirtualizationRole: "guest",
	}, nil)

	d, err := Detect(context.Background(), Overrides{})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if d.OS.Name != "linux" || d.OS.Version != "22.04" || d.OS.VersionName != "ubuntu" {
		t.Errorf("os = %+v", d.OS)
	}
	if d.Platform.Type != "virtual" || d.Platform.Vendor != "debian" || d.Platform.Model != "x86_64" {
		t.Errorf("platform = %+v", d.Platform)
	}
	if d.Engine.Name != "pion" || d.Browser.Name != "pion" || d.Browser.Version != d.Engine.Version {
		t.Errorf("engine = %+v, browser = %+v", d.Engine, d.Browser)
	}
}

func TestDetect_Overrides(t *testing.T) {
	stubHost(t, &host.InfoStat{OS: "linux"}, nil)
	d, err := Detect(context.Background(), Overrides{BrowserName: "chrome", BrowserVersion: "90.0.4430.93"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Browser.Name != "chrome" || d.Browser.Version != "90.0.4430.93" {
		t.Fatalf("browser = %+v", d.Browser)
	}
	if d.Engine.Name != "pion" {
		t.Errorf("engine overridden: %+v", d.Engine)
	}
}

func TestDetect_HostError(t *testing.T) {
	stubHost(t, nil, errors.New("no /proc"))
	if _, err := Detect(context.Background(), Overrides{}); err == nil {
		t.Fatal("expected error")
	}
}
