//go:build windows

package main

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/windows"
)

const (
	processPerMonitorDPIAware = 2

	smXVirtualScreen  = 76
	smYVirtualScreen  = 77
	smCXVirtualScreen = 78
	smCYVirtualScreen = 79
	smCMonitors       = 80
	smCXScreen        = 0
	smCYScreen        = 1
)

var (
	shcore = windows.NewLazySystemDLL("Shcore.dll")
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetProcessDpiAwareness = shcore.NewProc("SetProcessDpiAwareness")
	procSetProcessDPIAware     = user32.NewProc("SetProcessDPIAware")
	procGetSystemMetrics       = user32.NewProc("GetSystemMetrics")
)

// enableDPIAwareness sets per-monitor DPI awareness so captured pixels and
// click coordinates share one coordinate space.
func enableDPIAwareness() {
	if err := procSetProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := procSetProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret == 0 {
			log.Debug().Msg("DPI: per-monitor awareness set")
		} else {
			log.Warn().Uint64("code", uint64(ret)).Msg("DPI: SetProcessDpiAwareness failed")
		}
		return
	}

	log.Debug().Msg("DPI: Shcore.SetProcessDpiAwareness not available, trying fallback")
	if err := procSetProcessDPIAware.Find(); err != nil {
		log.Warn().Msg("DPI: SetProcessDPIAware not available, no DPI awareness set")
		return
	}
	if ret, _, _ := procSetProcessDPIAware.Call(); ret == 0 {
		log.Warn().Msg("DPI: SetProcessDPIAware failed")
	}
}

func metric(index int) int {
	ret, _, _ := procGetSystemMetrics.Call(uintptr(index))
	return int(int32(ret))
}

func logMonitorConfiguration(logger zerolog.Logger) {
	if procGetSystemMetrics.Find() != nil {
		return
	}
	logger.Info().
		Int("monitors", metric(smCMonitors)).
		Int("virtual_x", metric(smXVirtualScreen)).
		Int("virtual_y", metric(smYVirtualScreen)).
		Int("virtual_w", metric(smCXVirtualScreen)).
		Int("virtual_h", metric(smCYVirtualScreen)).
		Int("primary_w", metric(smCXScreen)).
		Int("primary_h", metric(smCYScreen)).
		Msg("monitor configuration")
}
