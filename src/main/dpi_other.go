//go:build !windows

package main

import "github.com/rs/zerolog"

func enableDPIAwareness() {}

func logMonitorConfiguration(zerolog.Logger) {}
