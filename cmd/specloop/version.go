package main

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Overridden at build time with -ldflags.
var version = "dev"

func versionLine() string {
	if version != "dev" {
		return fmt.Sprintf("specloop version %s", version)
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && strings.TrimSpace(s.Value) != "" {
				rev := strings.TrimSpace(s.Value)
				if len(rev) > 12 {
					rev = rev[:12]
				}
				return fmt.Sprintf("specloop version dev (%s)", rev)
			}
		}
	}
	return "specloop version dev"
}
