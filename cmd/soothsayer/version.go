package main

import "runtime/debug"

// Version is set by the linker, e.g. -ldflags "-X main.Version=v1.0.0".
var Version = "dev"

func init() {
	if info, available := debug.ReadBuildInfo(); available {
		if Version == "dev" && info.Main.Version != "" {
			Version = info.Main.Version
		}
	}
}
