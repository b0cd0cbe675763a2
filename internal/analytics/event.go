package analytics

const (
	eventRun      = "cage_command_run"
	eventBackends = "cage_command_backends"
	eventPresets  = "cage_command_presets"
	eventVersion  = "cage_command_version"
)

func TrackCommandRun(backend string) {
	TrackEvent(eventRun, map[string]interface{}{
		"backend": backend,
	})
}

func TrackCommandBackends() {
	TrackEvent(eventBackends)
}

func TrackCommandPresets() {
	TrackEvent(eventPresets)
}

func TrackCommandVersion() {
	TrackEvent(eventVersion)
}
