package usefulerror

// Standard error codes reused across the project. Human friendly format,
// deliberately not aligned with posix error codes. Keep this minimal and
// reuse before adding new ones.
const (
	ErrCodeInvalidPolicy      = "InvalidPolicy"
	ErrCodeBackendUnavailable = "BackendUnavailable"
	ErrCodePresetNotFound     = "PresetNotFound"
	ErrCodeLifecycle          = "Lifecycle"
	ErrCodeUnknown            = "Unknown"
)
