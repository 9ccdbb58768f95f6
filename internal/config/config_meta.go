package config

// ValueType identifies the expected type of a runtime config key, used by
// operator tooling that validates a config file before deploying it.
const (
	ValueTypeString = 1
	ValueTypeNum    = 2
	ValueTypeBool   = 3
)

// Meta holds description and value type for a config key.
type Meta struct {
	Desc      string
	ValueType int
}

// MetaMap returns metadata for all known runtime config keys.
func MetaMap() map[string]Meta {
	return map[string]Meta{
		"agent_listen_port":      {"TCP port the agent listens on", ValueTypeNum},
		"socket_timeout_seconds": {"Connect/read timeout in seconds; not read by the coordinator, which uses a fixed 60 s while preparing agents", ValueTypeNum},
		"log_dir":                {"Log directory path", ValueTypeString},
		"log_rotation_enabled":   {"Enable daily log file rotation", ValueTypeBool},
		"log_keep_days":          {"Number of days to keep log files", ValueTypeNum},
		"log_archive_enabled":    {"Compress rotated-out log files with zstd", ValueTypeBool},
		"debug":                  {"Enable debug logging", ValueTypeBool},
	}
}
