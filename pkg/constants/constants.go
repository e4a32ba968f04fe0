// Package constants provides shared constants used throughout the
// confmap codebase: file permissions, limits, and timeouts that should
// be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application.
const (
	// CommandTimeout bounds how long a CLI command may run.
	CommandTimeout = 10 * time.Minute
)

// File permission constants define standard Unix file permissions.
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x).
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--).
	FilePermissions = 0644
)

// Limit constants define various limits and capacities.
const (
	// MaxBackups is the number of store backups kept before pruning.
	MaxBackups = 10
)

// File name constants for the on-disk store layout.
const (
	// EntitiesFile holds the validated entities of the latest run.
	EntitiesFile = "entities.yaml"

	// ReportFile holds the validation report of the latest run.
	ReportFile = "report.yaml"

	// BackupsDir holds timestamped snapshots of previous runs.
	BackupsDir = "backups"

	// BackupTimeFormat names backup directories sortably by creation time.
	BackupTimeFormat = "20060102T150405Z"
)
