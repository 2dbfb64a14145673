package domain

import "path/filepath"

const (
	// ReplayDirName is the name of the internal harness directory.
	ReplayDirName = ".replay"

	// CacheDirName is the name of the replay cache directory.
	CacheDirName = "cache"

	// OverlaysDirName is the subdirectory of the cache holding overlay layers.
	OverlaysDirName = "overlays"

	// BaseLayerFileName is the file name of the authoritative base layer.
	BaseLayerFileName = "base.bin"

	// BaselineFileName is the file name of the persisted per-scenario baselines.
	BaselineFileName = "baselines.json"

	// ConfigFileName is the name of the harness configuration file.
	ConfigFileName = "replay.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultCachePath returns the default cache directory relative to the project root.
func DefaultCachePath() string {
	return filepath.Join(ReplayDirName, CacheDirName)
}

// DefaultBaselinePath returns the default baseline file relative to the project root.
func DefaultBaselinePath() string {
	return filepath.Join(ReplayDirName, BaselineFileName)
}
