package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

const LockVersion = 1

// LockFile records the artifacts produced by the last build. It is used to report which artifacts changed, never to
// skip a build.
type LockFile struct {
	// Version is the version the lockfile was made in.
	Version uint
	// Targets maps every target name to the artifact it produced last.
	Targets map[string]LockEntry
}

// LockEntry holds the checksums of one artifact.
type LockEntry struct {
	// Path is the artifact path relative to the project root.
	Path string
	// Checksum is the blake3 checksum of the artifact.
	Checksum string
	// Source is the dirhash checksum of every input file that ended up in the artifact.
	Source string
}

// NewLock returns an empty lockfile of the current version.
func NewLock() *LockFile {
	return &LockFile{
		Version: LockVersion,
		Targets: map[string]LockEntry{},
	}
}

// GetLock returns the current lockfile. If it does not exist, could not be parsed or is of a previous version, the data
// is discarded and an empty lockfile is returned together with false. A lockfile of a newer version results in an error,
// as it may hold data this version does not know about and must not be overwritten.
func GetLock(log *zerolog.Logger, path string) (*LockFile, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewLock(), false, nil
	} else if err != nil {
		log.Error().Msgf("Error trying to open %s: %v. Using an empty lock file.", path, err)
		return NewLock(), false, nil
	}

	lf := NewLock()
	err = json.Unmarshal(data, lf)
	if err != nil {
		// The lock data is only used to report changes. In the event that the file could not be parsed an empty lock
		// is returned instead.
		log.Error().Msgf("Error trying to parse %s: %v. Using an empty lock file.", path, err)
		return NewLock(), false, nil
	}
	if lf.Version > LockVersion {
		return nil, false, fmt.Errorf("unknown lock file version %d in %s", lf.Version, path)
	} else if lf.Version < LockVersion {
		// Older versions of the lockfile can be safely discarded.
		log.Debug().Msgf("Discarding lock file of version %d.", lf.Version)
		return NewLock(), false, nil
	}
	if lf.Targets == nil {
		lf.Targets = map[string]LockEntry{}
	}
	return lf, true, nil
}

// Write stores the lockfile at the path provided.
func (lf *LockFile) Write(path string) error {
	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode lock file: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("could not write lock file: %w", err)
	}
	return nil
}
