// Package cache decides whether a previously written snapshot is still
// usable, gating the fetch stage. A missing, stale, malformed or
// mismatched file is simply "not fresh" — never an error.
package cache

import (
	"encoding/json"
	"os"
	"time"

	"hhsync/internal/model"
	"hhsync/pkg/logging"
)

// Validator checks snapshot freshness and parameter compatibility.
type Validator struct {
	log *logging.Logger
}

func NewValidator(log *logging.Logger) *Validator {
	return &Validator{log: log}
}

// envelope mirrors just enough of the on-disk shape to validate it.
type envelope struct {
	Data     []json.RawMessage  `json:"data"`
	Metadata *model.FetchParams `json:"_metadata"`
}

// Fresh reports whether the snapshot at path exists, is younger than
// maxAgeHours, parses as the two-part envelope with both halves
// present, and — when expected is non-nil — was built for exactly the
// expected fingerprint triple.
func (v *Validator) Fresh(path string, expected *model.FetchParams, maxAgeHours int) bool {
	info, err := os.Stat(path)
	if err != nil {
		v.log.Info("no usable snapshot", "path", path)
		return false
	}

	if int(time.Since(info.ModTime()).Seconds())/3600 >= maxAgeHours {
		v.log.Info("snapshot expired", "path", path, "max_age_hours", maxAgeHours)
		return false
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	var parts []envelope
	if err := json.Unmarshal(buf, &parts); err != nil || len(parts) < 2 {
		v.log.Info("snapshot is not a two-part envelope", "path", path)
		return false
	}

	// A snapshot is only ever written for a non-empty employer set, so
	// metadata without employers counts as an empty half.
	if len(parts[0].Data) == 0 || parts[1].Metadata == nil || len(parts[1].Metadata.Employers) == 0 {
		v.log.Info("snapshot missing vacancies or metadata", "path", path)
		return false
	}

	if expected != nil && !parts[1].Metadata.Equal(*expected) {
		v.log.Info("snapshot fetch parameters do not match", "path", path)
		return false
	}

	v.log.Info("snapshot is fresh", "path", path)
	return true
}
