package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var ErrEmptyImport = errors.New("configuration text is empty")

// ParseImport reads a profile from pasted JSON or YAML text using the stored
// record keys (url, username, password, sslVerification). Unknown keys are ignored.
func ParseImport(text string) (Profile, error) {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 {
		return Profile{}, ErrEmptyImport
	}

	var rec profileRecord
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return Profile{}, fmt.Errorf("invalid JSON: %w", err)
		}

		return rec.profile(), nil
	}

	if err := yaml.Unmarshal(trimmed, &rec); err != nil {
		return Profile{}, fmt.Errorf("invalid YAML: %w", err)
	}

	return rec.profile(), nil
}
