package accounts

import (
	"fmt"
	"os"

	yaml "go.yaml.in/yaml/v3"

	"postbot/internal/twitter"
)

// Source supplies the raw credential list. Account numbers are assigned
// by position: the first entry is account #1.
type Source interface {
	Load() ([]twitter.Credential, error)
}

// FileSource reads credentials from a YAML file holding a list of
// {app_key, app_secret, access_token, access_secret} entries.
type FileSource struct {
	Path string
}

func (s FileSource) Load() ([]twitter.Credential, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("accounts: read %s: %w", s.Path, err)
	}
	var creds []twitter.Credential
	if err := yaml.Unmarshal(b, &creds); err != nil {
		return nil, fmt.Errorf("accounts: parse %s: %w", s.Path, err)
	}
	for i := range creds {
		creds[i].AccountNumber = i + 1
	}
	return creds, nil
}

// StaticSource serves a fixed credential list (tests, embedded setups).
type StaticSource []twitter.Credential

func (s StaticSource) Load() ([]twitter.Credential, error) {
	creds := make([]twitter.Credential, len(s))
	copy(creds, s)
	for i := range creds {
		creds[i].AccountNumber = i + 1
	}
	return creds, nil
}
