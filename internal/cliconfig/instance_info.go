package cliconfig

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultInstanceFileName is the identity file under the data dir.
const DefaultInstanceFileName = "instance.json"

// LoadInstanceInfo fills the instance identity if it is not already set.
// The ID is read from instance.json under the data dir and created on
// first run, so one installation keeps a stable identity across
// restarts and updates.
func LoadInstanceInfo(cfg *Config) error {
	if cfg.InstanceID != "" {
		return nil
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("instance id requires data-dir")
	}
	id, err := readOrCreateInstanceID(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("load instance id: %w", err)
	}
	cfg.InstanceID = id
	return nil
}

func readOrCreateInstanceID(dataDir string) (string, error) {
	path := filepath.Join(dataDir, DefaultInstanceFileName)

	b, err := os.ReadFile(path)
	if err == nil {
		var doc instanceDoc
		if err := json.Unmarshal(b, &doc); err != nil {
			return "", fmt.Errorf("parse %s: %w", path, err)
		}
		if doc.InstanceID != "" {
			return doc.InstanceID, nil
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	id, err := newInstanceID()
	if err != nil {
		return "", err
	}
	doc := instanceDoc{InstanceID: id, CreatedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return id, nil
}

// newInstanceID derives "<hostname>-<hex>" from the hostname and random
// bytes. The random part keeps two installations on one host distinct.
func newInstanceID() (string, error) {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "syncgate"
	}
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("generate instance id: %w", err)
	}
	sum := sha256.Sum256(append([]byte(host), raw[:]...))
	return host + "-" + hex.EncodeToString(sum[:8]), nil
}

type instanceDoc struct {
	InstanceID string    `json:"instance_id"`
	CreatedAt  time.Time `json:"created_at"`
}
