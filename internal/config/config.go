// Package config loads the YAML host-profile file s3m reads its S3-compatible
// endpoints from. It applies no CLI flag or environment overrides itself;
// callers layer those on top of the profiles it returns.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/s3m/s3m/pkg/s3m"
)

// HostEntry is a single `hosts.<name>` block in the YAML config file.
type HostEntry struct {
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
	Bucket      string `yaml:"bucket"`
	EncKey      string `yaml:"enc_key"`
	Compress    bool   `yaml:"compress"`
	PathStyle   bool   `yaml:"path_style"`
	NoSignReq   bool   `yaml:"no_sign_request"`
}

// File is the top-level shape of config.yml.
type File struct {
	Hosts map[string]HostEntry `yaml:"hosts"`
}

// knownTopLevelKeys are the keys warnUnknownKeys accepts under the
// document root. Anything else is logged as a warning, never an error.
var knownTopLevelKeys = map[string]bool{"hosts": true}

// knownHostKeys mirrors HostEntry's yaml tags.
var knownHostKeys = map[string]bool{
	"region": true, "endpoint": true, "access_key": true, "secret_key": true,
	"bucket": true, "enc_key": true, "compress": true, "path_style": true,
	"no_sign_request": true,
}

// Path resolves the config file location: $S3M_CONFIG, then
// $XDG_CONFIG_HOME/s3m/config.yml, then $HOME/.config/s3m/config.yml.
func Path() (string, error) {
	if p := os.Getenv("S3M_CONFIG"); p != "" {
		return p, nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "s3m", "config.yml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return filepath.Join(home, ".config", "s3m", "config.yml"), nil
}

// Load reads and parses the config file at path. A missing file is not an
// error: it returns an empty File so CLI flags and env vars alone can drive
// a run. Unknown keys are collected and handed to warn rather than failing
// the load.
func Load(path string, log *logrus.Entry) (*File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &File{Hosts: map[string]HostEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	warnUnknownKeys(&root, log)

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if f.Hosts == nil {
		f.Hosts = map[string]HostEntry{}
	}
	return &f, nil
}

// warnUnknownKeys walks the raw document node, logging any top-level or
// per-host key not recognized by File/HostEntry. It never returns an error:
// unknown keys are a warning per spec.md's config precedence rules.
func warnUnknownKeys(root *yaml.Node, log *logrus.Entry) {
	if log == nil || len(root.Content) == 0 {
		return
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, val := doc.Content[i], doc.Content[i+1]
		if !knownTopLevelKeys[key.Value] {
			log.WithField("key", key.Value).Warn("config: unknown top-level key")
			continue
		}
		if key.Value == "hosts" && val.Kind == yaml.MappingNode {
			warnUnknownHostKeys(val, log)
		}
	}
}

func warnUnknownHostKeys(hosts *yaml.Node, log *logrus.Entry) {
	for i := 0; i+1 < len(hosts.Content); i += 2 {
		name, entry := hosts.Content[i], hosts.Content[i+1]
		if entry.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(entry.Content); j += 2 {
			key := entry.Content[j]
			if !knownHostKeys[key.Value] {
				log.WithFields(logrus.Fields{"host": name.Value, "key": key.Value}).
					Warn("config: unknown key under host")
			}
		}
	}
}

// HostProfile converts the named entry into an s3m.HostProfile. It does not
// apply CLI/env overrides; callers layer those on top of the returned value.
func (f *File) HostProfile(name string) (*s3m.HostProfile, error) {
	entry, ok := f.Hosts[name]
	if !ok {
		return nil, fmt.Errorf("config: unknown host %q", name)
	}

	host := &s3m.HostProfile{
		Name:          name,
		Region:        entry.Region,
		Host:          entry.Endpoint,
		Scheme:        "https",
		AccessKeyID:   entry.AccessKey,
		SecretKey:     s3m.NewSecretString(entry.SecretKey),
		Bucket:        entry.Bucket,
		Compress:      entry.Compress,
		PathStyle:     entry.PathStyle,
		NoSignRequest: entry.NoSignReq,
	}
	if entry.EncKey != "" {
		host.EncryptionKey = []byte(entry.EncKey)
	}
	return host, nil
}
