package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func discardLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func TestLoad_ParsesHosts(t *testing.T) {
	path := writeConfig(t, `
hosts:
  prod:
    region: us-east-1
    endpoint: s3.amazonaws.com
    access_key: AKIA123
    secret_key: shh
    bucket: my-bucket
`)
	f, err := Load(path, discardLog())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	host, ok := f.Hosts["prod"]
	if !ok {
		t.Fatal("Load() did not find the prod host")
	}
	if host.Region != "us-east-1" || host.Endpoint != "s3.amazonaws.com" || host.Bucket != "my-bucket" {
		t.Errorf("prod host = %+v", host)
	}
}

func TestLoad_MissingFileReturnsEmpty(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "missing.yml"), discardLog())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(f.Hosts) != 0 {
		t.Errorf("Load() on a missing file returned %d hosts, want 0", len(f.Hosts))
	}
}

func TestLoad_UnknownKeysDoNotFail(t *testing.T) {
	path := writeConfig(t, `
hosts:
  prod:
    region: us-east-1
    typo_field: oops
unexpected_top_level: true
`)
	if _, err := Load(path, discardLog()); err != nil {
		t.Fatalf("Load() with unknown keys should not fail, got %v", err)
	}
}

func TestFile_HostProfile(t *testing.T) {
	f := &File{Hosts: map[string]HostEntry{
		"prod": {Region: "us-east-1", Endpoint: "s3.amazonaws.com", AccessKey: "AKIA", SecretKey: "shh", Bucket: "b"},
	}}
	host, err := f.HostProfile("prod")
	if err != nil {
		t.Fatalf("HostProfile() error = %v", err)
	}
	if host.Name != "prod" || host.AccessKeyID != "AKIA" || host.Bucket != "b" {
		t.Errorf("HostProfile() = %+v", host)
	}
	if string(host.SecretKey.Expose()) != "shh" {
		t.Errorf("HostProfile() secret = %q, want %q", host.SecretKey.Expose(), "shh")
	}
}

func TestFile_HostProfileUnknownHost(t *testing.T) {
	f := &File{Hosts: map[string]HostEntry{}}
	if _, err := f.HostProfile("missing"); err == nil {
		t.Fatal("HostProfile() for an unconfigured host should have failed")
	}
}

func TestPath_HonorsS3MConfigEnv(t *testing.T) {
	t.Setenv("S3M_CONFIG", "/tmp/custom.yml")
	p, err := Path()
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}
	if p != "/tmp/custom.yml" {
		t.Errorf("Path() = %q, want /tmp/custom.yml", p)
	}
}
