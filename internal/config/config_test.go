package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConf(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "netjobs.conf")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_BasicProperties(t *testing.T) {
	path := writeTempConf(t, `
agent_listen_port=17000
socket_timeout_seconds=30
log_dir=/var/log/netjobs
debug=true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.AgentListenPort() != 17000 {
		t.Errorf("expected agent_listen_port=17000, got %d", cfg.AgentListenPort())
	}
	if cfg.SocketTimeoutSeconds() != 30 {
		t.Errorf("expected socket_timeout_seconds=30, got %d", cfg.SocketTimeoutSeconds())
	}
	if cfg.LogDir() != "/var/log/netjobs" {
		t.Errorf("expected log_dir=/var/log/netjobs, got %q", cfg.LogDir())
	}
	if !cfg.IsDebug() {
		t.Error("expected debug=true")
	}
}

func TestLoad_Comments(t *testing.T) {
	path := writeTempConf(t, `
# This is a comment
agent_listen_port=1

# Another comment

socket_timeout_seconds=8
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AgentListenPort() != 1 {
		t.Errorf("expected agent_listen_port=1, got %d", cfg.AgentListenPort())
	}
	if cfg.SocketTimeoutSeconds() != 8 {
		t.Errorf("expected 8, got %d", cfg.SocketTimeoutSeconds())
	}
	if cfg.GetString("# This is a comment", "") != "" {
		t.Error("comment should not be a key")
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeTempConf(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AgentListenPort() != 16192 {
		t.Errorf("expected default agent_listen_port=16192, got %d", cfg.AgentListenPort())
	}
	if cfg.SocketTimeoutSeconds() != 60 {
		t.Errorf("expected default socket_timeout_seconds=60, got %d", cfg.SocketTimeoutSeconds())
	}
	if cfg.IsDebug() {
		t.Error("expected default debug=false")
	}
}

func TestGetString(t *testing.T) {
	path := writeTempConf(t, "key1=value1\n  key2 = value with spaces  \n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GetString("key1", "") != "value1" {
		t.Errorf("expected value1, got %q", cfg.GetString("key1", ""))
	}
	if cfg.GetString("key2", "") != "value with spaces" {
		t.Errorf("expected 'value with spaces', got %q", cfg.GetString("key2", ""))
	}
	if cfg.GetString("nonexistent", "def") != "def" {
		t.Errorf("expected default 'def', got %q", cfg.GetString("nonexistent", "def"))
	}
}

func TestGetInt(t *testing.T) {
	path := writeTempConf(t, "port=9090\nbad=abc\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GetInt("port", 0) != 9090 {
		t.Errorf("expected 9090, got %d", cfg.GetInt("port", 0))
	}
	if cfg.GetInt("bad", 42) != 42 {
		t.Errorf("expected default 42 for non-numeric value, got %d", cfg.GetInt("bad", 42))
	}
	if cfg.GetInt("missing", 100) != 100 {
		t.Errorf("expected default 100, got %d", cfg.GetInt("missing", 100))
	}
}

func TestGetBool(t *testing.T) {
	path := writeTempConf(t, "a=true\nb=false\nc=1\nd=0\ne=yes\nf=no\ng=on\nh=off\ni=TRUE\nj=invalid\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		key      string
		expected bool
	}{
		{"a", true},
		{"b", false},
		{"c", true},
		{"d", false},
		{"e", true},
		{"f", false},
		{"g", true},
		{"h", false},
		{"i", true},
	}
	for _, tc := range cases {
		got := cfg.GetBool(tc.key, !tc.expected)
		if got != tc.expected {
			t.Errorf("GetBool(%q): expected %v, got %v", tc.key, tc.expected, got)
		}
	}

	if cfg.GetBool("j", true) != true {
		t.Error("invalid bool value should return default")
	}
	if cfg.GetBool("j", false) != false {
		t.Error("invalid bool value should return default")
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/tmp/nonexistent_netjobs_test_12345.conf")
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil Config for missing file")
	}
	if cfg.AgentListenPort() != 16192 {
		t.Errorf("expected default AgentListenPort=16192, got %d", cfg.AgentListenPort())
	}
}

func TestConvenienceMethods(t *testing.T) {
	path := writeTempConf(t, `
agent_listen_port=17100
socket_timeout_seconds=45
log_dir=/var/netjobs/logs
log_rotation_enabled=false
log_keep_days=7
log_archive_enabled=false
debug=true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"AgentListenPort", cfg.AgentListenPort(), 17100},
		{"SocketTimeoutSeconds", cfg.SocketTimeoutSeconds(), 45},
		{"LogDir", cfg.LogDir(), "/var/netjobs/logs"},
		{"LogRotationEnabled", cfg.LogRotationEnabled(), false},
		{"LogKeepDays", cfg.LogKeepDays(), 7},
		{"LogArchiveEnabled", cfg.LogArchiveEnabled(), false},
		{"IsDebug", cfg.IsDebug(), true},
	}

	for _, tc := range tests {
		if tc.got != tc.expected {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.expected, tc.got)
		}
	}
}
