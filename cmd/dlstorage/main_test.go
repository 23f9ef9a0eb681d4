package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlunire/dlstorage-go/config"
	"github.com/dlunire/dlstorage-go/storage"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// --- Usage tests ---

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no command", nil, exitUsage},
		{"unknown command", []string{"frobnicate"}, exitUsage},
		{"unknown global flag", []string{"--nope", "list"}, exitUsage},
		{"help command", []string{"help"}, exitOK},
		{"help flag", []string{"--help"}, exitOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := runCLI(t, "", tc.args...)
			assert.Equal(t, tc.code, res.code, "stderr: %s", res.stderr)
		})
	}
}

func TestRun_CommandUsageErrors(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"save without name", []string{"save"}},
		{"load two names", []string{"load", "a", "b"}},
		{"inspect unknown flag", []string{"inspect", "a", "--key", "k"}},
		{"list with args", []string{"list", "extra"}},
		{"rm without name", []string{"rm"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"--root", root}, tc.args...)
			res := runCLI(t, "", args...)
			assert.Equal(t, exitUsage, res.code, "stderr: %s", res.stderr)
		})
	}
}

// --- Command tests ---

func TestRun_SaveLoadStdio(t *testing.T) {
	root := t.TempDir()

	res := runCLI(t, "hello world", "--root", root, "save", "greeting")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.FileExists(t, filepath.Join(root, "storage", "greeting.dlstorage"))

	res = runCLI(t, "", "--root", root, "load", "greeting")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "hello world", res.stdout)
}

func TestRun_SaveLoadFiles(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(t.TempDir(), "in.bin")
	out := filepath.Join(t.TempDir(), "out.bin")
	data := []byte{0x00, 0x01, 0xfe, 0xff, 'm', 'A'}
	require.NoError(t, os.WriteFile(in, data, 0644))

	res := runCLI(t, "", "--root", root, "save", "blobs/raw", "--in", in, "--key", "secret")
	require.Equal(t, exitOK, res.code, res.stderr)

	res = runCLI(t, "", "--root", root, "load", "blobs/raw", "--out", out, "--key", "secret")
	require.Equal(t, exitOK, res.code, res.stderr)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestRun_EmptyKeyIsAKey(t *testing.T) {
	root := t.TempDir()

	res := runCLI(t, "A", "--root", root, "save", "k", "--key", "")
	require.Equal(t, exitOK, res.code, res.stderr)

	res = runCLI(t, "", "--root", root, "load", "k", "--key", "")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "A", res.stdout)

	res = runCLI(t, "", "--root", root, "load", "k")
	assert.NotEqual(t, "A", res.stdout)
}

func TestRun_Bare(t *testing.T) {
	root := t.TempDir()

	res := runCLI(t, "x", "--root", root, "save", "top", "--bare")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.FileExists(t, filepath.Join(root, "top.dlstorage"))
	assert.NoFileExists(t, filepath.Join(root, "storage", "top.dlstorage"))

	res = runCLI(t, "", "--root", root, "load", "top", "--bare")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "x", res.stdout)
}

func TestRun_Inspect(t *testing.T) {
	root := t.TempDir()

	res := runCLI(t, "A", "--root", root, "save", "a")
	require.Equal(t, exitOK, res.code, res.stderr)

	res = runCLI(t, "", "--root", root, "inspect", "a")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "version\tv0.1.0\n"+
		"header_length\t6\n"+
		"payload_length\t4\n"+
		"payload_offset\t24\n"+
		"size\t27\n", res.stdout)
}

func TestRun_ListAndRemove(t *testing.T) {
	root := t.TempDir()

	for _, name := range []string{"b", "a", "dir/c"} {
		res := runCLI(t, name, "--root", root, "save", name)
		require.Equal(t, exitOK, res.code, res.stderr)
	}

	res := runCLI(t, "", "--root", root, "list")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "a\nb\ndir/c\n", res.stdout)

	res = runCLI(t, "", "--root", root, "rm", "b")
	require.Equal(t, exitOK, res.code, res.stderr)

	res = runCLI(t, "", "--root", root, "list")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "a\ndir/c\n", res.stdout)
}

func TestRun_LoadMissing(t *testing.T) {
	res := runCLI(t, "", "--root", t.TempDir(), "load", "missing")
	assert.Equal(t, exitError, res.code)
	assert.Contains(t, res.stderr, "not found")
}

func TestRun_InvalidName(t *testing.T) {
	res := runCLI(t, "x", "--root", t.TempDir(), "save", "../escape")
	assert.Equal(t, exitError, res.code)
}

// --- Configuration tests ---

func TestRun_ConfigFileInRoot(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = root
	cfg.StorageDir = "vault"
	cfg.Version = "v9.9.9"
	cfg.Catalog = "catalog.db"
	cfg.LogLevel = "error"
	require.NoError(t, config.SaveConfig(config.ConfigPath(root), cfg))

	res := runCLI(t, "A", "--root", root, "save", "a")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.FileExists(t, filepath.Join(root, "vault", "a.dlstorage"))
	assert.FileExists(t, filepath.Join(root, "catalog.db"))
	assert.Empty(t, res.stderr)

	res = runCLI(t, "", "--root", root, "inspect", "a")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "version\tv9.9.9\n")

	res = runCLI(t, "", "--root", root, "load", "a")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "A", res.stdout)
}

func TestRun_CatalogDetectsWrongKey(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = root
	cfg.Catalog = filepath.Join(root, "meta", "catalog.db")
	require.NoError(t, config.SaveConfig(config.ConfigPath(root), cfg))

	res := runCLI(t, "payload", "--root", root, "save", "p", "--key", "right")
	require.Equal(t, exitOK, res.code, res.stderr)

	res = runCLI(t, "", "--root", root, "load", "p", "--key", "wrong")
	assert.Equal(t, exitError, res.code)
	assert.Empty(t, res.stdout)
}

func TestRun_ExplicitConfigMissing(t *testing.T) {
	res := runCLI(t, "", "--config", filepath.Join(t.TempDir(), "none.conf"), "list")
	assert.Equal(t, exitError, res.code)
	assert.Contains(t, res.stderr, "not found")
}

func TestRun_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.conf")
	require.NoError(t, os.WriteFile(path, []byte("backend = ftp\n"), 0600))

	res := runCLI(t, "", "--config", path, "--root", t.TempDir(), "list")
	assert.Equal(t, exitError, res.code)
	assert.Contains(t, res.stderr, "invalid backend")
}

func TestRun_S3BackendRequiresCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s3.conf")
	require.NoError(t, os.WriteFile(path, []byte("backend = s3\ns3.bucket = b\n"), 0600))

	res := runCLI(t, "", "--config", path, "--root", t.TempDir(), "list")
	assert.Equal(t, exitError, res.code)
	assert.Contains(t, res.stderr, "access key")
}

func TestNewBackend_S3UsesStorageDir(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend = config.BackendS3
	cfg.StorageDir = "vault"
	cfg.S3Bucket = "b"
	cfg.S3Prefix = "site"
	cfg.S3AccessKey = "access"
	cfg.S3SecretKey = "secret"

	backend, err := newBackend(cfg)
	require.NoError(t, err)
	s3b, ok := backend.(*storage.S3Backend)
	require.True(t, ok)

	key, err := s3b.Key(storage.Ref{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, "site/vault/a.dlstorage", key)
}

func TestRun_LogFile(t *testing.T) {
	root := t.TempDir()
	logPath := filepath.Join(t.TempDir(), "logs", "dlstorage.log")
	cfg := config.DefaultConfig()
	cfg.DataDir = root
	cfg.LogFile = logPath
	require.NoError(t, config.SaveConfig(config.ConfigPath(root), cfg))

	res := runCLI(t, "A", "--root", root, "save", "a")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Empty(t, res.stderr)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=saved")
	assert.Contains(t, string(data), "name=a")
}
