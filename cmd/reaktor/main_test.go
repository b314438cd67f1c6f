package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/reaktor-go/internal/logging"
	"github.com/rmacdonaldsmith/reaktor-go/pkg/route"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-name", "tcp", "-directory", "/tmp/r", "-admin", ":8081", "-no-auth"})
	require.NoError(t, err)

	assert.Equal(t, "tcp", opts.name)
	assert.Equal(t, "/tmp/r", opts.directory)
	assert.Equal(t, ":8081", opts.adminAddr)
	assert.True(t, opts.noAuth)
	assert.False(t, opts.showVersion)

	_, err = parseFlags([]string{"-unknown"})
	assert.Error(t, err)
}

func TestLoadConfig_EnvFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("REAKTOR_GRANTS=app=0x4\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("REAKTOR_GRANTS") })

	config, err := loadConfig(&options{
		envFile:    envFile,
		directory:  dir,
		healthAddr: "127.0.0.1:0",
	})
	require.NoError(t, err)

	assert.Equal(t, dir, config.Directory)
	assert.Equal(t, "127.0.0.1:0", config.HealthAddress)
	assert.Equal(t, uint64(0x4), config.Authorization("app"))
}

func TestLoadConfig_MissingEnvFileIsFine(t *testing.T) {
	_, err := loadConfig(&options{envFile: filepath.Join(t.TempDir(), "absent.env"), directory: t.TempDir()})
	assert.NoError(t, err)
}

func TestBuild_ServesEveryKind(t *testing.T) {
	config, err := loadConfig(&options{envFile: filepath.Join(t.TempDir(), "absent.env"), directory: t.TempDir()})
	require.NoError(t, err)

	n, err := build("tcp", config, logging.Discard())
	require.NoError(t, err)
	defer n.Close()

	for _, kind := range route.Kinds {
		reply, err := n.Route(route.Record{Kind: kind, Source: "tcp", Target: kind.String()})
		require.NoError(t, err)
		assert.True(t, reply.OK(), "kind %s", kind)
	}

	var echoed []byte
	stream, ok := n.Acceptor().NewStream(0, "tcp", 1, 7, []byte("hello"), func(_ int32, frame []byte) {
		echoed = frame
	})
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), echoed)

	stream(8, []byte("again"))
	assert.Equal(t, []byte("again"), echoed)
}
