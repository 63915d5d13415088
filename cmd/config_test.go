package cmd

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/itrack/internal/output"
)

// testEnv sets up an isolated config dir, viper, output, and store.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	origFunc := configDirFunc
	configDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDirFunc = origFunc })

	viper.Reset()
	setDefaults(dir)

	ui = output.New()
	ui.Out = io.Discard
	ui.ErrOut = io.Discard
	dryRun = false
	configForce = false

	dataStore = nil
	t.Cleanup(func() {
		if dataStore != nil {
			_ = dataStore.Close()
			dataStore = nil
		}
	})

	return dir
}

// signIn configures the test user.
func signIn(t *testing.T) {
	t.Helper()
	viper.Set("user.id", "uid-ada")
	viper.Set("user.email", "ada@example.com")
}

// signOut clears the configured identity.
func signOut(t *testing.T) {
	t.Helper()
	viper.Set("user.id", "")
	viper.Set("user.email", "")
}

// captureOutput redirects ui.Out into a buffer.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	ui.Out = &buf
	return &buf
}

func TestConfigInit(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		force    bool
		dry      bool
		wantErr  string
		wantFile string
	}{
		{name: "fresh", wantFile: "driver: sqlite"},
		{name: "existing without force", existing: "page_size: 3\n", wantErr: "already exists", wantFile: "page_size: 3"},
		{name: "existing with force", existing: "page_size: 3\n", force: true, wantFile: "itrack configuration"},
		{name: "dry run", dry: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := testEnv(t)
			cfgPath := filepath.Join(dir, "config.yaml")
			if tt.existing != "" {
				require.NoError(t, os.WriteFile(cfgPath, []byte(tt.existing), 0o644))
			}
			configForce = tt.force
			dryRun = tt.dry

			err := configInitRun()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			data, readErr := os.ReadFile(cfgPath)
			if tt.wantFile == "" {
				assert.ErrorIs(t, readErr, fs.ErrNotExist, "dry run must not write")
				return
			}
			require.NoError(t, readErr)
			assert.Contains(t, string(data), tt.wantFile)
		})
	}
}

func TestConfigInit_CapturesOverrides(t *testing.T) {
	dir := testEnv(t)
	viper.Set("user.email", "grace@example.com")
	viper.Set("contact.webhook_url", "https://hooks.example.com/itrack")

	require.NoError(t, configInitRun())

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "grace@example.com")
	assert.Contains(t, string(data), "https://hooks.example.com/itrack")
}

func TestFileConfigKeys(t *testing.T) {
	dir := testEnv(t)
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("page_size: 4\nauth:\n  oidc:\n    client_id: itrack-cli\n"), 0o644))

	keys := fileConfigKeys(cfgPath)
	assert.True(t, keys["page_size"])
	assert.True(t, keys["auth.oidc.client_id"])
	assert.False(t, keys["auth.oidc"], "only leaf keys are reported")
	assert.False(t, keys["port"])

	assert.Empty(t, fileConfigKeys(filepath.Join(dir, "missing.yaml")))
}

func TestSourceOf(t *testing.T) {
	fileKeys := map[string]bool{"page_size": true}
	t.Setenv("ITRACK_PORT", "9090")

	assert.Equal(t, "(env: ITRACK_PORT)", sourceOf("port", fileKeys).String())
	assert.Equal(t, "(file)", sourceOf("page_size", fileKeys).String())
	assert.Equal(t, "(default)", sourceOf("auth.mode", fileKeys).String())
}

func TestConfigShow_FileSource(t *testing.T) {
	dir := testEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("db:\n  dsn: postgres://secret@db/itrack\n"), 0o644))
	viper.Set("db.dsn", "postgres://secret@db/itrack")
	buf := captureOutput(t)

	require.NoError(t, configShowRun())

	out := buf.String()
	assert.NotContains(t, out, "secret", "dsn is masked")
	assert.Regexp(t, `db\.dsn\s+\(set\)\s+\(file\)`, out)
	assert.Regexp(t, `auth\.mode\s+local\s+\(default\)`, out)
}

func TestEditorCommand(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "")
	_, err := editorCommand()
	assert.ErrorContains(t, err, "$EDITOR is not set")

	t.Setenv("EDITOR", "code --wait")
	got, err := editorCommand()
	require.NoError(t, err)
	assert.Equal(t, []string{"code", "--wait"}, got)

	t.Setenv("VISUAL", "nvim")
	got, err = editorCommand()
	require.NoError(t, err)
	assert.Equal(t, []string{"nvim"}, got, "VISUAL wins over EDITOR")
}

func TestConfigEdit(t *testing.T) {
	dir := testEnv(t)
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "true")

	assert.ErrorContains(t, configEditRun(), "run 'itrack config init' first")

	require.NoError(t, configInitRun())
	dryRun = true
	assert.NoError(t, configEditRun())

	dryRun = false
	assert.NoError(t, configEditRun())
	_, err := os.Stat(filepath.Join(dir, "config.yaml"))
	assert.NoError(t, err)
}

func TestEnvVarFor(t *testing.T) {
	assert.Equal(t, "ITRACK_USER_EMAIL", envVarFor("user.email"))
	assert.Equal(t, "ITRACK_AUTH_OIDC_ISSUER_URL", envVarFor("auth.oidc.issuer_url"))
	assert.Equal(t, "ITRACK_PAGE_SIZE", envVarFor("page_size"))
}

func TestConfigShow_ListsKeysWithSource(t *testing.T) {
	testEnv(t)
	buf := captureOutput(t)
	t.Setenv("ITRACK_USER_EMAIL", "grace@example.com")
	viper.SetEnvPrefix("ITRACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	require.NoError(t, configShowRun())

	out := buf.String()
	assert.Contains(t, out, "grace@example.com")
	assert.Contains(t, out, "(env: ITRACK_USER_EMAIL)")
	assert.Contains(t, out, "contact.timeout")
}
