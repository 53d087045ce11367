package verifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseSecretInput(t *testing.T) {
	ctx := context.Background()

	secret, err := ParseSecretInput(ctx, "user:pass@tcp(db)/entries", PlainTextSecret)
	require.NoError(t, err)
	require.Equal(t, "user:pass@tcp(db)/entries", secret)

	secret, err = ParseSecretInput(ctx, "entries.db", "")
	require.NoError(t, err)
	require.Equal(t, "entries.db", secret)

	t.Setenv("SCRYPT_VERIFIER_TEST_DSN", "from-env")
	secret, err = ParseSecretInput(ctx, "SCRYPT_VERIFIER_TEST_DSN", EnvVarSecret)
	require.NoError(t, err)
	require.Equal(t, "from-env", secret)

	_, err = ParseSecretInput(ctx, "SCRYPT_VERIFIER_TEST_UNSET", EnvVarSecret)
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "dsn.txt")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0600))
	secret, err = ParseSecretInput(ctx, path, TextFileSecret)
	require.NoError(t, err)
	require.Equal(t, "from-file", secret)

	_, err = ParseSecretInput(ctx, "x;rm -rf", TextFileSecret)
	require.EqualError(t, err, "bad char in path: ;")

	_, err = ParseSecretInput(ctx, "x", SecretType("vault"))
	require.Error(t, err)
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	dsnPath := filepath.Join(dir, "dsn")
	require.NoError(t, os.WriteFile(dsnPath, []byte(filepath.Join(dir, "entries.db")), 0600))

	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{
		"database": {"driver": "sqlite", "dsn": "`+dsnPath+`", "dsn_type": "file"},
		"verifier": {"command": ["node", "verify.js"]},
		"journal_id": "journal"
	}`), 0600))

	serverConfig, err := ReadConfig(context.Background(), configPath)
	require.NoError(t, err)
	require.Equal(t, "sqlite", serverConfig.Database.Driver)
	require.Equal(t, filepath.Join(dir, "entries.db"), serverConfig.Database.DSN)
	require.Equal(t, []string{"node", "verify.js"}, serverConfig.Verifier.Command)
	require.Equal(t, DEFAULT_VERIFIER_TIMEOUT_SECONDS, serverConfig.Verifier.TimeoutSeconds)
	require.Equal(t, "journal", serverConfig.JournalID)

	_, err = ReadConfig(context.Background(), filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestTimeoutFromSetting(t *testing.T) {
	timeout, err := TimeoutFromSetting("", 30)
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, timeout)

	timeout, err = TimeoutFromSetting("5", 30)
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, timeout)

	_, err = TimeoutFromSetting("five", 30)
	require.Error(t, err)
}

func TestCORSWhitelist(t *testing.T) {
	require.Nil(t, CORSWhitelist(""))
	require.Equal(t, []string{"https://a.example", "https://b.example"}, CORSWhitelist("https://a.example, https://b.example,"))
}
