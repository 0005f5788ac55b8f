package cmd

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"southwinds.dev/cloak"
	"southwinds.dev/cloak/persist"
)

func TestFormatError(t *testing.T) {
	t.Run("NilError", func(t *testing.T) {
		assert.Equal(t, "", formatError(nil))
	})

	t.Run("SingleErrorIsCapitalized", func(t *testing.T) {
		got := formatError(errors.New("something broke"))
		assert.Equal(t, "Error: Something broke", got)
	})

	t.Run("WrappedErrorShowsCause", func(t *testing.T) {
		inner := errors.New("bad padding")
		got := formatError(fmt.Errorf("failed to decrypt value: %w", inner))
		assert.Contains(t, got, "failed to decrypt value")
		assert.Contains(t, got, "caused by: bad padding")
	})
}

func TestSanitizeArgs(t *testing.T) {
	got := sanitizeArgs([]string{"app.yaml", "ENC(abc123==)", "DEC(staged)", "plain"})
	assert.Equal(t, []string{"app.yaml", "[REDACTED]", "[REDACTED]", "plain"}, got)
}

func TestContainsSensitiveData(t *testing.T) {
	assert.True(t, containsSensitiveData("ENC(xyz)"))
	assert.True(t, containsSensitiveData("db.password=DEC(secret)"))
	assert.False(t, containsSensitiveData("app.yaml"))
	assert.False(t, containsSensitiveData(""))
}

func TestIsSensitiveFlag(t *testing.T) {
	assert.True(t, isSensitiveFlag("password"))
	assert.True(t, isSensitiveFlag("s3-secret-key"))
	assert.False(t, isSensitiveFlag("algorithm"))
	assert.False(t, isSensitiveFlag("store-path"))
}

func TestNeedsEncryptor(t *testing.T) {
	for name, want := range map[string]bool{
		"encrypt": true,
		"decrypt": true,
		"status":  false,
		"audit":   false,
		"version": false,
	} {
		cmd := &cobra.Command{Use: name}
		assert.Equal(t, want, needsEncryptor(cmd), "command %s", name)
	}
}

func TestIsConfigCommand(t *testing.T) {
	parent := &cobra.Command{Use: "config"}
	child := &cobra.Command{Use: "set"}
	parent.AddCommand(child)
	assert.True(t, isConfigCommand(parent))
	assert.True(t, isConfigCommand(child))

	other := &cobra.Command{Use: "encrypt"}
	assert.False(t, isConfigCommand(other))
}

func TestNewEncryptor(t *testing.T) {
	enc, err := newEncryptor("gcm", "test-password")
	require.NoError(t, err)
	assert.IsType(t, &cloak.GCMEncryptor{}, enc)

	enc, err = newEncryptor("", "test-password")
	require.NoError(t, err)
	assert.IsType(t, &cloak.GCMEncryptor{}, enc)

	enc, err = newEncryptor("DES", "test-password")
	require.NoError(t, err)
	assert.IsType(t, &cloak.DESEncryptor{}, enc)

	enc, err = newEncryptor("aes", "test-password")
	require.NoError(t, err)
	assert.IsType(t, &cloak.AESEncryptor{}, enc)

	_, err = newEncryptor("rot13", "test-password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported algorithm")
}

func TestBuildQueryOptions(t *testing.T) {
	resetAuditFlags := func() {
		auditApplication = ""
		auditAction = ""
		auditSince = ""
		auditUntil = ""
		auditSuccess = ""
		auditFailuresOnly = false
		auditLimit = 100
		auditOffset = 0
	}
	resetAuditFlags()
	t.Cleanup(resetAuditFlags)

	t.Run("Defaults", func(t *testing.T) {
		options, err := buildQueryOptions()
		require.NoError(t, err)
		assert.Equal(t, 100, options.Limit)
		assert.Nil(t, options.Since)
		assert.Nil(t, options.Success)
	})

	t.Run("TimeRange", func(t *testing.T) {
		auditSince = "2026-08-01T00:00:00Z"
		auditUntil = "2026-08-02T00:00:00Z"
		defer resetAuditFlags()

		options, err := buildQueryOptions()
		require.NoError(t, err)
		require.NotNil(t, options.Since)
		assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), options.Since.UTC())
		require.NotNil(t, options.Until)
	})

	t.Run("BadTimestamp", func(t *testing.T) {
		auditSince = "yesterday"
		defer resetAuditFlags()

		_, err := buildQueryOptions()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RFC3339")
	})

	t.Run("FailuresOnly", func(t *testing.T) {
		auditFailuresOnly = true
		defer resetAuditFlags()

		options, err := buildQueryOptions()
		require.NoError(t, err)
		require.NotNil(t, options.Success)
		assert.False(t, *options.Success)
	})

	t.Run("SuccessFilter", func(t *testing.T) {
		auditSuccess = "true"
		defer resetAuditFlags()

		options, err := buildQueryOptions()
		require.NoError(t, err)
		require.NotNil(t, options.Success)
		assert.True(t, *options.Success)
	})

	t.Run("BadSuccessValue", func(t *testing.T) {
		auditSuccess = "maybe"
		defer resetAuditFlags()

		_, err := buildQueryOptions()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "true or false")
	})
}

func TestResolveDocumentNames(t *testing.T) {
	store, err := persist.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Save("app.yaml", []byte("a: 1"), "")
	require.NoError(t, err)
	_, err = store.Save("db.properties", []byte("k=v"), "")
	require.NoError(t, err)

	resetFileFlags := func() { filePattern = "" }
	resetFileFlags()
	t.Cleanup(resetFileFlags)

	t.Run("ExplicitNames", func(t *testing.T) {
		names, err := resolveDocumentNames(store, []string{"app.yaml"})
		require.NoError(t, err)
		assert.Equal(t, []string{"app.yaml"}, names)
	})

	t.Run("Pattern", func(t *testing.T) {
		filePattern = "*.yaml"
		defer resetFileFlags()

		names, err := resolveDocumentNames(store, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"app.yaml"}, names)
	})

	t.Run("PatternWithNoMatches", func(t *testing.T) {
		filePattern = "*.toml"
		defer resetFileFlags()

		_, err := resolveDocumentNames(store, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no documents match")
	})

	t.Run("NamesAndPatternConflict", func(t *testing.T) {
		filePattern = "*.yaml"
		defer resetFileFlags()

		_, err := resolveDocumentNames(store, []string{"app.yaml"})
		require.Error(t, err)
	})

	t.Run("NothingSelected", func(t *testing.T) {
		_, err := resolveDocumentNames(store, nil)
		require.Error(t, err)
	})
}

func TestBuildFileSummary(t *testing.T) {
	got := buildFileSummary("Encrypted", 3, 0, nil)
	assert.Contains(t, got, "Encrypted 3 document(s)")
	assert.NotContains(t, got, "unchanged")

	got = buildFileSummary("Decrypted", 2, 1, nil)
	assert.Contains(t, got, "Decrypted 2 document(s), 1 unchanged")

	got = buildFileSummary("Encrypted", 1, 0, []string{"db.yaml: boom"})
	assert.Contains(t, got, "1 failed")
	assert.Contains(t, got, "db.yaml: boom")
}

func TestConfigHelpers(t *testing.T) {
	t.Run("ValidKeys", func(t *testing.T) {
		assert.True(t, isValidConfigKey("cloak.algorithm"))
		assert.True(t, isValidConfigKey("audit.options.file_path"))
		assert.False(t, isValidConfigKey("cloak.bogus"))
		assert.False(t, isValidConfigKey("server.store_type"))
	})

	t.Run("ConvertStringValue", func(t *testing.T) {
		v, err := convertStringValue("true")
		require.NoError(t, err)
		assert.Equal(t, true, v)

		v, err = convertStringValue("10000")
		require.NoError(t, err)
		assert.Equal(t, 10000, v)

		v, err = convertStringValue("gcm")
		require.NoError(t, err)
		assert.Equal(t, "gcm", v)
	})

	t.Run("ValidateConfigValue", func(t *testing.T) {
		assert.NoError(t, validateConfigValue("cloak.algorithm", "des"))
		assert.Error(t, validateConfigValue("cloak.algorithm", "rot13"))
		assert.NoError(t, validateConfigValue("cloak.key_size", 32))
		assert.Error(t, validateConfigValue("cloak.key_size", 17))
		assert.Error(t, validateConfigValue("audit.type", "kafka"))
	})

	t.Run("SensitiveKeys", func(t *testing.T) {
		assert.True(t, isSensitiveConfigKey("cloak.password"))
		assert.True(t, isSensitiveConfigKey("cloak.s3.secret_access_key"))
		assert.False(t, isSensitiveConfigKey("cloak.algorithm"))
		assert.False(t, isSensitiveConfigKey("cloak.key_size"))
	})
}
