package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/leadchat-ai/internal/config"
	"github.com/wolfman30/leadchat-ai/pkg/logging"
)

func TestRunChatWithoutBackends(t *testing.T) {
	cfg := &appconfig.Config{
		LLMProvider:         "auto",
		EmailProvider:       "stub",
		SessionTTL:          time.Hour,
		SessionLockTTL:      time.Minute,
		LeadDeliveryTimeout: time.Second,
		MeetingSlots:        []string{"Mon 10:00"},
	}
	in := strings.NewReader("barbershop booking app\nOlena\n/quit\n")
	var out bytes.Buffer

	require.NoError(t, runChat(context.Background(), cfg, in, &out, logging.New("error")))

	text := out.String()
	assert.Contains(t, text, "assistant: Hi!")
	// No backend configured: the quiz falls back to the default questions.
	assert.Contains(t, text, "Olena")
}

func TestLoadEnvFile(t *testing.T) {
	assert.NoError(t, loadEnvFile(""))
	assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LEADCHAT_TEST_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("LEADCHAT_TEST_VALUE") })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("LEADCHAT_TEST_VALUE"))
}

func TestChatCommandRegistered(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"chat"})
	require.NoError(t, err)
	assert.Equal(t, "chat", cmd.Name())
	assert.NotNil(t, cmd.Flags().Lookup("slots"))
}
