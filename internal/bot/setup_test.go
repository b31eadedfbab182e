package bot

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tannmaycoding/Waste-Recycling-Advisor/config"
)

func withURL(t *testing.T, target *string, url string) {
	old := *target
	*target = url
	t.Cleanup(func() { *target = old })
}

func TestValidateHFToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer hf_good" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "Invalid credentials in Authorization header"}`))
			return
		}
		w.Write([]byte(`{"name": "recycler", "type": "user"}`))
	}))
	defer ts.Close()
	withURL(t, &hfWhoAmIURL, ts.URL)

	assert.NoError(t, validateHFToken("hf_good"))

	err := validateHFToken("hf_bad")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials in Authorization header", err.Error())
}

func TestValidateTelegramToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/bot123:good/getMe" {
			w.Write([]byte(`{"ok": true, "result": {"id": 1, "is_bot": true}}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok": false, "error_code": 401, "description": "Unauthorized"}`))
	}))
	defer ts.Close()
	withURL(t, &telegramAPIURL, ts.URL)

	assert.NoError(t, validateTelegramToken("123:good"))

	err := validateTelegramToken("123:bad")
	require.Error(t, err)
	assert.Equal(t, "Unauthorized", err.Error())
}

func TestValidateGeminiKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("key") == "good" {
			w.Write([]byte(`{"models": []}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"code": 400, "message": "API key not valid"}}`))
	}))
	defer ts.Close()
	withURL(t, &geminiModelsURL, ts.URL)

	assert.NoError(t, validateGeminiKey("good"))
	assert.EqualError(t, validateGeminiKey("bad"), "API key not valid")
}

func TestWriteEnvFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := writeEnvFile(map[string]string{"BOT_TOKEN": "123:abc", "VISION_MODEL": "hustvl/yolos-tiny"})
	require.NoError(t, err)

	expected, err := config.ConfigFilePath()
	require.NoError(t, err)
	assert.Equal(t, expected, path)
	assert.Equal(t, config.AppName, filepath.Base(filepath.Dir(path)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// A second write keeps existing keys
	_, err = writeEnvFile(map[string]string{"HF_TOKEN": "hf_x"})
	require.NoError(t, err)

	values, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"HF_TOKEN":     "hf_x",
		"BOT_TOKEN":    "123:abc",
		"VISION_MODEL": "hustvl/yolos-tiny",
	}, values)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "HF_TOKEN=\"hf_x\"\nBOT_TOKEN=\"123:abc\"\nVISION_MODEL=\"hustvl/yolos-tiny\"\n", string(data))
}

func TestSetupInput_UnknownVariable(t *testing.T) {
	_, ok := setupInput("SOMETHING_ELSE", map[string]string{})
	assert.False(t, ok)
}
