package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/openagi"
	"github.com/aretw0/openagi/internal/config"
	"github.com/aretw0/openagi/internal/logging"
	"github.com/aretw0/openagi/pkg/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("OPENAGI_CONFIG", "")
	t.Setenv("TOGETHER_API_KEY", "")

	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// resetFlags restores every flag to its default, since commands are package globals.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// fakeRelay answers like a relay that forwarded to the model API.
func fakeRelay(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotNil(t, body["llmConfig"])
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

var validFlags = []string{
	"--api-key", "sk-test",
	"--model", "meta-llama/Llama-3.3-70B-Instruct-Turbo",
	"--max-tokens", "64",
	"--temperature", "0.5",
	"--top-k", "40",
	"--repetition-penalty", "1",
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "openagi version "+strings.TrimSpace(openagi.Version)+"\n", out)
}

func TestRunCommand(t *testing.T) {
	relaySrv := fakeRelay(t, "Hello from the model")

	t.Run("Plain Output", func(t *testing.T) {
		args := append([]string{"run", "--relay-url", relaySrv.URL}, validFlags...)
		out, err := execute(t, "", append(args, "Say hello")...)
		require.NoError(t, err)
		assert.Equal(t, "Hello from the model\n", out)
	})

	t.Run("JSON From Stdin", func(t *testing.T) {
		args := append([]string{"run", "--json", "--relay-url", relaySrv.URL}, validFlags...)
		out, err := execute(t, "Say hello\n", args...)
		require.NoError(t, err)
		assert.JSONEq(t, `{"output":"Hello from the model"}`, out)
	})

	t.Run("Preflight Failure", func(t *testing.T) {
		out, err := execute(t, "", "run", "--relay-url", relaySrv.URL, "--input", "hi")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API Key is required.")
		assert.Empty(t, out)
	})
}

func TestValidateCommand(t *testing.T) {
	t.Run("Ready", func(t *testing.T) {
		args := append([]string{"validate", "--json"}, validFlags...)
		out, err := execute(t, "", append(args, "--input", "hi")...)
		require.NoError(t, err)

		var report validateReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.True(t, report.Ready)
	})

	t.Run("Not Ready", func(t *testing.T) {
		args := append([]string{"validate", "--json"}, validFlags...)
		out, err := execute(t, "", append(args, "--input", "hi", "--temperature", "1.5")...)
		assert.ErrorIs(t, err, errNotReady)

		var report validateReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.False(t, report.Ready)
		assert.Equal(t, "InvalidTemperature", report.Kind)
	})

	t.Run("Text Report", func(t *testing.T) {
		out, err := execute(t, "", "validate", "--input", "hi")
		assert.ErrorIs(t, err, errNotReady)
		assert.Contains(t, out, "API Key is required.")
	})
}

func testLogger() *slog.Logger {
	return logging.NewWithFormat(io.Discard, slog.LevelError, logging.FormatText)
}

func TestBuildServer_Memory(t *testing.T) {
	cfg := config.Default()
	handler, cleanup, err := buildServer(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer cleanup()

	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "go_goroutines")
}

func TestBuildServer_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()
	cfg.Metrics.Enabled = false
	cfg.Encryption.Key = "MDEyMzQ1Njc4OTAxMjM0NTY3ODkwMTIzNDU2Nzg5MDE="

	handler, cleanup, err := buildServer(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer cleanup()

	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/workspaces", "application/json", nil)
	require.NoError(t, err)
	var ws struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ws))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/workspaces/"+ws.ID+"/llm-config",
		strings.NewReader(`{"field":"apiKey","value":"sk-secret"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := mr.Get("openagi:workspace:" + ws.ID)
	require.NoError(t, err)
	assert.NotContains(t, stored, "sk-secret")
	assert.Contains(t, stored, "enc:v1:")

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBuildServer_RedisUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Redis.Addr = "127.0.0.1:1"
	_, _, err := buildServer(context.Background(), cfg, testLogger())
	assert.Error(t, err)
}

// seedWorkspace stores a ready chain in the redis store at addr, the way a server would.
func seedWorkspace(t *testing.T, addr string) string {
	t.Helper()
	cfg := config.Default()
	cfg.Redis.Addr = addr
	store, _, cleanup, err := openStore(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	wb := openagi.New(openagi.WithStore(store))
	ctx := context.Background()
	ws, err := wb.Create(ctx)
	require.NoError(t, err)
	in, err := wb.DropNode(ctx, ws.ID, domain.KindInput, domain.Position{})
	require.NoError(t, err)
	llm, err := wb.DropNode(ctx, ws.ID, domain.KindLLM, domain.Position{X: 200})
	require.NoError(t, err)
	_, err = wb.Connect(ctx, ws.ID, in.ID, llm.ID)
	require.NoError(t, err)
	_, err = wb.SetLLMField(ctx, ws.ID, domain.FieldAPIKey, "sk-secret")
	require.NoError(t, err)
	return ws.ID
}

func TestGraphCommand(t *testing.T) {
	t.Run("Chain From Flags", func(t *testing.T) {
		out, err := execute(t, "", "graph", "--input", "hi")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "graph LR\n"), out)
		assert.Contains(t, out, `"Input"`)
		assert.Contains(t, out, `"LLM Engine"`)
		assert.Contains(t, out, `"Output"`)
		assert.Contains(t, out, "class ")
	})

	t.Run("Top Down", func(t *testing.T) {
		out, err := execute(t, "", "graph", "-d", "TD", "--input", "hi")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "graph TD\n"), out)
	})

	t.Run("Bad Direction", func(t *testing.T) {
		_, err := execute(t, "", "graph", "-d", "RL", "--input", "hi")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid direction")
	})

	t.Run("Workspace Without Redis", func(t *testing.T) {
		_, err := execute(t, "", "graph", "--workspace", "ws-1")
		assert.ErrorIs(t, err, errNoSharedStore)
	})

	t.Run("Shared Workspace", func(t *testing.T) {
		mr := miniredis.RunT(t)
		id := seedWorkspace(t, mr.Addr())
		t.Setenv("OPENAGI_REDIS_ADDR", mr.Addr())

		out, err := execute(t, "", "graph", "--workspace", id)
		require.NoError(t, err)
		assert.Contains(t, out, `"LLM Engine"`)
		assert.NotContains(t, out, `"Output"`)
		assert.NotContains(t, out, "classDef", "an incomplete chain has no overlay")
	})
}

func TestSessionCommands(t *testing.T) {
	mr := miniredis.RunT(t)
	first := seedWorkspace(t, mr.Addr())
	second := seedWorkspace(t, mr.Addr())
	t.Setenv("OPENAGI_REDIS_ADDR", mr.Addr())

	t.Run("List", func(t *testing.T) {
		out, err := execute(t, "", "session", "ls")
		require.NoError(t, err)
		assert.Contains(t, out, "- "+first)
		assert.Contains(t, out, "- "+second)
	})

	t.Run("Inspect Redacts Key", func(t *testing.T) {
		out, err := execute(t, "", "session", "inspect", first)
		require.NoError(t, err)
		var wf domain.Workflow
		require.NoError(t, json.Unmarshal([]byte(out), &wf))
		assert.Equal(t, first, wf.ID)
		assert.Equal(t, domain.RedactionMask, wf.LLMConfig.APIKey)
		assert.NotContains(t, out, "sk-secret")
	})

	t.Run("Inspect Missing", func(t *testing.T) {
		_, err := execute(t, "", "session", "inspect", "nope")
		assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
	})

	t.Run("Remove", func(t *testing.T) {
		out, err := execute(t, "", "session", "rm", first)
		require.NoError(t, err)
		assert.Contains(t, out, "Removed workspace '"+first+"'")

		out, err = execute(t, "", "session", "ls")
		require.NoError(t, err)
		assert.NotContains(t, out, first)
		assert.Contains(t, out, second)
	})

	t.Run("Remove All", func(t *testing.T) {
		_, err := execute(t, "", "session", "rm", "--all")
		require.NoError(t, err)

		out, err := execute(t, "", "session", "ls")
		require.NoError(t, err)
		assert.Equal(t, "No workspaces found.\n", out)
	})

	t.Run("Remove Needs Ids", func(t *testing.T) {
		_, err := execute(t, "", "session", "rm")
		assert.Error(t, err)
	})
}

func TestSessionCommands_WithoutRedis(t *testing.T) {
	_, err := execute(t, "", "session", "ls")
	assert.ErrorIs(t, err, errNoSharedStore)
}
