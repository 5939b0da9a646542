package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
	"github.com/abdul-hamid-achik/hitgraph/packages/history"
	hhttp "github.com/abdul-hamid-achik/hitgraph/packages/http"
)

func resetFlags(t *testing.T) {
	t.Helper()
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Value.Type() != "stringArray" {
				require.NoError(t, f.Value.Set(f.DefValue))
			}
			f.Changed = false
		})
	}
	headerFlags = nil
}

func execWith(t *testing.T, build func() (*graph.Graph, error), args ...string) (int, string) {
	t.Helper()
	resetFlags(t)
	buildGraph = build

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		buildGraph = nil
	})
	return execute(), out.String()
}

func apiGraph(server string, wantStatus int) func() (*graph.Graph, error) {
	return func() (*graph.Graph, error) {
		b := graph.NewBuilder()
		b.Suite("Users", nil).
			Test("create", func(t *graph.T) (any, error) {
				req, err := hhttp.NewAPIRequest("POST", server+"/users", map[string]string{"name": "ada"})
				if err != nil {
					return nil, err
				}
				t.Queue(req)
				t.Then(func(t *graph.T, results []*hhttp.Result) (any, error) {
					t.Assert().Equal(wantStatus, results[0].Response.StatusCode, "status")
					return results[0].Response.JSON("id").Int(), nil
				})
				return nil, nil
			}).
			Test("fetch", func(t *graph.T) (any, error) {
				t.Assert().Equal(int64(7), t.Arg(0), "forwarded id")
				return nil, nil
			}, graph.Depends("create"))
		return b.Build()
	}
}

func newAPIServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunCommand(t *testing.T) {
	server := newAPIServer(t)

	t.Run("clean run exits zero", func(t *testing.T) {
		code, out := execWith(t, apiGraph(server.URL, http.StatusCreated), "run", "--reporter", "json", "--log-level", "error")
		assert.Equal(t, ExitSuccess, code, out)

		var report map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		summary := report["summary"].(map[string]any)
		assert.Equal(t, float64(2), summary["passed"])
	})

	t.Run("failing test exits with test failure", func(t *testing.T) {
		code, out := execWith(t, apiGraph(server.URL, http.StatusOK), "run", "--reporter", "json")
		assert.Equal(t, ExitTestFailure, code, out)
	})

	t.Run("graph error", func(t *testing.T) {
		code, _ := execWith(t, func() (*graph.Graph, error) {
			return nil, errors.New("boom")
		}, "run")
		assert.Equal(t, ExitGraphError, code)
	})

	t.Run("invalid concurrency", func(t *testing.T) {
		code, _ := execWith(t, apiGraph(server.URL, http.StatusCreated), "run", "--concurrency=-1")
		assert.Equal(t, ExitConfigError, code)
	})

	t.Run("unknown reporter", func(t *testing.T) {
		code, _ := execWith(t, apiGraph(server.URL, http.StatusCreated), "run", "--reporter", "html")
		assert.Equal(t, ExitConfigError, code)
	})

	t.Run("invalid proxy", func(t *testing.T) {
		code, out := execWith(t, apiGraph(server.URL, http.StatusCreated), "run", "--proxy", "proxy:8080")
		assert.Equal(t, ExitConfigError, code, out)
	})

	t.Run("dry run lists without executing", func(t *testing.T) {
		code, out := execWith(t, apiGraph("http://127.0.0.1:1", http.StatusCreated), "run", "--dry-run")
		assert.Equal(t, ExitSuccess, code)
		assert.Contains(t, out, "Users::create")
		assert.Contains(t, out, "depends on: Users::create")
	})

	t.Run("notifies slack", func(t *testing.T) {
		received := make(chan string, 1)
		hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			received <- string(body)
		}))
		defer hook.Close()

		code, out := execWith(t, apiGraph(server.URL, http.StatusOK), "run", "--reporter", "json",
			"--notify", "slack", "--notify-on", "failure", "--slack-webhook", hook.URL)
		assert.Equal(t, ExitTestFailure, code, out)
		assert.Contains(t, <-received, "Users::create")
	})

	t.Run("notify without webhook", func(t *testing.T) {
		code, _ := execWith(t, apiGraph(server.URL, http.StatusCreated), "run", "--notify", "teams")
		assert.Equal(t, ExitConfigError, code)
	})

	t.Run("records history", func(t *testing.T) {
		db := filepath.Join(t.TempDir(), "runs.db")
		code, out := execWith(t, apiGraph(server.URL, http.StatusCreated), "run", "--reporter", "json", "--history", db)
		require.Equal(t, ExitSuccess, code, out)

		store, err := history.Open(t.Context(), db)
		require.NoError(t, err)
		defer store.Close()
		runs, err := store.Runs(t.Context(), 0)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.True(t, runs[0].Clean)
		assert.Equal(t, 2, runs[0].Passed)

		code, out = execWith(t, nil, "history", "--db", db)
		assert.Equal(t, ExitSuccess, code)
		assert.Contains(t, out, runs[0].ID)
	})
}

func TestValidateCommand(t *testing.T) {
	code, out := execWith(t, apiGraph("http://localhost", http.StatusCreated), "validate")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Valid: 2 tests in 1 suites")

	code, _ = execWith(t, func() (*graph.Graph, error) {
		b := graph.NewBuilder()
		b.Suite("S", nil).Test("a", func(*graph.T) (any, error) { return nil, nil }, graph.Depends("missing"))
		return b.Build()
	}, "validate")
	assert.Equal(t, ExitGraphError, code)
}

func TestParseHeaders(t *testing.T) {
	headers, err := parseHeaders([]string{"Authorization: Bearer x", "X-Trace:  on "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Authorization": "Bearer x", "X-Trace": "on"}, headers)

	_, err = parseHeaders([]string{"no-colon"})
	assert.Error(t, err)
	_, err = parseHeaders([]string{": value"})
	assert.Error(t, err)
}

func TestParseMillis(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"1500ms", 1500, false},
		{"2s", 2000, false},
		{"-1s", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMillis("timeout", tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":      slog.LevelWarn,
		"DEBUG": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestExitErrorUnwrap(t *testing.T) {
	base := errors.New("bad")
	err := withExitCode(ExitConfigError, base)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "exit status 1", withExitCode(ExitTestFailure, nil).Error())
}
