package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/repositories"
	"github.com/desertthunder/groupchat/internal/services"
	"github.com/desertthunder/groupchat/internal/shared"
	tu "github.com/desertthunder/groupchat/internal/testing"
)

type testRunner struct {
	runner *Runner
	output *bytes.Buffer
	fake   *tu.FakeSpotify
	store  *repositories.Store
	user   *models.User
}

// setupRunner returns a runner backed by an in-memory store holding one connected user whose access
// token the fake Spotify accepts.
func setupRunner(t *testing.T, input io.Reader) *testRunner {
	t.Helper()
	logger := shared.NewLogger(io.Discard)
	store := repositories.NewStore(tu.MustOpenDB(t))
	fake := tu.NewFakeSpotify(t, "valid-token")

	spotify, err := services.NewSpotifyService(fake.Credentials(), store, fake.Server.Client(), logger)
	if err != nil {
		t.Fatalf("failed to create spotify service: %v", err)
	}

	user := models.NewUser("spotify-user", "user@example.com", models.TokenPair{AccessToken: "valid-token", RefreshToken: "r"})
	user.SetDisplayName("Spotify User")
	if err := store.SaveUser(user); err != nil {
		t.Fatalf("failed to save user: %v", err)
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:  shared.DefaultConfig(),
		Logger:  logger,
		Output:  output,
		Input:   input,
		Store:   store,
		Spotify: spotify,
	})

	return &testRunner{runner: runner, output: output, fake: fake, store: store, user: user}
}

// run executes args against the runner's command tree.
func (tr *testRunner) run(t *testing.T, args ...string) error {
	t.Helper()
	tr.output.Reset()

	app := &cli.Command{
		Name:      "groupchat",
		Writer:    io.Discard,
		ErrWriter: io.Discard,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.toml"},
			&cli.BoolFlag{Name: "debug"},
		},
		Before:   tr.runner.Before,
		Commands: tr.runner.register(),
	}
	return app.Run(context.Background(), append([]string{"groupchat"}, args...))
}

// playlist creates a playlist for the connected user through the CLI and returns its id.
func (tr *testRunner) playlist(t *testing.T, title string) string {
	t.Helper()
	if err := tr.run(t, "playlist", "create", "--title", title); err != nil {
		t.Fatalf("playlist create failed: %v", err)
	}
	playlists, err := tr.store.ListPlaylists(tr.user.ID())
	if err != nil || len(playlists) == 0 {
		t.Fatalf("expected a stored playlist, got %v (%v)", playlists, err)
	}
	return playlists[len(playlists)-1].ID()
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			input := strings.NewReader("")
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				Input:      input,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.input != input {
				t.Error("expected input to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if !runner.resolved {
				t.Error("expected a provided config to count as resolved")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.resolved {
				t.Error("expected default config to be resolved later")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output and input uses stdio", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
		})

		t.Run("with nil httpClient uses configured timeout", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config})

			if runner.httpClient == nil {
				t.Fatal("expected httpClient to be set")
			}
			if runner.httpClient.Timeout != config.HTTP.Timeout() {
				t.Errorf("expected timeout %v, got %v", config.HTTP.Timeout(), runner.httpClient.Timeout)
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"setup", "serve", "spotify", "playlist", "chat"} {
			if !names[want] {
				t.Errorf("expected %q to be registered", want)
			}
		}
	})

	t.Run("resolveUser", func(t *testing.T) {
		t.Run("single user without email", func(t *testing.T) {
			tr := setupRunner(t, nil)

			user, err := tr.runner.resolveUser("")
			if err != nil {
				t.Fatalf("expected the only user, got %v", err)
			}
			if user.ID() != tr.user.ID() {
				t.Errorf("expected %s, got %s", tr.user.ID(), user.ID())
			}
		})

		t.Run("by email", func(t *testing.T) {
			tr := setupRunner(t, nil)

			user, err := tr.runner.resolveUser("user@example.com")
			if err != nil || user.ID() != tr.user.ID() {
				t.Errorf("expected stored user, got %v (%v)", user, err)
			}
		})

		t.Run("unknown email", func(t *testing.T) {
			tr := setupRunner(t, nil)

			if _, err := tr.runner.resolveUser("nobody@example.com"); !errors.Is(err, shared.ErrUserNotFound) {
				t.Errorf("expected ErrUserNotFound, got %v", err)
			}
		})

		t.Run("several users need an email", func(t *testing.T) {
			tr := setupRunner(t, nil)
			other := models.NewUser("other", "other@example.com", models.TokenPair{AccessToken: "a", RefreshToken: "r"})
			if err := tr.store.SaveUser(other); err != nil {
				t.Fatal(err)
			}

			if _, err := tr.runner.resolveUser(""); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("no users", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config: shared.DefaultConfig(),
				Logger: shared.NewLogger(io.Discard),
				Store:  repositories.NewStore(tu.MustOpenDB(t)),
			})

			if _, err := runner.resolveUser(""); !errors.Is(err, shared.ErrNotConnected) {
				t.Errorf("expected ErrNotConnected, got %v", err)
			}
		})
	})
}

func TestCallbackAddr(t *testing.T) {
	tc := []struct {
		name     string
		uri      string
		wantAddr string
		wantPath string
		wantErr  bool
	}{
		{"localhost with path", "http://localhost:5000/login/callback", "localhost:5000", "/login/callback", false},
		{"loopback ip", "http://127.0.0.1:8080/cb", "127.0.0.1:8080", "/cb", false},
		{"default port and path", "http://localhost", "localhost:80", "/login/callback", false},
		{"remote host", "https://groupchat.example.com/login/callback", "", "", true},
		{"not a url", "::::", "", "", true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			addr, path, err := callbackAddr(tt.uri)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if addr != tt.wantAddr || path != tt.wantPath {
				t.Errorf("callbackAddr(%q) = %q, %q; want %q, %q", tt.uri, addr, path, tt.wantAddr, tt.wantPath)
			}
		})
	}
}

func TestCommands(t *testing.T) {
	t.Run("Chat Extract", func(t *testing.T) {
		tr := setupRunner(t, nil)

		err := tr.run(t, "chat", "extract", "try https://open.spotify.com/track/one?si=x and https://open.spotify.com/track/two")
		if err != nil {
			t.Fatalf("extract failed: %v", err)
		}
		if tr.output.String() != "one\ntwo\n" {
			t.Errorf("unexpected output %q", tr.output.String())
		}
	})

	t.Run("Chat Extract Requires Message", func(t *testing.T) {
		tr := setupRunner(t, nil)

		if err := tr.run(t, "chat", "extract"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Playlist Create And List", func(t *testing.T) {
		tr := setupRunner(t, nil)

		if err := tr.run(t, "playlist", "create", "--title", "Road Trip"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if !strings.Contains(tr.output.String(), "✓ Created playlist Road Trip") {
			t.Errorf("unexpected create output %q", tr.output.String())
		}

		user, err := tr.store.GetUser(tr.user.ID())
		if err != nil {
			t.Fatal(err)
		}
		if user.ActivePlaylistID() == "" {
			t.Error("expected the new playlist to become active")
		}

		if err := tr.run(t, "playlist", "list"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(tr.output.String(), "1. Road Trip ("+user.ActivePlaylistID()+")") {
			t.Errorf("unexpected list output %q", tr.output.String())
		}
	})

	t.Run("Playlist Show", func(t *testing.T) {
		tr := setupRunner(t, nil)
		id := tr.playlist(t, "Gym")

		if err := tr.run(t, "playlist", "show", "--id", id); err != nil {
			t.Fatalf("show failed: %v", err)
		}
		var out map[string]any
		if err := json.Unmarshal(tr.output.Bytes(), &out); err != nil {
			t.Fatalf("expected JSON, got %q: %v", tr.output.String(), err)
		}
		if out["title"] != "Gym" {
			t.Errorf("unexpected playlist %v", out)
		}

		if err := tr.run(t, "playlist", "show", "--id", "missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("Chat Send And History", func(t *testing.T) {
		tr := setupRunner(t, nil)
		id := tr.playlist(t, "Friday")

		err := tr.run(t, "chat", "send", "--playlist", id, "--sender", "alice",
			"--message", "https://open.spotify.com/track/aaa https://open.spotify.com/track/bbb")
		if err != nil {
			t.Fatalf("send failed: %v", err)
		}
		if !strings.Contains(tr.output.String(), "added 2 tracks") {
			t.Errorf("unexpected send output %q", tr.output.String())
		}

		adds := tr.fake.RequestsTo("/playlists/" + id + "/tracks")
		if len(adds) != 1 || adds[0].Query.Get("uris") != "spotify:track:aaa,spotify:track:bbb" {
			t.Errorf("unexpected add requests %+v", adds)
		}

		if err := tr.run(t, "chat", "send", "--playlist", id, "--message", "no links here"); err != nil {
			t.Fatalf("send without links failed: %v", err)
		}
		if !strings.Contains(tr.output.String(), "no track links") {
			t.Errorf("unexpected send output %q", tr.output.String())
		}

		if err := tr.run(t, "chat", "history", "--playlist", id); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		history := tr.output.String()
		if !strings.Contains(history, "Messages: 2, tracks added: 2") {
			t.Errorf("unexpected history header %q", history)
		}
		if !strings.Contains(history, "cli: no links here") {
			t.Errorf("expected default sender in history, got %q", history)
		}

		if err := tr.run(t, "chat", "history", "--playlist", id, "--format", "csv", "--limit", "1"); err != nil {
			t.Fatalf("csv history failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(tr.output.String()), "\n")
		if len(lines) != 2 {
			t.Errorf("expected header and one row, got %q", lines)
		}
	})

	t.Run("Chat Send Provider Failure", func(t *testing.T) {
		tr := setupRunner(t, nil)
		id := tr.playlist(t, "Broken")
		tr.fake.APIStatus = http.StatusInternalServerError

		err := tr.run(t, "chat", "send", "--playlist", id, "--message", "https://open.spotify.com/track/aaa")
		if !shared.IsProviderError(err) {
			t.Errorf("expected ProviderError, got %v", err)
		}

		messages, err := tr.store.History(id, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(messages) != 0 {
			t.Errorf("failed posts must not be recorded, got %d messages", len(messages))
		}
	})

	t.Run("Chat Import From Stdin", func(t *testing.T) {
		transcript := strings.Join([]string{
			"alice: https://open.spotify.com/track/aaa",
			"",
			"bob: what a tune",
			"https://open.spotify.com/track/bbb https://open.spotify.com/track/ccc",
		}, "\n")
		tr := setupRunner(t, strings.NewReader(transcript))
		id := tr.playlist(t, "Imported")

		if err := tr.run(t, "chat", "import", "--playlist", id, "--file", "-", "--rate", "0"); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		out := tr.output.String()
		if !strings.Contains(out, "Messages: 3") || !strings.Contains(out, "Tracks added: 3") {
			t.Errorf("unexpected import summary %q", out)
		}

		messages, err := tr.store.History(id, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(messages) != 3 || messages[2].Sender() != "anonymous" {
			t.Errorf("unexpected imported history %+v", messages)
		}
	})

	t.Run("Chat Import From File", func(t *testing.T) {
		tr := setupRunner(t, nil)
		id := tr.playlist(t, "File")

		path := filepath.Join(t.TempDir(), "chat.txt")
		if err := os.WriteFile(path, []byte("carol: https://open.spotify.com/track/ddd\n"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := tr.run(t, "chat", "import", "--playlist", id, "--file", path, "--rate", "0"); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if !strings.Contains(tr.output.String(), "Tracks added: 1") {
			t.Errorf("unexpected import summary %q", tr.output.String())
		}

		if err := tr.run(t, "chat", "import", "--playlist", id, "--file", filepath.Join(t.TempDir(), "missing.txt")); err == nil {
			t.Error("expected an error for a missing transcript")
		}
	})

	t.Run("Chat Export", func(t *testing.T) {
		tr := setupRunner(t, nil)
		first := tr.playlist(t, "One")
		second := tr.playlist(t, "Two")
		if err := tr.run(t, "chat", "send", "--playlist", first, "--message", "https://open.spotify.com/track/aaa"); err != nil {
			t.Fatal(err)
		}

		dir := filepath.Join(t.TempDir(), "export")
		if err := tr.run(t, "chat", "export", "--output", dir, "--format", "csv", "--workers", "2"); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if !strings.Contains(tr.output.String(), "Exported: 2/2") {
			t.Errorf("unexpected export output %q", tr.output.String())
		}

		tu.AssertFileExists(t, filepath.Join(dir, first+".csv"))
		tu.AssertFileExists(t, filepath.Join(dir, second+".csv"))
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
	})

	t.Run("Spotify Whoami", func(t *testing.T) {
		tr := setupRunner(t, nil)

		if err := tr.run(t, "spotify", "whoami"); err != nil {
			t.Fatalf("whoami failed: %v", err)
		}
		if !strings.Contains(tr.output.String(), "Email: user@example.com") {
			t.Errorf("unexpected whoami output %q", tr.output.String())
		}
	})

	t.Run("Spotify URL", func(t *testing.T) {
		tr := setupRunner(t, nil)

		if err := tr.run(t, "spotify", "url"); err != nil {
			t.Fatalf("url failed: %v", err)
		}
		if !strings.Contains(tr.output.String(), "client_id="+tu.FakeClientID) {
			t.Errorf("unexpected authorization URL %q", tr.output.String())
		}
	})
}
