package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"revoice/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/speakers" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if result := CheckEndpoint(context.Background(), "tts", srv.URL+"/", "/speakers"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckEndpoint(context.Background(), "tts", srv.URL, "/other"); result.Passed {
		t.Fatal("expected failure for 404")
	}
	if result := CheckEndpoint(context.Background(), "tts", "", "/speakers"); result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestCheckProvidersOpenAIKey(t *testing.T) {
	if result := CheckRecognition(context.Background(), config.Recognition{Provider: "openai"}); result.Passed {
		t.Fatal("expected failure without api key")
	}
	if result := CheckSynthesis(context.Background(), config.Synthesis{Provider: "openai", APIKey: "sk"}); !result.Passed {
		t.Fatalf("expected pass with api key, got %s", result.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_Directories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.VoiceDir = t.TempDir()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "missing")
	cfg.Recognition.URL = srv.URL
	cfg.Synthesis.URL = srv.URL

	results := RunAll(context.Background(), &cfg)
	byName := make(map[string]Result, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}
	if !byName["Work directory"].Passed || !byName["Voice directory"].Passed {
		t.Fatalf("expected directory checks to pass: %+v", results)
	}
	if byName["Log directory"].Passed {
		t.Fatal("expected missing log directory to fail")
	}
	if !byName["Recognition provider"].Passed || !byName["Synthesis provider"].Passed {
		t.Fatalf("expected provider checks to pass: %+v", results)
	}
	if _, ok := byName["FFmpeg"]; !ok {
		t.Fatal("expected FFmpeg entry")
	}

	failed := Failed(results)
	if len(failed) == 0 {
		t.Fatal("expected at least one failure")
	}
}
