package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"revoice/internal/api"
	"revoice/internal/catalog"
	"revoice/internal/config"
	"revoice/internal/fileutil"
	"revoice/internal/logging"
	"revoice/internal/pcm"
	"revoice/internal/preflight"
	"revoice/internal/services"
	"revoice/internal/task"
	"revoice/internal/workflow"
)

const (
	routePrefix         = "/api/voice-replace"
	defaultHistoryLimit = 50
	requestIDHeader     = "X-Request-ID"
	// voiceFormMemory is the multipart size held in memory before parts
	// spill to temporary files.
	voiceFormMemory = 8 << 20
)

type apiServer struct {
	bind     string
	logger   *slog.Logger
	workflow *workflow.Manager
	store    *catalog.Store
	checks   func(context.Context) []preflight.Result

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, wf *workflow.Manager, store *catalog.Store, logger *slog.Logger) *apiServer {
	if cfg == nil || wf == nil {
		return nil
	}
	srv := &apiServer{
		bind:     strings.TrimSpace(cfg.Paths.APIBind),
		logger:   logger,
		workflow: wf,
		store:    store,
		checks: func(ctx context.Context) []preflight.Result {
			return preflight.RunAll(ctx, cfg)
		},
	}

	authed := http.NewServeMux()
	authed.HandleFunc("POST "+routePrefix+"/upload", srv.handleUpload)
	authed.HandleFunc("GET "+routePrefix+"/status/{id}", srv.handleStatus)
	authed.HandleFunc("POST "+routePrefix+"/analyze/{id}", srv.handleAnalyze)
	authed.HandleFunc("POST "+routePrefix+"/synthesize/{id}", srv.handleSynthesize)
	authed.HandleFunc("GET "+routePrefix+"/download/{id}", srv.handleDownload)
	authed.HandleFunc("GET "+routePrefix+"/download-subtitles/{id}", srv.handleDownloadSubtitles)
	authed.HandleFunc("POST "+routePrefix+"/cleanup/{id}", srv.handleCleanup)
	authed.HandleFunc("GET "+routePrefix+"/tasks", srv.handleTasks)
	authed.HandleFunc("GET /api/voices", srv.handleVoices)
	authed.HandleFunc("POST /api/voices/upload", srv.handleVoiceUpload)
	authed.HandleFunc("DELETE /api/voices/{id}", srv.handleVoiceDelete)
	authed.HandleFunc("POST /api/synthesize", srv.handleSpeech)
	authed.HandleFunc("GET /api/history", srv.handleHistory)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", srv.handleHealth)
	mux.Handle("/api/", authMiddleware(cfg.Auth.Users, authed))

	// Uploads and downloads carry whole videos, so body timeouts are generous.
	srv.server = &http.Server{
		Handler:           srv.withRequestID(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// addr returns the bound listener address, or "" before start.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "expected multipart form upload")
		return
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, "no file uploaded")
			return
		}
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "malformed multipart body")
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}
		created, err := s.workflow.Upload(r.Context(), principalFrom(r.Context()), part.FileName(), part)
		_ = part.Close()
		if err != nil {
			s.fail(w, r, "upload", err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.FromTask(created))
		return
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	t, err := s.workflow.Status(r.Context(), principalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "status", err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromTask(t))
}

func (s *apiServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	t, err := s.workflow.Analyze(r.Context(), principalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "analyze", err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromTask(t))
}

func (s *apiServer) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	isPreset, err := formBool(r, "is_preset", false)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	addSubtitles, err := formBool(r, "add_subtitles", true)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req := workflow.SynthesizeRequest{
		VoiceID:      r.FormValue("voice_id"),
		IsPreset:     isPreset,
		AddSubtitles: addSubtitles,
	}
	t, err := s.workflow.Synthesize(r.Context(), principalFrom(r.Context()), r.PathValue("id"), req)
	if err != nil {
		s.fail(w, r, "synthesize", err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromTask(t))
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.workflow.Download(r.Context(), principalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "download", err)
		return
	}
	s.serveArtifact(w, r, artifact, "video/mp4")
}

func (s *apiServer) handleDownloadSubtitles(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.workflow.DownloadSubtitles(r.Context(), principalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "download", err)
		return
	}
	s.serveArtifact(w, r, artifact, "application/x-subrip")
}

func (s *apiServer) handleCleanup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.workflow.Cleanup(r.Context(), principalFrom(r.Context()), id); err != nil {
		s.fail(w, r, "cleanup", err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MessageResponse{Message: "task files removed", TaskID: id})
}

func (s *apiServer) handleTasks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.FromTasks(s.workflow.List(principalFrom(r.Context()))))
}

func (s *apiServer) handleVoices(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())
	presets, err := s.workflow.PresetVoices(r.Context())
	if err != nil {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.log()), "preset voice listing failed", "preset_list_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the synthesis service"),
			logging.String(logging.FieldImpact, "only catalog voices are listed"),
		)
	}
	var stored []catalog.Voice
	if s.store != nil {
		stored, err = s.store.ListVoices(r.Context(), principal.UserID, principal.Admin)
		if err != nil {
			s.fail(w, r, "voices", err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, api.FromVoices(presets, stored))
}

func (s *apiServer) handleVoiceUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(voiceFormMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "expected multipart form upload")
		return
	}
	defer r.MultipartForm.RemoveAll()
	file, header, err := r.FormFile("audio")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "no audio uploaded")
		return
	}
	defer file.Close()
	voice, err := s.workflow.AddVoice(r.Context(), principalFrom(r.Context()), workflow.VoiceUpload{
		Filename:   header.Filename,
		PromptText: r.FormValue("prompt_text"),
		Body:       file,
	})
	if err != nil {
		s.fail(w, r, "voice upload", err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MessageResponse{Message: "Voice uploaded successfully", VoiceID: voice.ID})
}

func (s *apiServer) handleVoiceDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid voice id")
		return
	}
	if err := s.workflow.RemoveVoice(r.Context(), principalFrom(r.Context()), id); err != nil {
		s.fail(w, r, "voice delete", err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MessageResponse{Message: "voice removed", VoiceID: id})
}

// handleSpeech renders form text in one voice and returns it as a WAV
// attachment. target_text is accepted as an alias for text.
func (s *apiServer) handleSpeech(w http.ResponseWriter, r *http.Request) {
	isPreset, err := formBool(r, "is_preset", false)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	text := r.FormValue("text")
	if strings.TrimSpace(text) == "" {
		text = r.FormValue("target_text")
	}
	voiceID := strings.TrimSpace(r.FormValue("voice_id"))
	audio, err := s.workflow.SynthesizeSpeech(r.Context(), principalFrom(r.Context()), workflow.SpeechRequest{
		VoiceID:  voiceID,
		IsPreset: isPreset,
		Text:     text,
	})
	if err != nil {
		s.fail(w, r, "synthesize", err)
		return
	}

	f, err := os.CreateTemp("", "revoice-speech-*.wav")
	if err != nil {
		s.fail(w, r, "synthesize", err)
		return
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()
	if err := pcm.EncodeWAV(f, audio); err != nil {
		s.fail(w, r, "synthesize", err)
		return
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		s.fail(w, r, "synthesize", err)
		return
	}
	name := "synthesized_" + fileutil.SanitizeFileName(voiceID) + ".wav"
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, time.Now(), f)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusOK, api.FromSynthesisLogs(nil))
		return
	}
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	principal := principalFrom(r.Context())
	var userID *int64
	if !principal.Admin {
		userID = &principal.UserID
	}
	logs, err := s.store.ListSynthesisLogs(r.Context(), userID, limit)
	if err != nil {
		s.fail(w, r, "history", err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSynthesisLogs(logs))
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var results []preflight.Result
	if s.checks != nil {
		results = s.checks(r.Context())
	}
	health := api.FromPreflight(results, activeTasks(s.workflow.Tasks().List()))
	code := http.StatusOK
	if health.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, health)
}

func (s *apiServer) serveArtifact(w http.ResponseWriter, r *http.Request, artifact workflow.Artifact, contentType string) {
	f, err := os.Open(artifact.Path)
	if err != nil {
		s.fail(w, r, "download", services.Wrap(services.ErrNotFound, "download", "open artifact", "file missing", err))
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		s.fail(w, r, "download", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Name}))
	http.ServeContent(w, r, artifact.Name, info.ModTime(), f)
}

// fail writes err with its mapped status. Server-side failures are logged.
func (s *apiServer) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	code := statusForError(err)
	if code >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.log()), "api request failed", "api_request_failed",
			logging.String("operation", op),
			logging.String("path", r.URL.Path),
			logging.Int("status", code),
			logging.Error(err),
		)
	}
	s.writeError(w, code, err.Error())
}

func formBool(r *http.Request, key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(r.FormValue(key))
	if raw == "" {
		return fallback, nil
	}
	switch strings.ToLower(raw) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q", key, raw)
	}
	return v, nil
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}

// activeTasks counts tasks with a running stage.
func activeTasks(tasks []task.Task) int {
	n := 0
	for _, t := range tasks {
		if t.Status.Running() {
			n++
		}
	}
	return n
}
