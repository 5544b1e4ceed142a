package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hyperjump/tategaki/internal/config"
	"github.com/hyperjump/tategaki/internal/epub"
	"github.com/hyperjump/tategaki/internal/models"
	"github.com/hyperjump/tategaki/internal/storage"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.config.Server.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.logger.Debug("read request body failed", zap.Error(err))
		s.respondCode(w, status, models.ErrInvalidRequest, models.MsgInvalidRequest)
		return
	}
	if err := validateRequest(s.schema, body); err != nil {
		s.logger.Debug("request rejected", zap.Error(err))
		s.respondCode(w, http.StatusBadRequest, models.ErrInvalidRequest, models.MsgInvalidRequest)
		return
	}
	var req models.GenerateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.respondCode(w, http.StatusBadRequest, models.ErrInvalidRequest, models.MsgInvalidRequest)
		return
	}
	s.logger.Debug("generate request", zap.String("url", req.URL), zap.String("title", req.Title))

	out, err := s.generator.Generate(r.Context(), &req)
	if err != nil {
		code := models.CodeOf(err)
		status := http.StatusBadRequest
		if code == models.ErrEPUBBuildFailed {
			status = http.StatusInternalServerError
			s.logger.Error("generation failed", zap.String("error_code", string(code)), zap.Error(err))
		} else {
			s.logger.Info("generation rejected", zap.String("error_code", string(code)), zap.Error(err))
		}
		s.respondJSON(w, status, models.ResponseFor(err))
		return
	}

	s.logger.Info("generated",
		zap.String("title", out.Title),
		zap.String("identifier", out.Identifier),
		zap.Int("bytes", len(out.Data)),
	)
	w.Header().Set("Content-Type", epub.MediaType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.Header().Set("X-Content-Digest", "blake3="+out.Digest)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "history not enabled")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", defaultHistoryLimit)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	limit = min(limit, maxHistoryLimit)

	ctx := r.Context()
	var records []*models.GenerationRecord
	if source := r.URL.Query().Get("source"); source != "" {
		records, err = s.storage.ListBySource(ctx, source, limit)
	} else {
		records, err = s.storage.ListGenerations(ctx, offset, limit)
	}
	if err != nil {
		s.logger.Error("history: list failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*models.GenerationRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"generations": records,
		"offset":      offset,
		"limit":       limit,
	})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{}
	if s.storage != nil {
		ctx := r.Context()
		counts := map[string]int64{}
		for key, status := range map[string]string{
			"total":     "",
			"succeeded": models.StatusSucceeded,
			"failed":    models.StatusFailed,
		} {
			n, err := s.storage.CountGenerations(ctx, status)
			if err != nil {
				s.logger.Error("status: count generations failed", zap.Error(err))
				s.respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
			counts[key] = n
		}
		resp["generations"] = counts
	}

	cfg := s.config
	if books, err := storage.DiskUsage(".epub", cfg.Storage.OutputDir); err == nil {
		resp["books"] = books
	}
	if db, err := storage.DiskUsage("", cfg.Storage.DatabasePath); err == nil {
		resp["database_bytes"] = db.Bytes
	}

	configInfo := map[string]interface{}{
		"database_path": cfg.Storage.DatabasePath,
		"output_dir":    cfg.Storage.OutputDir,
		"language":      cfg.Book.Language,
		"rate_limit":    cfg.Server.RateLimit.RPS,
	}
	if cfg.Defaults.TcyNumbers != nil {
		configInfo["tcy_numbers"] = *cfg.Defaults.TcyNumbers
	}
	if cfg.Defaults.TcyLatin != nil {
		configInfo["tcy_latin"] = *cfg.Defaults.TcyLatin
	}
	if cfg.Defaults.TocPage != nil {
		configInfo["toc_page"] = *cfg.Defaults.TocPage
	}
	if s.watch != nil {
		configInfo["watch_directories"] = s.watch.Directories()
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatchDirectories writes the current watch list back to the config file.
func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) respondCode(w http.ResponseWriter, status int, code models.ErrorCode, message string) {
	s.respondJSON(w, status, models.ErrorResponse{ErrorCode: code, Message: message})
}
