package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hyperjump/emotags/internal/applier"
	"github.com/hyperjump/emotags/internal/config"
	"github.com/hyperjump/emotags/internal/models"
	"github.com/hyperjump/emotags/internal/storage"
	"go.uber.org/zap"
)

const (
	defaultRenamesLimit = 20
	maxRenamesLimit     = 200
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docs, err := s.notes.List(ctx)
	if err != nil {
		s.logger.Error("status: list notes failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := &models.Status{
		Notes:       len(docs),
		Directories: s.directories(),
	}
	if s.journal != nil {
		if status.Renames, err = s.journal.CountRenames(ctx, ""); err != nil {
			s.logger.Error("status: count renames failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if status.FailedRenames, err = s.journal.CountRenames(ctx, models.RenameFailed); err != nil {
			s.logger.Error("status: count failed renames failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if s.config != nil {
		status.Config = &models.StatusConfig{
			DatabasePath: s.config.Storage.DatabasePath,
			Extensions:   s.config.Vault.Extensions,
			Recursive:    s.config.Vault.RecursiveOrDefault(),
			DebounceMS:   s.config.Vault.DebounceMS,
		}
		if diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath); err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) directories() []string {
	if s.watch != nil {
		return s.watch.Directories()
	}
	if s.config != nil {
		return append([]string(nil), s.config.Vault.Directories...)
	}
	return []string{}
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req models.DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("decide request", zap.Strings("tags", req.Tags), zap.String("title", req.Title))
	s.respondJSON(w, http.StatusOK, applier.Describe(req.Tags, req.Title))
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	s.runBulk(w, r, applier.SyncHeaders, models.OperationApply)
}

func (s *Server) handleStrip(w http.ResponseWriter, r *http.Request) {
	s.runBulk(w, r, applier.StripHeaders, models.OperationStrip)
}

func (s *Server) runBulk(w http.ResponseWriter, r *http.Request, decide applier.DecideFunc, op models.Operation) {
	dryRun := false
	if v := r.URL.Query().Get("dry_run"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "dry_run must be a boolean")
			return
		}
		dryRun = b
	}
	ctx := r.Context()
	docs, err := s.notes.List(ctx)
	if err != nil {
		s.logger.Error("list notes failed", zap.String("operation", string(op)), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("bulk request", zap.String("operation", string(op)), zap.Bool("dry_run", dryRun), zap.Int("notes", len(docs)))
	report := s.applier.ApplyAll(ctx, docs, decide, applier.Run{Operation: op, DryRun: dryRun})
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleRenames(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.respondError(w, http.StatusNotImplemented, "journal not enabled")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, err := queryInt(r, "limit", defaultRenamesLimit)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > maxRenamesLimit {
		limit = maxRenamesLimit
	}
	ctx := r.Context()
	recs, err := s.journal.ListRenames(ctx, offset, limit)
	if err != nil {
		s.logger.Error("list renames failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.journal.CountRenames(ctx, "")
	if err != nil {
		s.logger.Error("count renames failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []*models.RenameRecord{}
	}
	s.respondJSON(w, http.StatusOK, &models.RenamesPage{Renames: recs, Total: total, Offset: offset, Limit: limit})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
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
	s.directoriesChanged()
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
	s.directoriesChanged()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// directoriesChanged points the vault at the watched roots and persists them.
func (s *Server) directoriesChanged() {
	dirs := s.watch.Directories()
	s.notes.SetRoots(dirs)
	if s.config == nil {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Vault.Directories = dirs
	if s.configPath == "" {
		return
	}
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist vault directories", zap.Error(err))
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
