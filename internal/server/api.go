package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/bryan-buckman/pantry/internal/database"
	"github.com/bryan-buckman/pantry/internal/model"
	"github.com/bryan-buckman/pantry/internal/refresh"
	"github.com/bryan-buckman/pantry/internal/transfer"
)

// maxUpload caps CSV imports.
const maxUpload = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Snapshot())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), refresh.FetchTimeout)
	defer cancel()

	err := s.svc.Refresh(ctx)
	snap := s.svc.Snapshot()
	resp := map[string]interface{}{
		"status":     "ok",
		"items":      len(snap.Items),
		"unread":     snap.UnreadCount,
		"fetched_at": snap.FetchedAt,
	}
	if err != nil {
		resp["status"] = "partial"
		resp["errors"] = snap.Errors
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	interval := database.DefaultRefreshIntervalSeconds
	filter := s.svc.State().Filter()
	if s.store != nil {
		interval, _ = s.store.GetRefreshInterval()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"refresh_interval_seconds": interval,
		"inventory_filter":         filter,
	})
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshInterval int `json:"refresh_interval_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if s.store == nil {
		http.Error(w, "No settings store configured", http.StatusServiceUnavailable)
		return
	}
	// Enforce minimum.
	if req.RefreshInterval < database.MinRefreshIntervalSeconds {
		req.RefreshInterval = database.MinRefreshIntervalSeconds
	}
	if err := s.store.SetSetting(model.SettingRefreshInterval, strconv.Itoa(req.RefreshInterval)); err != nil {
		s.logger.Error("save settings", zap.Error(err))
		http.Error(w, "Failed to save", http.StatusInternalServerError)
		return
	}
	// The poller reads the interval per cycle; wake it so the new one applies now.
	if s.poller != nil {
		s.poller.Trigger()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "refresh_interval_seconds": req.RefreshInterval})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.AllItems(r.Context())
	if err != nil {
		s.logger.Warn("export items", zap.Error(err))
		http.Error(w, "Failed to get items", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=pantry-items.csv")
	if err := transfer.WriteItemsCSV(w, items); err != nil {
		s.logger.Error("write csv", zap.Error(err))
	}
}

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, _, err := r.FormFile("file")
	if err != nil {
		redirect(w, r, "/inventory", "error", "No file provided.")
		return
	}
	defer file.Close()

	items, parseErr := transfer.ReadItemsCSV(file)
	var rowErr *transfer.RowError
	if parseErr != nil && !errors.As(parseErr, &rowErr) {
		redirect(w, r, "/inventory", "error", "Failed to read CSV: "+parseErr.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()
	rep, err := s.svc.ImportItems(ctx, items)
	if err != nil {
		redirect(w, r, "/inventory", "error", "Import failed: "+userMessage(err))
		return
	}
	for i, ierr := range rep.Failed {
		s.logger.Info("import row rejected", zap.String("name", items[i].Name), zap.Error(ierr))
	}
	msg := fmt.Sprintf("Imported %d of %d items.", len(rep.Added), len(items))
	kind := "success"
	if parseErr != nil || len(rep.Failed) > 0 {
		kind = "error"
		if parseErr != nil {
			msg += " Rejected rows: " + parseErr.Error()
		}
	}
	redirect(w, r, "/inventory", kind, msg)
}

func (s *Server) handleCalendarICS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=pantry.ics")
	if err := transfer.WriteCalendar(w, "Pantry expirations", s.svc.Snapshot().Events, s.now()); err != nil {
		s.logger.Error("write calendar", zap.Error(err))
	}
}
