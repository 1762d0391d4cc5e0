package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sub := s.hub.Subscribe(w)
	defer s.hub.Unsubscribe(sub)

	if err := s.hub.Comment(sub, "connected"); err != nil {
		return
	}
	logger.Debug("Event stream opened (%d open)", s.hub.Len())

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done():
			return
		case <-ticker.C:
			if err := s.hub.Comment(sub, "keep-alive"); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleGetPrefs(w http.ResponseWriter, _ *http.Request) {
	prefs, err := s.prefs.Load()
	if err != nil {
		writeError(w, err)
		return
	}
	if prefs == nil {
		prefs = map[string]any{}
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleSavePrefs(w http.ResponseWriter, r *http.Request) {
	var prefs map[string]any
	if err := decodeJSON(r, &prefs); err != nil {
		writeError(w, err)
		return
	}
	if err := s.prefs.Save(prefs); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	profile := s.orch.Profile()
	if profile.Name == "" {
		writeError(w, domain.ErrAuthRequired)
		return
	}
	if _, err := s.tokens.Reauthenticate(r.Context(), profile); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": fmt.Sprintf("Authenticated as %s (NIP %s, %s)", profile.Name, profile.NIP, profile.Environment),
	})
}

func (s *Server) handleTokenStatus(w http.ResponseWriter, _ *http.Request) {
	st, err := s.tokens.Status(s.orch.Identity())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// profileView is a profile without its client credentials.
type profileView struct {
	Name        string `json:"name"`
	NIP         string `json:"nip"`
	Environment string `json:"environment"`
}

func (s *Server) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	profiles, err := s.settings.Profiles()
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]profileView, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, profileView{Name: p.Name, NIP: p.NIP, Environment: p.Environment})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active":   s.orch.Profile().Name,
		"profiles": views,
	})
}

func (s *Server) handleSwitchProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, domain.NewValidationError("name", "is required"))
		return
	}

	if err := s.orch.SwitchIdentity(r.Context(), req.Name); err != nil {
		writeError(w, err)
		return
	}
	if err := s.settings.SetActiveProfile(req.Name); err != nil {
		logger.Warn("Switched to %s but could not remember it: %v", req.Name, err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "active": req.Name})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req domain.SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	items, err := s.orch.Search(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (s *Server) handleResults(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.orch.Results()))
}

// nonNil makes an empty result set encode as [] rather than null.
func nonNil(items []domain.InvoiceSummary) []domain.InvoiceSummary {
	if items == nil {
		return []domain.InvoiceSummary{}
	}
	return items
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(r.URL.Query().Get("idx"))
	if err != nil {
		writeError(w, domain.NewValidationError("idx", "must be an integer"))
		return
	}
	details, err := s.orch.Details(r.Context(), idx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req domain.DownloadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.orch.Download(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"job":   res.JobID,
		"count": res.Count,
		"dir":   res.Dir,
	})
}

func (s *Server) handleCheckExisting(w http.ResponseWriter, r *http.Request) {
	var check domain.ExistingCheck
	if err := decodeJSON(r, &check); err != nil {
		writeError(w, err)
		return
	}
	existing, err := s.orch.CheckExisting(check)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) handleReadConfig(w http.ResponseWriter, _ *http.Request) {
	doc, err := s.editor.Read()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleWriteConfig(w http.ResponseWriter, r *http.Request) {
	var doc domain.ConfigDocument
	if err := decodeJSON(r, &doc); err != nil {
		writeError(w, err)
		return
	}
	if err := s.editor.Write(r.Context(), doc); err != nil {
		writeJSON(w, statusFor(err), map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleQuit(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	_ = http.NewResponseController(w).Flush()
	s.requestQuit()
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(indexHTML)
}

// handleNotFound serves the page for unknown GET paths so browser reloads on
// client-side routes work; other methods get a JSON 404.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && !strings.Contains(r.Header.Get("Accept"), "application/json") {
		s.handleIndex(w, r)
		return
	}
	writeError(w, fmt.Errorf("%w: %s %s", domain.ErrNotFound, r.Method, r.URL.Path))
}
