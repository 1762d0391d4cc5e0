package web

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/services"
)

// dirEntry is one subdirectory in a browse listing.
type dirEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type browseResponse struct {
	Current string     `json:"current"`
	Parent  string     `json:"parent,omitempty"`
	Dirs    []dirEntry `json:"dirs"`
}

// handleBrowse lists the subdirectories of ?path= (default: home directory).
// Hidden entries are excluded.
func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	dir, err := resolveDir(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, domain.NewValidationError("path", dir+" does not exist"))
			return
		}
		writeError(w, err)
		return
	}

	resp := browseResponse{Current: dir, Dirs: []dirEntry{}}
	if parent := filepath.Dir(dir); parent != dir {
		resp.Parent = parent
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || !isDir(dir, e) {
			continue
		}
		resp.Dirs = append(resp.Dirs, dirEntry{Name: e.Name(), Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(resp.Dirs, func(i, j int) bool {
		return strings.ToLower(resp.Dirs[i].Name) < strings.ToLower(resp.Dirs[j].Name)
	})

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMkdir(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, domain.NewValidationError("path", "is required"))
		return
	}

	dir, err := resolveDir(req.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "path": dir})
}

// resolveDir expands ~ and makes path absolute. Empty means the home directory.
func resolveDir(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "~"
	}
	expanded, err := services.ExpandHome(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", domain.NewValidationError("path", err.Error())
	}
	return abs, nil
}

// isDir follows symlinks so linked directories are listed too.
func isDir(parent string, e os.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(parent, e.Name()))
	return err == nil && info.IsDir()
}
