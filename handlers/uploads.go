package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/facette/natsort"
	"github.com/go-chi/chi/v5"

	"github.com/anu100405/REUNITE/media"
)

type UploadsHandler struct {
	Store media.UploadStore
}

// Serve returns the stored image bytes for a report photo. Filenames are
// generated identifiers; anything that resolves outside the uploads
// directory is refused.
func (h *UploadsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	fullPath, err := h.Store.FullPath(filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid filename"})
		return
	}

	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Image not found"})
		return
	} else if err != nil {
		slog.Error("failed to stat image file", "filename", filename, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to serve image"})
		return
	}

	cacheDuration := 24 * time.Hour
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cacheDuration.Seconds())))
	http.ServeFile(w, r, fullPath)
}

// List returns every stored image filename in natural order. Operator
// surface: comparing it against photo rows reveals orphaned files left by
// failed compensating deletes.
func (h *UploadsHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.Store.List()
	if err != nil {
		slog.Error("failed to list uploads", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to list uploads"})
		return
	}
	natsort.Sort(names)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"files": names,
		"count": len(names),
	})
}
