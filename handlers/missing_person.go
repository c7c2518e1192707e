package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/anu100405/REUNITE/media"
	"github.com/anu100405/REUNITE/metrics"
	"github.com/anu100405/REUNITE/models"
	"github.com/anu100405/REUNITE/repository"
	"github.com/anu100405/REUNITE/services"
)

const maxMultipartMemory = 32 << 20 // 32 MiB

type MissingPersonHandler struct {
	Submissions       *services.SubmissionService
	Query             *services.CaseQueryService
	Cases             repository.CaseRepository
	Store             media.UploadStore
	DefaultReporterID uint
}

/// Create handles the multipart submission of a new report: form fields, a
// JSON-encoded relatives array, and zero or more photo file parts.
func (h *MissingPersonHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid multipart form: " + err.Error()})
		return
	}

	// an authenticated reporter owns the case; anonymous submissions are
	// assigned to the configured default reporter
	reporterID := h.DefaultReporterID
	if user, ok := UserFromContext(r.Context()); ok {
		reporterID = user.ID
	}

	input := services.SubmissionInput{
		FullName:         r.FormValue("full_name"),
		Age:              r.FormValue("age"),
		Gender:           r.FormValue("gender"),
		Height:           r.FormValue("height"),
		Weight:           r.FormValue("weight"),
		HairColor:        r.FormValue("hair_color"),
		EyeColor:         r.FormValue("eye_color"),
		LastSeenLocation: r.FormValue("last_seen_location"),
		LastSeenDate:     r.FormValue("last_seen_date"),
		Description:      r.FormValue("description"),
		ReporterID:       reporterID,
		Relatives:        parseRelatives(r.FormValue("relatives")),
	}

	for _, fh := range r.MultipartForm.File["photos"] {
		fh := fh
		input.Files = append(input.Files, services.UploadedFile{
			Filename: fh.Filename,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	mp, err := h.Submissions.Submit(r.Context(), input)
	if err != nil {
		var valErr *services.ValidationError
		var dupErr *services.DuplicateError
		switch {
		case errors.As(err, &valErr):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": valErr.Error()})
		case errors.As(err, &dupErr):
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"message":     "Person already added. Detected duplicate entry.",
				"existing_id": dupErr.ExistingID,
			})
		default:
			slog.Error("submission failed", "full_name", input.FullName, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create missing person"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Missing person added successfully",
		"data":    serializeCase(mp),
	})
}

// parseRelatives decodes the JSON relatives field leniently: a missing or
// malformed array means "no relative data", for both duplicate detection and
// persistence.
func parseRelatives(raw string) []services.RelativeInput {
	if raw == "" {
		return nil
	}
	var relatives []services.RelativeInput
	if err := json.Unmarshal([]byte(raw), &relatives); err != nil {
		slog.Warn("ignoring malformed relatives JSON", "error", err)
		return nil
	}
	return relatives
}

func (h *MissingPersonHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	result, err := h.Query.List(services.CaseFilter{
		Status:  q.Get("status"),
		Search:  q.Get("search"),
		Gender:  q.Get("gender"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		slog.Error("failed to list missing persons", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve missing persons"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":         serializeCases(result.Items),
		"total":        result.Total,
		"pages":        result.Pages,
		"current_page": result.CurrentPage,
	})
}

func (h *MissingPersonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	mp, err := h.Cases.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Missing person not found"})
		} else {
			slog.Error("failed to get missing person", "id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve missing person"})
		}
		return
	}

	writeJSON(w, http.StatusOK, serializeCase(mp))
}

type updatePayload struct {
	FullName         *string `json:"full_name"`
	Age              *int    `json:"age"`
	Gender           *string `json:"gender"`
	Height           *string `json:"height"`
	Weight           *string `json:"weight"`
	HairColor        *string `json:"hair_color"`
	EyeColor         *string `json:"eye_color"`
	LastSeenLocation *string `json:"last_seen_location"`
	LastSeenDate     *string `json:"last_seen_date"`
	Description      *string `json:"description"`
	Status           *string `json:"status"`
}

// Update mutates report fields. Only the owning reporter may update; status
// values are reporter-curated and not constrained to a transition order.
func (h *MissingPersonHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	mp, found := h.loadOwned(w, r, id)
	if !found {
		return
	}

	var req updatePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}

	if req.FullName != nil {
		if *req.FullName == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Full name is required"})
			return
		}
		mp.FullName = *req.FullName
	}
	if req.Age != nil {
		mp.Age = req.Age
	}
	if req.Gender != nil {
		mp.Gender = *req.Gender
	}
	if req.Height != nil {
		mp.Height = *req.Height
	}
	if req.Weight != nil {
		mp.Weight = *req.Weight
	}
	if req.HairColor != nil {
		mp.HairColor = *req.HairColor
	}
	if req.EyeColor != nil {
		mp.EyeColor = *req.EyeColor
	}
	if req.LastSeenLocation != nil {
		mp.LastSeenLocation = *req.LastSeenLocation
	}
	if req.LastSeenDate != nil {
		t, err := services.ParseLastSeenDate(*req.LastSeenDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "last_seen_date must be an ISO date or timestamp"})
			return
		}
		mp.LastSeenDate = t
	}
	if req.Description != nil {
		mp.Description = *req.Description
	}
	if req.Status != nil {
		mp.Status = *req.Status
	}

	if err := h.Cases.Update(mp); err != nil {
		slog.Error("failed to update missing person", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to update missing person"})
		return
	}

	updated, err := h.Cases.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Missing person updated successfully"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Missing person updated successfully",
		"data":    serializeCase(updated),
	})
}

// Delete removes a report, its child rows, and its image files. The rows go
// first, in one transaction; file removal follows and is required, so
// failures are logged and counted rather than ignored.
func (h *MissingPersonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	mp, found := h.loadOwned(w, r, id)
	if !found {
		return
	}

	if err := h.Cases.DeleteCascade(id); err != nil {
		slog.Error("failed to delete missing person", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete missing person"})
		return
	}

	for _, photo := range mp.Photos {
		if !h.Store.Delete(photo.Filename) {
			metrics.CleanupFailures.Inc()
			slog.Error("failed to remove image file for deleted report", "id", id, "filename", photo.Filename)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Missing person deleted successfully"})
}

// loadOwned fetches the report and enforces reporter ownership, writing the
// 404/403 responses itself.
func (h *MissingPersonHandler) loadOwned(w http.ResponseWriter, r *http.Request, id uint) (*models.MissingPerson, bool) {
	record, err := h.Cases.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Missing person not found"})
		} else {
			slog.Error("failed to load missing person", "id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve missing person"})
		}
		return nil, false
	}

	user, ok := UserFromContext(r.Context())
	if !ok || record.ReporterID != user.ID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Unauthorized"})
		return nil, false
	}
	return record, true
}

func parseID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid missing person ID format"})
		return 0, false
	}
	return uint(id), true
}
