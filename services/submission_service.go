package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/anu100405/REUNITE/media"
	"github.com/anu100405/REUNITE/metrics"
	"github.com/anu100405/REUNITE/models"
	"github.com/anu100405/REUNITE/repository"
)

// lastSeenDate accepts full timestamps down to bare dates
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// UploadedFile is one raw file part of a submission, decoupled from
// multipart so the orchestrator can be driven from tests.
type UploadedFile struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// SubmissionInput carries the raw create-request fields. Age and
// LastSeenDate arrive as strings and are validated and parsed here.
type SubmissionInput struct {
	FullName         string
	Age              string
	Gender           string
	Height           string
	Weight           string
	HairColor        string
	EyeColor         string
	LastSeenLocation string
	LastSeenDate     string
	Description      string
	ReporterID       uint
	Relatives        []RelativeInput
	Files            []UploadedFile
}

func (in SubmissionInput) validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FullName, validation.Required.Error("full name is required")),
		validation.Field(&in.Age, validation.By(validInt)),
		validation.Field(&in.LastSeenDate, validation.By(validDate)),
	)
}

func validInt(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
		return errors.New("must be an integer")
	}
	return nil
}

func validDate(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := parseDate(s); err != nil {
		return errors.New("must be an ISO date or timestamp")
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseLastSeenDate parses an ISO date or timestamp string. An empty string
// yields nil, meaning the date is absent.
func ParseLastSeenDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SubmissionService processes a create request end to end: validation,
// duplicate check, image saves, and the single transaction that persists the
// report with its children. Image writes happen outside that transaction, so
// a failed commit triggers a compensating delete of exactly the files saved
// during this attempt.
type SubmissionService struct {
	Cases    repository.CaseRepository
	Detector *DuplicateDetector
	Store    media.UploadStore
}

func NewSubmissionService(cases repository.CaseRepository, detector *DuplicateDetector, store media.UploadStore) *SubmissionService {
	return &SubmissionService{Cases: cases, Detector: detector, Store: store}
}

func (s *SubmissionService) Submit(ctx context.Context, in SubmissionInput) (*models.MissingPerson, error) {
	if err := in.validate(); err != nil {
		return nil, &ValidationError{Err: err}
	}

	var age *int
	if strings.TrimSpace(in.Age) != "" {
		v, _ := strconv.Atoi(strings.TrimSpace(in.Age))
		age = &v
	}
	var lastSeen *time.Time
	if strings.TrimSpace(in.LastSeenDate) != "" {
		t, _ := parseDate(in.LastSeenDate)
		lastSeen = &t
	}

	match, err := s.Detector.Check(in.FullName, age, in.Relatives)
	if err != nil {
		return nil, err
	}
	if match != nil {
		metrics.DuplicatesDetected.Inc()
		return nil, &DuplicateError{ExistingID: match.ExistingID}
	}

	saved, photos, err := s.saveImages(ctx, in.Files)
	if err != nil {
		s.cleanup(saved)
		return nil, err
	}

	mp := &models.MissingPerson{
		FullName:         in.FullName,
		Age:              age,
		Gender:           in.Gender,
		Height:           in.Height,
		Weight:           in.Weight,
		HairColor:        in.HairColor,
		EyeColor:         in.EyeColor,
		LastSeenLocation: in.LastSeenLocation,
		LastSeenDate:     lastSeen,
		Description:      in.Description,
		Status:           models.StatusMissing,
		ReporterID:       in.ReporterID,
	}

	relatives := make([]models.Relative, 0, len(in.Relatives))
	for _, rel := range in.Relatives {
		if strings.TrimSpace(rel.Name) == "" {
			continue
		}
		relatives = append(relatives, models.Relative{
			Name:         rel.Name,
			Relationship: rel.Relationship,
			Phone:        rel.Phone,
			Email:        rel.Email,
			Address:      rel.Address,
		})
	}

	if err := s.Cases.CreateWithChildren(mp, photos, relatives); err != nil {
		s.cleanup(saved)
		return nil, fmt.Errorf("failed to persist submission: %w", err)
	}

	metrics.SubmissionsCreated.Inc()

	hydrated, err := s.Cases.GetByID(mp.ID)
	if err != nil {
		slog.Error("failed to reload created report", "id", mp.ID, "error", err)
		return mp, nil
	}
	return hydrated, nil
}

// saveImages stores each uploaded file, skipping rejected ones. It returns
// the filenames written in this attempt so a later failure can undo exactly
// these writes and nothing else.
func (s *SubmissionService) saveImages(ctx context.Context, files []UploadedFile) ([]string, []models.Photo, error) {
	var saved []string
	var photos []models.Photo
	for _, f := range files {
		if f.Filename == "" {
			continue
		}
		img, err := s.saveOne(ctx, f)
		if err != nil {
			if errors.Is(err, media.ErrRejected) {
				metrics.ImagesRejected.Inc()
				slog.Warn("skipping rejected upload", "filename", f.Filename, "error", err)
				continue
			}
			return saved, nil, fmt.Errorf("failed to store image %q: %w", f.Filename, err)
		}
		saved = append(saved, img.Filename)
		photos = append(photos, models.Photo{
			Filename: img.Filename,
			FilePath: img.FilePath,
			TakenAt:  img.TakenAt,
		})
	}
	return saved, photos, nil
}

func (s *SubmissionService) saveOne(ctx context.Context, f UploadedFile) (*media.SavedImage, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return s.Store.Save(ctx, f.Filename, r)
}

// cleanup is the compensating action for image writes that can no longer be
// part of a committed submission. Failures are surfaced to operators but
// never mask the error that triggered the cleanup.
func (s *SubmissionService) cleanup(filenames []string) {
	for _, name := range filenames {
		if !s.Store.Delete(name) {
			metrics.CleanupFailures.Inc()
			slog.Error("compensating image delete failed, file may be orphaned", "filename", name)
		}
	}
}
