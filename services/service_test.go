package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/anu100405/REUNITE/database"
	"github.com/anu100405/REUNITE/media"
	"github.com/anu100405/REUNITE/models"
	"github.com/anu100405/REUNITE/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.InitGormDB(dbPath)
	if err != nil {
		t.Fatalf("InitGormDB: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		t.Fatalf("AutoMigrateModels: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedReporter(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{Username: "reporter", Email: "reporter@example.com"}
	if err := user.SetPassword("secret123"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed reporter: %v", err)
	}
	return user
}

func intPtr(v int) *int { return &v }

// fakeStore implements media.UploadStore in memory. It honors the extension
// allow-list so skip-on-reject behavior can be exercised without real image
// decoding.
type fakeStore struct {
	saved   map[string]bool
	counter int
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: map[string]bool{}}
}

func (f *fakeStore) Save(ctx context.Context, originalFilename string, data io.Reader) (*media.SavedImage, error) {
	if !media.IsAllowedImage(originalFilename) {
		return nil, fmt.Errorf("%w: disallowed extension on %q", media.ErrRejected, originalFilename)
	}
	if _, err := io.ReadAll(data); err != nil {
		return nil, err
	}
	f.counter++
	name := fmt.Sprintf("stored-%d.jpg", f.counter)
	f.saved[name] = true
	return &media.SavedImage{Filename: name, FilePath: "/fake/" + name}, nil
}

func (f *fakeStore) Delete(filename string) bool {
	f.deleted = append(f.deleted, filename)
	if f.saved[filename] {
		delete(f.saved, filename)
		return true
	}
	return false
}

func (f *fakeStore) FullPath(filename string) (string, error) {
	return "/fake/" + filename, nil
}

func (f *fakeStore) List() ([]string, error) {
	names := make([]string, 0, len(f.saved))
	for name := range f.saved {
		names = append(names, name)
	}
	return names, nil
}

func fileOf(name, content string) UploadedFile {
	return UploadedFile{
		Filename: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

// failingCaseRepo delegates to a real repository but fails the commit, for
// exercising the compensating-delete path.
type failingCaseRepo struct {
	repository.CaseRepository
}

func (f *failingCaseRepo) CreateWithChildren(mp *models.MissingPerson, photos []models.Photo, relatives []models.Relative) error {
	return fmt.Errorf("injected commit failure")
}
