package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/anu100405/REUNITE/database"
	"github.com/anu100405/REUNITE/media"
	"github.com/anu100405/REUNITE/models"
	"github.com/anu100405/REUNITE/repository"
	"github.com/anu100405/REUNITE/services"
)

const defaultReporterID = 1

type testEnv struct {
	router     http.Handler
	db         *gorm.DB
	store      *media.LocalUploadStore
	uploadsDir string
}

// newTestEnv wires the real router against a temp SQLite database and a
// temp uploads directory, with reporter ID 1 pre-created for anonymous
// submissions.
func newTestEnv(t *testing.T) *testEnv {
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

	system := models.User{ID: defaultReporterID, Username: "system", Email: "system@reunite.local"}
	if err := system.SetPassword("not-a-login"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if err := db.Create(&system).Error; err != nil {
		t.Fatalf("create system reporter: %v", err)
	}

	uploadsDir := t.TempDir()
	store, err := media.NewLocalUploadStore(uploadsDir, 1200, 85, 2)
	if err != nil {
		t.Fatalf("NewLocalUploadStore: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB: %v", err)
	}

	caseRepo := repository.NewGormCaseRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	detector := services.NewDuplicateDetector(caseRepo)
	submissions := services.NewSubmissionService(caseRepo, detector, store)
	query := services.NewCaseQueryService(sqlDB, caseRepo, 20)

	secret := "test-secret"
	router := NewRouter(RouterDeps{
		Auth: NewAuthHandler(userRepo, secret, time.Hour),
		MissingPersons: &MissingPersonHandler{
			Submissions:       submissions,
			Query:             query,
			Cases:             caseRepo,
			Store:             store,
			DefaultReporterID: defaultReporterID,
		},
		Uploads:     &UploadsHandler{Store: store},
		Users:       userRepo,
		JWTSecret:   []byte(secret),
		CORSOrigins: []string{"*"},
	})

	return &testEnv{router: router, db: db, store: store, uploadsDir: uploadsDir}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// registerAndLogin creates a reporter through the API and returns a bearer token.
func (e *testEnv) registerAndLogin(t *testing.T, username string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	})
	w := e.do(t, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", username, w.Code, w.Body.String())
	}

	body, _ = json.Marshal(map[string]string{"username": username, "password": "secret123"})
	w = e.do(t, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", username, w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

type filePart struct {
	name string
	data []byte
}

// multipartSubmission builds a create request from form fields and photo parts.
func multipartSubmission(t *testing.T, fields map[string]string, photos []filePart) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("WriteField(%s): %v", key, err)
		}
	}
	for _, p := range photos {
		fw, err := mw.CreateFormFile("photos", p.name)
		if err != nil {
			t.Fatalf("CreateFormFile(%s): %v", p.name, err)
		}
		if _, err := fw.Write(p.data); err != nil {
			t.Fatalf("write photo %s: %v", p.name, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/missing-persons", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 10, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestCreateThenDuplicateConflict(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, multipartSubmission(t, map[string]string{
		"full_name": "John Smith",
		"age":       "30",
		"relatives": `[{"name":"Mary Smith","relationship":"Mother"}]`,
	}, nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("first POST: status %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	if data["full_name"] != "John Smith" {
		t.Errorf("data.full_name = %v, want John Smith", data["full_name"])
	}
	firstID := data["id"].(float64)

	w = env.do(t, multipartSubmission(t, map[string]string{
		"full_name": "John Smith",
		"age":       "30",
		"relatives": `[{"name":"mary smith","relationship":"mother"}]`,
	}, nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate POST: status %d: %s", w.Code, w.Body.String())
	}
	conflict := decodeBody(t, w)
	if conflict["existing_id"].(float64) != firstID {
		t.Errorf("existing_id = %v, want %v", conflict["existing_id"], firstID)
	}

	var count int64
	env.db.Model(&models.MissingPerson{}).Count(&count)
	if count != 1 {
		t.Errorf("case count = %d, want 1", count)
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, multipartSubmission(t, map[string]string{"age": "30"}, nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if _, ok := decodeBody(t, w)["error"]; !ok {
		t.Error("400 response missing error field")
	}

	w = env.do(t, multipartSubmission(t, map[string]string{
		"full_name": "Valid Name",
		"age":       "not-a-number",
	}, nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad age: status = %d, want 400", w.Code)
	}
}

func TestCreateMalformedRelativesIsTreatedAsAbsent(t *testing.T) {
	env := newTestEnv(t)

	// seed an identity collision candidate
	w := env.do(t, multipartSubmission(t, map[string]string{
		"full_name": "Jane Roe",
		"age":       "40",
		"relatives": `[{"name":"Pat Roe","relationship":"Father"}]`,
	}, nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("seed POST: status %d", w.Code)
	}

	// malformed relatives cannot corroborate, so this is a new case
	w = env.do(t, multipartSubmission(t, map[string]string{
		"full_name": "Jane Roe",
		"age":       "40",
		"relatives": `{"name": "Pat Roe"`,
	}, nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("malformed-relatives POST: status %d: %s", w.Code, w.Body.String())
	}

	var count int64
	env.db.Model(&models.MissingPerson{}).Count(&count)
	if count != 2 {
		t.Errorf("case count = %d, want 2", count)
	}
}

func TestCreateWithPhotosSkipsRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, multipartSubmission(t, map[string]string{
		"full_name": "Photo Person",
	}, []filePart{
		{name: "one.png", data: testPNG(t, 100, 80)},
		{name: "two.png", data: testPNG(t, 50, 50)},
		{name: "notes.txt", data: []byte("not an image")},
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("POST: status %d: %s", w.Code, w.Body.String())
	}

	data := decodeBody(t, w)["data"].(map[string]interface{})
	photos := data["photos"].([]interface{})
	if len(photos) != 2 {
		t.Fatalf("got %d photos, want 2", len(photos))
	}

	// the stored files are servable under their generated names
	for _, p := range photos {
		photo := p.(map[string]interface{})
		url := photo["url"].(string)
		resp := env.do(t, httptest.NewRequest(http.MethodGet, url, nil))
		if resp.Code != http.StatusOK {
			t.Errorf("GET %s: status %d", url, resp.Code)
		}
	}

	names, err := env.store.List()
	if err != nil {
		t.Fatalf("store.List: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("uploads dir holds %d files, want 2", len(names))
	}
}

func TestGetNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/missing-persons/9999", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/missing-persons/not-an-id", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestListPagination(t *testing.T) {
	env := newTestEnv(t)

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		mp := models.MissingPerson{
			FullName:   fmt.Sprintf("Person %02d", i),
			Status:     models.StatusMissing,
			ReporterID: defaultReporterID,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := env.db.Create(&mp).Error; err != nil {
			t.Fatalf("seed case: %v", err)
		}
	}

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/missing-persons?page=2&per_page=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if got := len(body["data"].([]interface{})); got != 5 {
		t.Errorf("data length = %d, want 5", got)
	}
	if body["total"].(float64) != 12 {
		t.Errorf("total = %v, want 12", body["total"])
	}
	if body["pages"].(float64) != 3 {
		t.Errorf("pages = %v, want 3", body["pages"])
	}
	if body["current_page"].(float64) != 2 {
		t.Errorf("current_page = %v, want 2", body["current_page"])
	}
}

func TestUpdateRequiresOwner(t *testing.T) {
	env := newTestEnv(t)

	ownerToken := env.registerAndLogin(t, "owner")
	otherToken := env.registerAndLogin(t, "intruder")

	req := multipartSubmission(t, map[string]string{"full_name": "Owned Case"}, nil)
	req.Header.Set("Authorization", "Bearer "+ownerToken)
	w := env.do(t, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST: status %d: %s", w.Code, w.Body.String())
	}
	id := decodeBody(t, w)["data"].(map[string]interface{})["id"].(float64)
	path := fmt.Sprintf("/api/missing-persons/%.0f", id)

	update, _ := json.Marshal(map[string]string{"status": "found"})

	t.Run("unauthenticated is 401", func(t *testing.T) {
		w := env.do(t, httptest.NewRequest(http.MethodPut, path, bytes.NewReader(update)))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("non-owner is 403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(update))
		req.Header.Set("Authorization", "Bearer "+otherToken)
		w := env.do(t, req)
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	t.Run("owner updates status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(update))
		req.Header.Set("Authorization", "Bearer "+ownerToken)
		w := env.do(t, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		data := decodeBody(t, w)["data"].(map[string]interface{})
		if data["status"] != "found" {
			t.Errorf("status = %v, want found", data["status"])
		}
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/missing-persons/9999", bytes.NewReader(update))
		req.Header.Set("Authorization", "Bearer "+ownerToken)
		w := env.do(t, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestDeleteRemovesRowsAndFiles(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "deleter")

	req := multipartSubmission(t, map[string]string{
		"full_name": "To Be Deleted",
		"relatives": `[{"name":"Kin Person","relationship":"Cousin"}]`,
	}, []filePart{
		{name: "photo.png", data: testPNG(t, 60, 60)},
	})
	req.Header.Set("Authorization", "Bearer "+token)
	w := env.do(t, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST: status %d: %s", w.Code, w.Body.String())
	}
	data := decodeBody(t, w)["data"].(map[string]interface{})
	id := data["id"].(float64)
	filename := data["photos"].([]interface{})[0].(map[string]interface{})["filename"].(string)

	if _, err := os.Stat(filepath.Join(env.uploadsDir, filename)); err != nil {
		t.Fatalf("uploaded file missing before delete: %v", err)
	}

	path := fmt.Sprintf("/api/missing-persons/%.0f", id)
	delReq := httptest.NewRequest(http.MethodDelete, path, nil)
	delReq.Header.Set("Authorization", "Bearer "+token)
	w = env.do(t, delReq)
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE: status %d: %s", w.Code, w.Body.String())
	}

	if w := env.do(t, httptest.NewRequest(http.MethodGet, path, nil)); w.Code != http.StatusNotFound {
		t.Errorf("GET after delete: status %d, want 404", w.Code)
	}

	var photoCount, relativeCount int64
	env.db.Model(&models.Photo{}).Where("missing_person_id = ?", uint(id)).Count(&photoCount)
	env.db.Model(&models.Relative{}).Where("missing_person_id = ?", uint(id)).Count(&relativeCount)
	if photoCount != 0 || relativeCount != 0 {
		t.Errorf("children survived delete: %d photos, %d relatives", photoCount, relativeCount)
	}

	if _, err := os.Stat(filepath.Join(env.uploadsDir, filename)); !os.IsNotExist(err) {
		t.Errorf("image file survived delete: %v", err)
	}
}

func TestUploadsListingRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/uploads", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	token := env.registerAndLogin(t, "operator")
	req := httptest.NewRequest(http.MethodGet, "/api/uploads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = env.do(t, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["count"].(float64) != 0 {
		t.Errorf("count = %v, want 0", body["count"])
	}
}

func TestServeUploadRejectsTraversal(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/uploads/..%2F..%2Fetc%2Fpasswd", nil))
	if w.Code == http.StatusOK {
		t.Fatalf("traversal request served with 200")
	}
}
