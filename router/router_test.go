package router

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/api"
	"github.com/khagendra-rk/lms/config"
	"github.com/khagendra-rk/lms/database"
	"github.com/khagendra-rk/lms/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	adminEmail     = "admin@lms.test"
	librarianEmail = "librarian@lms.test"
	password       = "secret-pass-1"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Fields  map[string][]string `json:"fields"`
	} `json:"error"`
}

type testServer struct {
	app *fiber.App
	db  *gorm.DB
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	store, err := database.OpenTestStore(filepath.Join(t.TempDir(), "router.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	t.Setenv("ADMIN_EMAIL", adminEmail)
	t.Setenv("ADMIN_PASSWORD", password)
	t.Setenv("LIBRARIAN_EMAIL", librarianEmail)
	t.Setenv("LIBRARIAN_PASSWORD", password)
	require.NoError(t, database.RunSeeds(store.GetDB()))

	env := &config.EnvironmentVariable{
		JWT_SECRET:               "router-test-secret",
		JWT_ISSUER:               "lms-test",
		JWT_EXPIRY_HOURS:         1,
		JWT_REFRESH_EXPIRY_HOURS: 2,
		ALLOWED_ORIGINS:          "http://localhost:3000",
	}

	app := api.NewAPIServer(":0").GetEngine()
	SetupRoutes(app, store, env, nil)
	return &testServer{app: app, db: store.GetDB()}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/v1/login", "", fmt.Sprintf(`{"email":%q,"password":%q}`, email, password))
	require.Equal(t, fiber.StatusOK, status)

	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.AccessToken)
	return data.AccessToken
}

// stock creates book SCI with copies 1..3 and a student, returning the ids
func (s *testServer) stock(t *testing.T, token string) (bookID uint, indexIDs []uint, studentID uint) {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/v1/books", token,
		`{"name":"Physics","author":"Halliday","publication":"Wiley","edition":"10th","published_year":2014,"price":1500,"prefix":"sci","book_type":"textbook"}`)
	require.Equal(t, fiber.StatusCreated, status)
	var book model.Book
	require.NoError(t, json.Unmarshal(env.Data, &book))
	require.Equal(t, "SCI", book.Prefix)

	status, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/books/%d/rangeindices", book.ID), token, `{"min":1,"max":3}`)
	require.Equal(t, fiber.StatusCreated, status)
	var indices []model.Index
	require.NoError(t, json.Unmarshal(env.Data, &indices))
	require.Len(t, indices, 3)
	for _, idx := range indices {
		indexIDs = append(indexIDs, idx.ID)
	}

	student := model.Student{Name: "Sita", PhoneNo: "9812345678", Address: "Kathmandu", Email: "sita@lms.test", Year: 2}
	require.NoError(t, s.db.Create(&student).Error)
	return book.ID, indexIDs, student.ID
}

func TestPingAndLogin(t *testing.T) {
	s := newServer(t)

	status, _ := s.do(t, http.MethodGet, "/ping", "", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, env := s.do(t, http.MethodPost, "/api/v1/login", "", `{"email":"admin@lms.test","password":"wrong"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	token := s.login(t, adminEmail)
	status, env = s.do(t, http.MethodGet, "/api/v1/user", token, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(env.Data), model.PermUsersManage)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newServer(t)

	for _, path := range []string{"/api/v1/books", "/api/v1/borrows", "/api/v1/users", "/api/v1/user"} {
		status, _ := s.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, fiber.StatusUnauthorized, status, path)
	}
}

func TestPermissionDenialIsUniform(t *testing.T) {
	s := newServer(t)
	token := s.login(t, librarianEmail)

	var messages []string
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/users"},
		{http.MethodPost, "/api/v1/faculties"},
		{http.MethodDelete, "/api/v1/roles/1"},
		{http.MethodGet, "/api/v1/audit-logs"},
	} {
		status, env := s.do(t, route.method, route.path, token, `{}`)
		require.Equal(t, fiber.StatusForbidden, status, route.path)
		require.NotNil(t, env.Error)
		messages = append(messages, env.Error.Message)
	}
	for _, m := range messages {
		assert.Equal(t, messages[0], m)
	}

	// librarians run circulation
	status, _ := s.do(t, http.MethodGet, "/api/v1/borrows", token, "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestCirculationOverHTTP(t *testing.T) {
	s := newServer(t)
	token := s.login(t, librarianEmail)
	_, indexIDs, studentID := s.stock(t, token)

	issue := fmt.Sprintf(`{"index_id":%d,"student_id":%d}`, indexIDs[0], studentID)
	status, env := s.do(t, http.MethodPost, "/api/v1/borrows", token, issue)
	require.Equal(t, fiber.StatusCreated, status)
	var borrow model.Borrow
	require.NoError(t, json.Unmarshal(env.Data, &borrow))
	assert.Nil(t, borrow.ReturnedAt)

	status, env = s.do(t, http.MethodPost, "/api/v1/borrows", token, issue)
	assert.Equal(t, fiber.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	status, env = s.do(t, http.MethodPost, "/api/v1/borrows", token,
		fmt.Sprintf(`{"index_id":%d,"student_id":%d,"teacher_id":1}`, indexIDs[1], studentID))
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Fields, "student_id")
	assert.Contains(t, env.Error.Fields, "teacher_id")

	status, _ = s.do(t, http.MethodPost, "/api/v1/borrows/return", token, `{"code":"SCI-1"}`)
	assert.Equal(t, fiber.StatusNoContent, status)

	var index model.Index
	require.NoError(t, s.db.First(&index, indexIDs[0]).Error)
	assert.False(t, index.IsBorrowed)

	status, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/borrows/%d/return", borrow.ID), token, "")
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/borrows/return", token, `{"code":"SCI-99"}`)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestIndexRulesOverHTTP(t *testing.T) {
	s := newServer(t)
	token := s.login(t, librarianEmail)
	bookID, indexIDs, studentID := s.stock(t, token)

	status, env := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/books/%d/rangeindices", bookID), token, `{"min":2,"max":5}`)
	assert.Equal(t, fiber.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Message, "2")

	status, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/books/%d/indices", bookID), token, `{"code":3}`)
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/books/%d/quantityindices", bookID), token, `{"quantity":0}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/borrows", token, fmt.Sprintf(`{"index_id":%d,"student_id":%d}`, indexIDs[2], studentID))
	require.Equal(t, fiber.StatusCreated, status)

	status, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/books/%d/indices/%d", bookID, indexIDs[2]), token, "")
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/books/%d/indices/%d", bookID, indexIDs[1]), token, "")
	assert.Equal(t, fiber.StatusNoContent, status)
}

func TestMutationsAreAudited(t *testing.T) {
	s := newServer(t)
	token := s.login(t, librarianEmail)
	bookID, _, _ := s.stock(t, token)

	var logs []model.AuditLog
	require.NoError(t, s.db.Where("resource = ?", "books").Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, "create", logs[0].Action)
	require.NotNil(t, logs[1].ResourceID)
	assert.Equal(t, bookID, *logs[1].ResourceID)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s := newServer(t)
	status, env := s.do(t, http.MethodGet, "/api/v1/nowhere", "", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestCreateUserChecksPasswordPolicy(t *testing.T) {
	s := newServer(t)
	token := s.login(t, adminEmail)

	status, env := s.do(t, http.MethodPost, "/api/v1/users", token,
		`{"name":"Hari","email":"hari.prasad@lms.test","password":"hari.prasad"}`)
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, []string{"The password must not match the e-mail address."}, env.Error.Fields["password"])

	status, _ = s.do(t, http.MethodPost, "/api/v1/users", token,
		`{"name":"Hari","email":"hari.prasad@lms.test","password":"stacks-and-shelves"}`)
	assert.Equal(t, fiber.StatusCreated, status)
}

func TestDeleteBookKeepsBorrowedCopies(t *testing.T) {
	s := newServer(t)
	token := s.login(t, librarianEmail)
	bookID, indexIDs, studentID := s.stock(t, token)

	status, env := s.do(t, http.MethodPost, "/api/v1/borrows", token, fmt.Sprintf(`{"index_id":%d,"student_id":%d}`, indexIDs[1], studentID))
	require.Equal(t, fiber.StatusCreated, status)
	var borrow model.Borrow
	require.NoError(t, json.Unmarshal(env.Data, &borrow))

	status, env = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/books/%d", bookID), token, "")
	assert.Equal(t, fiber.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Fields, "book")

	// nothing was removed, idle copies included
	var copies int64
	require.NoError(t, s.db.Model(&model.Index{}).Where("book_id = ?", bookID).Count(&copies).Error)
	assert.EqualValues(t, 3, copies)
	require.NoError(t, s.db.First(&model.Book{}, bookID).Error)

	status, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/borrows/%d/return", borrow.ID), token, "")
	require.Equal(t, fiber.StatusNoContent, status)

	status, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/books/%d", bookID), token, "")
	assert.Equal(t, fiber.StatusNoContent, status)
	require.NoError(t, s.db.Model(&model.Index{}).Where("book_id = ?", bookID).Count(&copies).Error)
	assert.Zero(t, copies)
}
