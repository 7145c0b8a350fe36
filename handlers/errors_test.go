package handlers

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/khagendra-rk/lms/database"
	"github.com/khagendra-rk/lms/model"
	"github.com/khagendra-rk/lms/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRespondErrorStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", services.NewValidationError("bad", "code"), fiber.StatusUnprocessableEntity},
		{"conflict", &services.ConflictError{Field: "index", Message: "taken"}, fiber.StatusConflict},
		{"wrapped conflict", fmt.Errorf("issue: %w", &services.ConflictError{Field: "index", Message: "taken"}), fiber.StatusConflict},
		{"not found", &services.NotFoundError{Resource: "book"}, fiber.StatusNotFound},
		{"record not found", gorm.ErrRecordNotFound, fiber.StatusNotFound},
		{"duplicate key", gorm.ErrDuplicatedKey, fiber.StatusConflict},
		{"infrastructure", errors.New("connection reset"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return RespondError(c, tc.err, "Failed") })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestParamIDAndPagination(t *testing.T) {
	app := fiber.New()
	app.Get("/items/:item", func(c *fiber.Ctx) error {
		id, ok := ParamID(c, "item")
		if !ok {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		page, limit, offset := Pagination(c)
		return c.SendString(fmt.Sprintf("%d %d %d %d", id, page, limit, offset))
	})

	for path, want := range map[string]int{
		"/items/7?page=3&limit=20": fiber.StatusOK,
		"/items/0":                 fiber.StatusBadRequest,
		"/items/abc":               fiber.StatusBadRequest,
	} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, path)
	}
}

func TestTakenFields(t *testing.T) {
	store, err := database.OpenTestStore(filepath.Join(t.TempDir(), "taken.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	db := store.GetDB()

	existing := model.Teacher{Name: "Ram", PhoneNo: "9812345678", Address: "Patan", Email: "ram@lms.test"}
	require.NoError(t, db.Create(&existing).Error)

	var noCollege *string
	taken, err := TakenFields(db, &model.Teacher{}, 0, map[string]interface{}{
		"email":         "ram@lms.test",
		"college_email": noCollege,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"The email has already been taken."}, taken["email"])
	assert.NotContains(t, taken, "college_email")

	taken, err = TakenFields(db, &model.Teacher{}, existing.ID, map[string]interface{}{"email": "ram@lms.test"})
	require.NoError(t, err)
	assert.Empty(t, taken)
}
