package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/go_bookshop/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetProfile(t *testing.T) {
	handler := NewProfileHandler(&mockProfiles{}, 5*time.Second, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.GetProfile(rec, withTestUser(httptest.NewRequest(http.MethodGet, "/profile", nil), "u1"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"u1"`)
}

func TestUpdateProfile(t *testing.T) {
	m := &mockProfiles{}
	handler := NewProfileHandler(m, 5*time.Second, zap.NewNop())

	body := `{"phone":"+91 98765 43210","address":"12 MG Road","picture_ref":"https://cdn.example.com/a.png"}`
	rec := httptest.NewRecorder()
	handler.UpdateProfile(rec, withTestUser(httptest.NewRequest(http.MethodPut, "/profile", strings.NewReader(body)), "u1"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ProfileUpdate{
		Phone:      "+91 98765 43210",
		Address:    "12 MG Road",
		PictureRef: "https://cdn.example.com/a.png",
	}, m.update)
}

func TestUpdateProfile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{"phone too long", `{"phone":"123456789012345678901"}`, nil},
		{"bad picture url", `{"picture_ref":"not a url"}`, nil},
		{"rejected by service", `{"picture_ref":"ftp://example.com/a.png"}`, fmt.Errorf("%w: picture must be an http(s) URL", service.ErrInvalidProfile)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewProfileHandler(&mockProfiles{err: tt.err}, 5*time.Second, zap.NewNop())

			rec := httptest.NewRecorder()
			handler.UpdateProfile(rec, withTestUser(httptest.NewRequest(http.MethodPut, "/profile", strings.NewReader(tt.body)), "u1"))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
