package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/access"
	v1mocks "github.com/shenikar/emergency_response_system/internal/handler/http/v1/mocks"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/shenikar/emergency_response_system/internal/realtime"
	"github.com/shenikar/emergency_response_system/internal/service"
	"github.com/shenikar/emergency_response_system/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testToken = "test-token"

type testEnv struct {
	auth          *mocks.MockAuthService
	users         *mocks.MockUserService
	incidents     *mocks.MockIncidentService
	notifications *mocks.MockNotificationService
	geography     *mocks.MockGeographyService
	realtime      *v1mocks.MockRealtimeSubscriber
	router        *gin.Engine
	actor         access.Actor
	claims        *service.TokenClaims
}

// newTestEnv создает Handler с мокированными сервисами и верифицированным жителем в роли актора
func newTestEnv(t *testing.T) *testEnv {
	ctrl := gomock.NewController(t)
	municipalityID, barangayID := uuid.New(), uuid.New()
	env := &testEnv{
		auth:          mocks.NewMockAuthService(ctrl),
		users:         mocks.NewMockUserService(ctrl),
		incidents:     mocks.NewMockIncidentService(ctrl),
		notifications: mocks.NewMockNotificationService(ctrl),
		geography:     mocks.NewMockGeographyService(ctrl),
		realtime:      v1mocks.NewMockRealtimeSubscriber(ctrl),
		actor: access.Actor{
			ID:                 uuid.New(),
			Role:               models.RoleResident,
			MunicipalityID:     &municipalityID,
			BarangayID:         &barangayID,
			VerificationStatus: models.VerificationVerified,
			IsActive:           true,
		},
	}
	env.claims = &service.TokenClaims{
		Role:             models.RoleResident,
		RegisteredClaims: jwt.RegisteredClaims{Subject: env.actor.ID.String(), ID: "jti-1"},
	}

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	handler := NewHandler(Services{
		Auth:          env.auth,
		Users:         env.users,
		Incidents:     env.incidents,
		Notifications: env.notifications,
		Geography:     env.geography,
	}, env.realtime, logger, Options{MediaMaxBytes: 1024})

	gin.SetMode(gin.TestMode)
	env.router = gin.New()
	env.router.Use(RequestLogger(logger))
	handler.RegisterRoutes(env.router.Group("/api/v1"))
	return env
}

// authorized разрешает testToken для всех запросов теста
func (e *testEnv) authorized() {
	e.auth.EXPECT().Authenticate(gomock.Any(), testToken).Return(e.actor, e.claims, nil).AnyTimes()
}

var bearer = map[string]string{"Authorization": "Bearer " + testToken}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func floatPtr(v float64) *float64 { return &v }

func TestAuthMiddleware(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		env := newTestEnv(t)
		w := makeRequest(env.router, http.MethodGet, "/api/v1/incidents", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejected token", func(t *testing.T) {
		env := newTestEnv(t)
		env.auth.EXPECT().Authenticate(gomock.Any(), "expired").Return(access.Actor{}, nil, models.ErrUnauthorized)
		w := makeRequest(env.router, http.MethodGet, "/api/v1/user", nil, map[string]string{"Authorization": "Bearer expired"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("public routes need no token", func(t *testing.T) {
		env := newTestEnv(t)
		w := makeRequest(env.router, http.MethodGet, "/api/v1/system/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(requestIDHeader))
	})
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	user := &models.User{ID: uuid.New(), Email: "juan@example.com", FullName: "Juan Dela Cruz",
		Role: models.RoleResident, IsActive: true, VerificationStatus: models.VerificationPending}
	token := &service.Token{AccessToken: "abc", TokenType: "Bearer", ExpiresAt: time.Now().Add(time.Hour)}

	env.auth.EXPECT().Register(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in service.RegisterInput) (*models.User, *service.Token, error) {
			assert.Equal(t, "juan@example.com", in.Email)
			require.NotNil(t, in.BarangayID)
			return user, token, nil
		})

	w := makeRequest(env.router, http.MethodPost, "/api/v1/register", jsonBody(t, RegisterRequest{
		Email: "juan@example.com", Password: "s3cret-pass", FullName: "Juan Dela Cruz",
		BarangayID: uuid.NewString(),
	}))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Equal(t, "pending", resp.User.VerificationStatus)
	assert.Equal(t, "abc", resp.Token.AccessToken)
}

func TestRegister_BadInput(t *testing.T) {
	env := newTestEnv(t)
	env.auth.EXPECT().Register(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(env.router, http.MethodPost, "/api/v1/register", bytes.NewBufferString(`{"email": "x"`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = makeRequest(env.router, http.MethodPost, "/api/v1/register", jsonBody(t, RegisterRequest{
		Email: "not-an-email", Password: "short", FullName: "J", BarangayID: "nope",
	}))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "must be a valid email address", resp.Errors["email"])
	assert.Contains(t, resp.Errors, "password")
	assert.Contains(t, resp.Errors, "full_name")
	assert.Equal(t, "must be a valid UUID", resp.Errors["barangay_id"])
}

func TestLogin_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"wrong password", fmt.Errorf("service: login: %w", models.ErrInvalidCredentials), http.StatusUnauthorized},
		{"deactivated", models.ErrForbidden, http.StatusForbidden},
		{"database down", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.auth.EXPECT().Login(gomock.Any(), "a@b.ph", "password1").Return(nil, nil, tt.err)
			w := makeRequest(env.router, http.MethodPost, "/api/v1/login", jsonBody(t, LoginRequest{Email: "a@b.ph", Password: "password1"}))
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", decodeError(t, w).Message)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.authorized()
	env.auth.EXPECT().Logout(gomock.Any(), env.claims).Return(nil)

	w := makeRequest(env.router, http.MethodPost, "/api/v1/logout", nil, bearer)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	env.authorized()
	env.users.EXPECT().Me(gomock.Any(), env.actor).Return(&models.User{ID: env.actor.ID, Role: models.RoleResident}, nil)

	w := makeRequest(env.router, http.MethodGet, "/api/v1/user", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)
	var resp UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, env.actor.ID, resp.ID)
}

func TestCreateIncident_JSON(t *testing.T) {
	env := newTestEnv(t)
	env.authorized()
	barangayID := uuid.New()

	env.incidents.EXPECT().CreateIncident(gomock.Any(), env.actor, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ access.Actor, in service.CreateIncidentInput) (*models.Incident, error) {
			assert.Equal(t, models.IncidentFire, in.Type)
			assert.Equal(t, "House fire", in.Title)
			assert.Zero(t, in.Latitude) // (0,0) допустимы
			assert.Zero(t, in.Longitude)
			assert.Equal(t, barangayID, *in.BarangayID)
			assert.Empty(t, in.Media)
			return &models.Incident{ID: uuid.New(), Title: in.Title, Type: in.Type, Status: models.StatusReported,
				LocationAddress: models.GPSUnavailableMarker}, nil
		})

	w := makeRequest(env.router, http.MethodPost, "/api/v1/incidents", jsonBody(t, CreateIncidentRequest{
		IncidentType: "fire", Title: "  House fire ", Description: "Smoke from the roof",
		Latitude: floatPtr(0), Longitude: floatPtr(0), BarangayID: barangayID.String(), UrgencyLevel: "high",
	}), bearer)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "reported", resp.Status)
	assert.Equal(t, models.GPSUnavailableMarker, resp.LocationAddress)
}

func TestCreateIncident_MissingCoordinates(t *testing.T) {
	env := newTestEnv(t)
	env.authorized()
	env.incidents.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(env.router, http.MethodPost, "/api/v1/incidents", jsonBody(t, map[string]any{
		"incident_type": "fire", "title": "House fire", "description": "Smoke", "urgency_level": "high",
	}), bearer)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "The given data was invalid.", resp.Message)
	assert.Equal(t, "is required", resp.Errors["latitude"])
	assert.Equal(t, "is required", resp.Errors["longitude"])
}

func TestCreateIncident_ForbiddenForUnverified(t *testing.T) {
	env := newTestEnv(t)
	env.authorized()
	env.incidents.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("service: create incident: %w", models.ErrForbidden))

	w := makeRequest(env.router, http.MethodPost, "/api/v1/incidents", jsonBody(t, CreateIncidentRequest{
		IncidentType: "medical", Title: "Collapsed man", Description: "Unconscious",
		Latitude: floatPtr(10.3), Longitude: floatPtr(123.9), UrgencyLevel: "critical",
	}), bearer)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// multipartBody собирает форму инцидента с вложениями заданных типов
func multipartBody(t *testing.T, files map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"incident_type": "fire", "title": "Market fire", "description": "Stalls burning",
		"latitude": "10.31", "longitude": "123.89", "urgency_level": "critical",
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, mime := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media"; filename="%s"`, name))
		h.Set("Content-Type", mime)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("bytes-of-" + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCreateIncident_MultipartWithMedia(t *testing.T) {
	env := newTestEnv(t)
	env.authorized()

	env.incidents.EXPECT().CreateIncident(gomock.Any(), env.actor, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ access.Actor, in service.CreateIncidentInput) (*models.Incident, error) {
			assert.InDelta(t, 10.31, in.Latitude, 1e-9)
			assert.Equal(t, models.UrgencyCritical, in.Urgency)
			require.Len(t, in.Media, 1)
			assert.Equal(t, "photo.jpg", in.Media[0].FileName)
			assert.Equal(t, "image/jpeg", in.Media[0].MimeType)

			rc, err := in.Media[0].Open()
			require.NoError(t, err)
			defer rc.Close()
			content, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, "bytes-of-photo.jpg", string(content))
			return &models.Incident{ID: uuid.New(), Status: models.StatusReported}, nil
		})

	body, contentType := multipartBody(t, map[string]string{"photo.jpg": "image/jpeg"})
	w := makeRequest(env.router, http.MethodPost, "/api/v1/incidents", body, bearer, map[string]string{"Content-Type": contentType})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateIncident_RejectsUnsupportedMedia(t *testing.T) {
	env := newTestEnv(t)
	env.authorized()
	env.incidents.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	body, contentType := multipartBody(t, map[string]string{"notes.pdf": "application/pdf"})
	w := makeRequest(env.router, http.MethodPost, "/api/v1/incidents", body, bearer, map[string]string{"Content-Type": contentType})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decodeError(t, w).Errors, "media.0")
}

func TestListIncidents(t *testing.T) {
	env := newTestEnv(t)
	env.authorized()

	env.incidents.EXPECT().ListIncidents(gomock.Any(), env.actor, gomock.Any(), 2, 5).
		DoAndReturn(func(_ context.Context, _ access.Actor, f models.IncidentFilter, _, _ int) ([]*models.Incident, int, error) {
			require.NotNil(t, f.Status)
			assert.Equal(t, models.StatusInProgress, *f.Status)
			require.NotNil(t, f.DateFrom)
			require.NotNil(t, f.DateTo)
			assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *f.DateFrom)
			assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), *f.DateTo)
			return []*models.Incident{{ID: uuid.New()}}, 11, nil
		})

	w := makeRequest(env.router, http.MethodGet,
		"/api/v1/incidents?status=in_progress&date_from=2024-06-01&date_to=2024-06-30&page=2&per_page=5", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)

	var resp PagedIncidents
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, PageMeta{CurrentPage: 2, PerPage: 5, Total: 11, LastPage: 3}, resp.Meta)
}

func TestListIncidents_InvalidFilters(t *testing.T) {
	env := newTestEnv(t)
	env.authorized()
	env.incidents.EXPECT().ListIncidents(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(env.router, http.MethodGet, "/api/v1/incidents?status=closed&date_from=yesterday", nil, bearer)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Contains(t, resp.Errors, "status")
	assert.Contains(t, resp.Errors, "date_from")
}

func TestListIncidents_DateRange(t *testing.T) {
	t.Run("same day is accepted", func(t *testing.T) {
		env := newTestEnv(t)
		env.authorized()
		env.incidents.EXPECT().ListIncidents(gomock.Any(), env.actor, gomock.Any(), 0, 0).
			DoAndReturn(func(_ context.Context, _ access.Actor, f models.IncidentFilter, _, _ int) ([]*models.Incident, int, error) {
				require.NotNil(t, f.DateFrom)
				require.NotNil(t, f.DateTo)
				assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), *f.DateFrom)
				assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), *f.DateTo)
				return nil, 0, nil
			})

		w := makeRequest(env.router, http.MethodGet, "/api/v1/incidents?date_from=2026-03-02&date_to=2026-03-02", nil, bearer)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("date_to one day before date_from", func(t *testing.T) {
		env := newTestEnv(t)
		env.authorized()
		env.incidents.EXPECT().ListIncidents(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		w := makeRequest(env.router, http.MethodGet, "/api/v1/incidents?date_from=2026-03-02&date_to=2026-03-01", nil, bearer)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "must be a date after or equal to date_from", resp.Errors["date_to"])
	})
}

func TestGetIncident(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		env := newTestEnv(t)
		env.authorized()
		w := makeRequest(env.router, http.MethodGet, "/api/v1/incidents/not-a-uuid", nil, bearer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invisible incident is not found", func(t *testing.T) {
		env := newTestEnv(t)
		env.authorized()
		id := uuid.New()
		env.incidents.EXPECT().GetIncident(gomock.Any(), env.actor, id).Return(nil, models.ErrNotFound)
		w := makeRequest(env.router, http.MethodGet, "/api/v1/incidents/"+id.String(), nil, bearer)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("detail", func(t *testing.T) {
		env := newTestEnv(t)
		env.authorized()
		id := uuid.New()
		env.incidents.EXPECT().GetIncident(gomock.Any(), env.actor, id).Return(&models.IncidentDetail{
			Incident: &models.Incident{ID: id, Status: models.StatusAssigned},
			Reporter: &models.User{ID: env.actor.ID},
			Media:    []*models.IncidentMedia{{ID: uuid.New(), URL: "https://storage/x.jpg"}},
		}, nil)

		w := makeRequest(env.router, http.MethodGet, "/api/v1/incidents/"+id.String(), nil, bearer)
		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "assigned", resp["status"])
		assert.Len(t, resp["media"], 1)
		assert.Equal(t, []any{}, resp["updates"])
		assert.Equal(t, []any{}, resp["assignments"])
	})
}

func TestUpdateStatus(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		env.authorized()
		id := uuid.New()
		env.incidents.EXPECT().UpdateStatus(gomock.Any(), env.actor, id, models.StatusResolved, "fire out").
			Return(&models.Incident{ID: id, Status: models.StatusResolved}, nil)

		w := makeRequest(env.router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/update-status",
			jsonBody(t, UpdateStatusRequest{Status: "resolved", Message: "fire out"}), bearer)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("update_message is passed to the timeline", func(t *testing.T) {
		env := newTestEnv(t)
		env.authorized()
		id := uuid.New()
		env.incidents.EXPECT().UpdateStatus(gomock.Any(), env.actor, id, models.StatusInProgress, "team on site").
			Return(&models.Incident{ID: id, Status: models.StatusInProgress}, nil)

		w := makeRequest(env.router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/update-status",
			strings.NewReader(`{"status":"in_progress","update_message":"team on site","message":"ignored"}`), bearer)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("update_message too long", func(t *testing.T) {
		env := newTestEnv(t)
		env.authorized()
		id := uuid.New()
		env.incidents.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		w := makeRequest(env.router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/update-status",
			jsonBody(t, UpdateStatusRequest{Status: "in_progress", UpdateMessage: strings.Repeat("x", 1001)}), bearer)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, decodeError(t, w).Errors, "update_message")
	})

	t.Run("invalid transition", func(t *testing.T) {
		env := newTestEnv(t)
		env.authorized()
		id := uuid.New()
		env.incidents.EXPECT().UpdateStatus(gomock.Any(), env.actor, id, models.StatusReported, "").
			Return(nil, models.NewTransitionError(models.StatusResolved, models.StatusReported))

		w := makeRequest(env.router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/update-status",
			jsonBody(t, UpdateStatusRequest{Status: "reported"}), bearer)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "cannot change status from resolved to reported", decodeError(t, w).Errors["status"])
	})

	t.Run("forbidden", func(t *testing.T) {
		env := newTestEnv(t)
		env.authorized()
		id := uuid.New()
		env.incidents.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), id, gomock.Any(), gomock.Any()).Return(nil, models.ErrForbidden)

		w := makeRequest(env.router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/update-status",
			jsonBody(t, UpdateStatusRequest{Status: "in_progress"}), bearer)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAssignAndEscalate(t *testing.T) {
	env := newTestEnv(t)
	env.authorized()
	id, responderID := uuid.New(), uuid.New()
	notes := "bring extinguishers"

	env.incidents.EXPECT().AssignResponder(gomock.Any(), env.actor, id, responderID, &notes).
		Return(&models.Assignment{ID: uuid.New(), IncidentID: id, ResponderID: responderID, Status: models.AssignmentAssigned}, nil)
	w := makeRequest(env.router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/assign",
		jsonBody(t, AssignRequest{ResponderID: responderID.String(), Notes: &notes}), bearer)
	require.Equal(t, http.StatusCreated, w.Code)

	w = makeRequest(env.router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/assign",
		jsonBody(t, AssignRequest{ResponderID: "someone"}), bearer)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decodeError(t, w).Errors, "responder_id")

	env.incidents.EXPECT().RequestEscalation(gomock.Any(), env.actor, id, "need more trucks").
		Return(&models.IncidentUpdate{ID: uuid.New(), Kind: models.UpdateEscalation}, nil)
	w = makeRequest(env.router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/escalate",
		jsonBody(t, EscalateRequest{Reason: "need more trucks"}), bearer)
	assert.Equal(t, http.StatusCreated, w.Code)

	env.incidents.EXPECT().Acknowledge(gomock.Any(), env.actor, id).Return(nil)
	w = makeRequest(env.router, http.MethodPost, "/api/v1/incidents/"+id.String()+"/acknowledge", nil, bearer)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	env.authorized()
	env.incidents.EXPECT().Stats(gomock.Any(), env.actor, 6).Return([]models.MonthlyStat{{Month: "2024-06", Total: 3}}, nil)

	w := makeRequest(env.router, http.MethodGet, "/api/v1/incidents/stats?months=6", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"month":"2024-06"`)

	w = makeRequest(env.router, http.MethodGet, "/api/v1/incidents/stats?months=many", nil, bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotifications(t *testing.T) {
	env := newTestEnv(t)
	env.authorized()
	id, incidentID := uuid.New(), uuid.New()
	readAt := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	env.notifications.EXPECT().List(gomock.Any(), env.actor, true, 0, 0).
		Return([]*models.Notification{{ID: id, Type: models.NotificationStatusUpdate}}, 1, nil)
	w := makeRequest(env.router, http.MethodGet, "/api/v1/notifications?unread_only=true", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)
	var page PagedNotifications
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, PageMeta{CurrentPage: 1, PerPage: 20, Total: 1, LastPage: 1}, page.Meta)

	env.notifications.EXPECT().UnreadCount(gomock.Any(), env.actor).Return(4, nil)
	w = makeRequest(env.router, http.MethodGet, "/api/v1/notifications/unread-count", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":4}`, w.Body.String())

	env.notifications.EXPECT().MarkRead(gomock.Any(), env.actor, id).
		Return(&models.Notification{ID: id, IsRead: true, ReadAt: &readAt}, nil)
	w = makeRequest(env.router, http.MethodPost, "/api/v1/notifications/"+id.String()+"/read", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)

	env.notifications.EXPECT().MarkRead(gomock.Any(), env.actor, gomock.Not(id)).Return(nil, models.ErrNotFound)
	w = makeRequest(env.router, http.MethodPost, "/api/v1/notifications/"+uuid.NewString()+"/read", nil, bearer)
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.notifications.EXPECT().MarkAllRead(gomock.Any(), env.actor).Return(int64(3), nil)
	w = makeRequest(env.router, http.MethodPost, "/api/v1/notifications/read-all", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":3}`, w.Body.String())

	env.notifications.EXPECT().MarkIncidentRead(gomock.Any(), env.actor, incidentID).Return(int64(2), nil)
	w = makeRequest(env.router, http.MethodPost, "/api/v1/notifications/incidents/"+incidentID.String()+"/read", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":2}`, w.Body.String())
}

func TestUsers(t *testing.T) {
	env := newTestEnv(t)
	env.authorized()
	municipalityID := uuid.New()

	env.users.EXPECT().CreateUser(gomock.Any(), env.actor, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ access.Actor, in service.CreateUserInput) (*models.User, error) {
			assert.Equal(t, models.RoleMDRRMO, in.Role)
			assert.Equal(t, municipalityID, *in.MunicipalityID)
			return &models.User{ID: uuid.New(), Role: in.Role, MunicipalityID: in.MunicipalityID}, nil
		})
	w := makeRequest(env.router, http.MethodPost, "/api/v1/users", jsonBody(t, CreateUserRequest{
		Email: "ops@sanisidro.gov.ph", Password: "password123", FullName: "Ops Desk",
		Role: "mdrrmo", MunicipalityID: municipalityID.String(),
	}), bearer)
	require.Equal(t, http.StatusCreated, w.Code)

	env.users.EXPECT().ListUsers(gomock.Any(), env.actor, gomock.Any(), 0, 0).
		DoAndReturn(func(_ context.Context, _ access.Actor, f models.UserFilter, _, _ int) ([]*models.User, int, error) {
			require.NotNil(t, f.Role)
			assert.Equal(t, models.RoleResident, *f.Role)
			require.NotNil(t, f.IsActive)
			assert.False(t, *f.IsActive)
			return nil, 0, nil
		})
	w = makeRequest(env.router, http.MethodGet, "/api/v1/users?role=resident&is_active=false", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)

	w = makeRequest(env.router, http.MethodGet, "/api/v1/users?role=mayor", nil, bearer)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	userID := uuid.New()
	w = makeRequest(env.router, http.MethodPost, "/api/v1/users/"+userID.String()+"/verification",
		jsonBody(t, VerifyResidentRequest{Status: "pending"}), bearer)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "must be one of: verified rejected", decodeError(t, w).Errors["status"])

	env.users.EXPECT().VerifyResident(gomock.Any(), env.actor, userID, models.VerificationVerified, nil).
		Return(&models.User{ID: userID, VerificationStatus: models.VerificationVerified}, nil)
	w = makeRequest(env.router, http.MethodPost, "/api/v1/users/"+userID.String()+"/verification",
		jsonBody(t, VerifyResidentRequest{Status: "verified"}), bearer)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGeography(t *testing.T) {
	env := newTestEnv(t)
	m := &models.Municipality{ID: uuid.New(), Name: "San Isidro"}

	env.geography.EXPECT().ListMunicipalities(gomock.Any()).Return([]*models.Municipality{m}, nil)
	w := makeRequest(env.router, http.MethodGet, "/api/v1/municipalities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "San Isidro")

	env.geography.EXPECT().ListBarangays(gomock.Any(), m.ID).Return([]*models.Barangay{{ID: uuid.New(), MunicipalityID: m.ID, Name: "Alegria"}}, nil)
	w = makeRequest(env.router, http.MethodGet, "/api/v1/municipalities/"+m.ID.String()+"/barangays", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alegria")

	missing := uuid.New()
	env.geography.EXPECT().ListBarangays(gomock.Any(), missing).Return(nil, models.ErrNotFound)
	w = makeRequest(env.router, http.MethodGet, "/api/v1/municipalities/"+missing.String()+"/barangays", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRealtime_SubscribeFailure(t *testing.T) {
	env := newTestEnv(t)
	env.authorized()
	env.realtime.EXPECT().Subscribe(gomock.Any(), env.actor.ID).Return(nil, nil, errors.New("redis down"))

	w := makeRequest(env.router, http.MethodGet, "/api/v1/realtime", nil, bearer)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRealtime_StreamsFilteredMessages(t *testing.T) {
	env := newTestEnv(t)
	env.authorized()

	own := models.IncidentEvent{Type: models.EventIncidentStatusChanged, IncidentID: uuid.New(), ReporterID: env.actor.ID}
	foreign := models.IncidentEvent{Type: models.EventIncidentCreated, IncidentID: uuid.New(), ReporterID: uuid.New()}
	mine := &models.Notification{ID: uuid.New(), UserID: env.actor.ID, Title: "Incident resolved"}
	others := &models.Notification{ID: uuid.New(), UserID: uuid.New()}

	ch := make(chan realtime.Message, 4)
	ch <- realtime.Message{Kind: realtime.KindIncident, Incident: &foreign}
	ch <- realtime.Message{Kind: realtime.KindIncident, Incident: &own}
	ch <- realtime.Message{Kind: realtime.KindNotification, Notification: others}
	ch <- realtime.Message{Kind: realtime.KindNotification, Notification: mine}

	closed := make(chan struct{})
	env.realtime.EXPECT().Subscribe(gomock.Any(), env.actor.ID).
		Return((<-chan realtime.Message)(ch), func() error { close(closed); return nil }, nil)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/realtime?access_token=" + testToken
	conn, resp, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	var got []realtime.Message
	for range 3 {
		var m realtime.Message
		require.NoError(t, wsjson.Read(ctx, conn, &m))
		got = append(got, m)
	}
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

	assert.Equal(t, realtime.KindReady, got[0].Kind)
	require.Equal(t, realtime.KindIncident, got[1].Kind)
	assert.Equal(t, own.IncidentID, got[1].Incident.IncidentID)
	require.Equal(t, realtime.KindNotification, got[2].Kind)
	assert.Equal(t, mine.ID, got[2].Notification.ID)

	select {
	case <-closed:
	case <-ctx.Done():
		t.Fatal("subscription was not closed after the client disconnected")
	}
}
