package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/carehospital/admin-api/internal/email"
	"github.com/carehospital/admin-api/internal/handler/appointment"
	"github.com/carehospital/admin-api/internal/handler/auth"
	"github.com/carehospital/admin-api/internal/handler/chat"
	"github.com/carehospital/admin-api/internal/handler/doctor"
	"github.com/carehospital/admin-api/internal/handler/health"
	"github.com/carehospital/admin-api/internal/handler/healthrecord"
	"github.com/carehospital/admin-api/internal/handler/patient"
	"github.com/carehospital/admin-api/internal/handler/prometheus"
	"github.com/carehospital/admin-api/internal/handler/template"
	"github.com/carehospital/admin-api/internal/middleware"
	"github.com/carehospital/admin-api/internal/repository"
	"github.com/carehospital/admin-api/internal/repository/memory"
	appointmentService "github.com/carehospital/admin-api/internal/service/appointment"
	authService "github.com/carehospital/admin-api/internal/service/auth"
	chatService "github.com/carehospital/admin-api/internal/service/chat"
	doctorService "github.com/carehospital/admin-api/internal/service/doctor"
	healthRecordService "github.com/carehospital/admin-api/internal/service/healthrecord"
	"github.com/carehospital/admin-api/internal/service/notification"
	patientService "github.com/carehospital/admin-api/internal/service/patient"
	templateService "github.com/carehospital/admin-api/internal/service/template"
	pkgauth "github.com/carehospital/admin-api/pkg/auth"
	"github.com/carehospital/admin-api/pkg/messaging"
	"github.com/carehospital/admin-api/pkg/security"
)

func newTestRouter(t *testing.T) (*gin.Engine, pkgauth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	broker := messaging.NewMemoryBroker()
	t.Cleanup(func() { broker.Close() })
	store := memory.NewStore()
	collections := repository.NewCollections(store, messaging.NewChangeNotifier(broker, nil))

	jwtSvc, err := pkgauth.NewJWTService("s3cret", "care-admin-api", time.Hour)
	require.NoError(t, err)
	hash, err := security.NewBcryptHasher(bcrypt.MinCost).Hash("correct-horse")
	require.NoError(t, err)

	hospital := notification.DefaultHospital
	handoff := notification.NewHandoff("", nil)
	dispatcher := notification.NewService(email.NewLogService(zerolog.Nop()), handoff, hospital, nil)

	appointmentSvc := appointmentService.NewService(collections.Appointments, notification.NewComposer(hospital), handoff, nil)
	watcher := appointmentService.NewWatcher(collections.Appointments, broker, time.Hour)
	require.NoError(t, watcher.Start(ctx))

	chatSvc := chatService.NewService(collections.ChatSessions, chatService.Config{ReplyDelay: time.Hour})
	t.Cleanup(chatSvc.Close)

	r, err := NewRouter(
		middleware.NewAuthMiddleware(jwtSvc),
		Handlers{
			Health:       health.NewHandler(store),
			Metrics:      prometheus.New(prom.NewRegistry()),
			Auth:         auth.NewHandler(authService.NewService("admin", hash, security.NewBcryptHasher(bcrypt.MinCost), jwtSvc)),
			Appointment:  appointment.NewHandler(appointmentSvc, watcher),
			Doctor:       doctor.NewHandler(doctorService.NewService(collections.Doctors)),
			Patient:      patient.NewHandler(patientService.NewService(collections.Patients)),
			Template:     template.NewHandler(templateService.NewService(collections.Templates, dispatcher, hospital), appointmentSvc),
			HealthRecord: healthrecord.NewHandler(healthRecordService.NewService(collections.HealthRecords)),
			Chat:         chat.NewHandler(chatSvc),
		},
		RouterConfig{
			ServiceName: "care-admin-api-test",
			CORSConfig:  middleware.DefaultCORSConfig(),
		},
	)
	require.NoError(t, err)
	return r.Engine(), jwtSvc
}

func request(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_AdminRoutesRequireToken(t *testing.T) {
	r, jwtSvc := newTestRouter(t)

	for _, path := range []string{
		"/api/v1/appointments",
		"/api/v1/appointments/stats",
		"/api/v1/doctors",
		"/api/v1/departments",
		"/api/v1/patients",
		"/api/v1/templates",
		"/api/v1/health-records?patientId=p1",
		"/api/v1/chat/sessions",
	} {
		w := request(r, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	token, _, err := jwtSvc.GenerateAccessToken("admin")
	require.NoError(t, err)
	w := request(r, http.MethodGet, "/api/v1/appointments", "", token)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRouter_PublicRoutes(t *testing.T) {
	r, _ := newTestRouter(t)

	w := request(r, http.MethodPost, "/api/v1/appointments",
		`{"patientName":"Chen Li","patientPhone":"+91 90000 11111","department":"Orthopedics","date":"2024-06-03","time":"11:00"}`, "")
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = request(r, http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"correct-horse"}`, "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "access_token")

	w = request(r, http.MethodGet, "/api/v1/health/live", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(r, http.MethodGet, "/api/v1/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Headers(t *testing.T) {
	r, _ := newTestRouter(t)

	w := request(r, http.MethodGet, "/api/v1/health/live", "", "")
	assert.Equal(t, APIVersion, w.Header().Get("X-API-Version"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))
}
