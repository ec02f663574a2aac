package doctor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehospital/admin-api/internal/middleware"
	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/repository"
	"github.com/carehospital/admin-api/internal/repository/memory"
	"github.com/carehospital/admin-api/internal/service/doctor"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
}

func newRouter() *gin.Engine {
	repo := repository.NewCollection[model.Doctor](memory.NewStore(), model.KeyDoctors, nil)
	r := gin.New()
	NewHandler(doctor.NewService(repo)).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	var env map[string]json.RawMessage
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestDoctorCRUD(t *testing.T) {
	r := newRouter()

	w, env := do(r, http.MethodPost, "/api/v1/doctors",
		`{"name":"Dr. Meera Iyer","specialization":"Cardiologist","department":"Cardiology","consultationFee":"750.50"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var doc model.Doctor
	require.NoError(t, json.Unmarshal(env["data"], &doc))
	assert.True(t, strings.HasPrefix(doc.ID, "doctor-"))
	assert.True(t, doc.Available)
	assert.Equal(t, "750.5", doc.ConsultationFee.String())

	w, env = do(r, http.MethodGet, "/api/v1/doctors?q=cardio", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.Doctor
	require.NoError(t, json.Unmarshal(env["data"], &list))
	assert.Len(t, list, 1)

	w, env = do(r, http.MethodPut, "/api/v1/doctors/"+doc.ID,
		`{"name":"Dr. Meera Iyer","specialization":"Interventional Cardiologist","available":false}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(env["data"], &doc))
	assert.False(t, doc.Available)
	assert.Equal(t, "Interventional Cardiologist", doc.Specialization)

	w, _ = do(r, http.MethodDelete, "/api/v1/doctors/"+doc.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = do(r, http.MethodGet, "/api/v1/doctors/"+doc.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `"doctor not found"`, string(env["message"]))
}

func TestDoctorValidation(t *testing.T) {
	r := newRouter()

	w, env := do(r, http.MethodPost, "/api/v1/doctors", `{"name":"Dr. No Specialty"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `"specialization is required"`, string(env["message"]))

	w, _ = do(r, http.MethodGet, "/api/v1/doctors", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListDepartments(t *testing.T) {
	r := newRouter()
	do(r, http.MethodPost, "/api/v1/doctors", `{"name":"A","specialization":"B","department":" Sports Medicine "}`)

	w, env := do(r, http.MethodGet, "/api/v1/departments", "")
	require.Equal(t, http.StatusOK, w.Code)
	var deps []string
	require.NoError(t, json.Unmarshal(env["data"], &deps))
	assert.Contains(t, deps, "Sports Medicine")
	assert.Contains(t, deps, "Cardiology")
	assert.Len(t, deps, len(model.DefaultDepartments)+1)
}
