package routes

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createJob(t *testing.T, env *testEnv, cookies []*http.Cookie, body map[string]interface{}) {
	t.Helper()
	w := env.doJSON(t, http.MethodPost, "/api/jobs", body, cookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCreateJobValidation(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.verifiedUser(t, "alice", "alice@example.com")

	w := env.doJSON(t, http.MethodPost, "/api/jobs", map[string]interface{}{
		"company": "Acme",
	}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code, "title is required")

	w = env.doJSON(t, http.MethodPost, "/api/jobs", map[string]interface{}{
		"title": "Engineer", "company": "Acme",
		"compensation_min": 100000, "compensation_max": 50000,
	}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code, "max below min")

	w = env.doJSON(t, http.MethodPost, "/api/jobs", map[string]interface{}{
		"title": "Engineer", "company": "Acme",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListJobsFiltersAndSort(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.verifiedUser(t, "alice", "alice@example.com")

	createJob(t, env, cookies, map[string]interface{}{
		"title": "Backend Engineer", "company": "Acme",
		"category": "engineering", "commitment": "full-time",
		"compensation_min": 90000, "compensation_max": 120000,
	})
	createJob(t, env, cookies, map[string]interface{}{
		"title": "Designer", "company": "Pixel",
		"category": "design", "commitment": "full-time",
		"compensation_min": 70000, "compensation_max": 90000,
	})
	createJob(t, env, cookies, map[string]interface{}{
		"title": "Support Contractor", "company": "Acme",
		"category": "support", "commitment": "contract",
		"compensation_min": 40000, "compensation_max": 60000,
	})

	w := env.doJSON(t, http.MethodGet, "/api/jobs?category=engineering", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	jobs := decode(t, w)["jobs"].([]interface{})
	require.Len(t, jobs, 1)
	assert.Equal(t, "Backend Engineer", jobs[0].(map[string]interface{})["title"])

	w = env.doJSON(t, http.MethodGet, "/api/jobs?commitment=full-time&minCompensation=100000", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	jobs = decode(t, w)["jobs"].([]interface{})
	require.Len(t, jobs, 1, "filters are ANDed")

	w = env.doJSON(t, http.MethodGet, "/api/jobs?sort=compensation", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	jobs = decode(t, w)["jobs"].([]interface{})
	require.Len(t, jobs, 3)
	assert.Equal(t, "Backend Engineer", jobs[0].(map[string]interface{})["title"], "highest compensation first")

	w = env.doJSON(t, http.MethodGet, "/api/jobs?sort=alphabetical", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
