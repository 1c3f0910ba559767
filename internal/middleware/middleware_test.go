package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver map[string]uint

func (f fakeResolver) CurrentUserID(_ context.Context, sid string) (uint, error) {
	if sid == "broken" {
		return 0, errors.New("redis down")
	}
	return f[sid], nil
}

func newRouter(log *logrus.Logger, resolver SessionResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Sessions("qid", cookie.NewStore([]byte("test-secret")), sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}))
	r.Use(Logger(log))
	r.Use(LoadUser(resolver, log))

	r.POST("/bind/:sid", func(c *gin.Context) {
		if err := BindSession(c, c.Param("sid")); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.POST("/clear", func(c *gin.Context) {
		_ = ClearSession(c)
		c.Status(http.StatusNoContent)
	})
	r.GET("/private", AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": CurrentUserID(c)})
	})
	return r
}

func do(r http.Handler, method, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := newRouter(log, fakeResolver{"s1": 7})

	w := do(r, http.MethodGet, "/private", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/bind/s1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "qid", cookies[0].Name)

	w = do(r, http.MethodGet, "/private", cookies)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":7}`, w.Body.String())

	w = do(r, http.MethodPost, "/clear", cookies)
	require.Equal(t, http.StatusNoContent, w.Code)
	cleared := w.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.Equal(t, "qid", cleared[0].Name)
	assert.True(t, cleared[0].MaxAge < 0)
	assert.True(t, cleared[0].HttpOnly)
	assert.True(t, cleared[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cleared[0].SameSite)
	assert.Equal(t, "/", cleared[0].Path)
}

func TestLoadUserSurvivesStoreFailure(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := newRouter(log, fakeResolver{})

	w := do(r, http.MethodPost, "/bind/broken", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/private", w.Result().Cookies())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Message == "session lookup failed" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	r := gin.New()
	r.Use(Metrics(reg))
	r.GET("/ping/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	do(r, http.MethodGet, "/ping/1", nil)
	do(r, http.MethodGet, "/ping/2", nil)
	do(r, http.MethodGet, "/nowhere", nil)

	count, err := testutil.GatherAndCount(reg, "creddit_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per route and status")
}
