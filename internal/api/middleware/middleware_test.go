package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recorded struct {
	endpoint string
	status   int
}

type fakeRecorder struct {
	calls []recorded
}

func (f *fakeRecorder) RecordAPIRequest(endpoint string, statusCode int, _ time.Duration) {
	f.calls = append(f.calls, recorded{endpoint, statusCode})
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestTracking(t *testing.T) {
	rec := &fakeRecorder{}
	r := gin.New()
	r.Use(RequestTracking(rec))
	r.GET("/items/:id", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/items/7", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get("X-Request-ID")
	assert.Len(t, id, 36)
	assert.Equal(t, id, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/items/8", nil)
	req.Header.Set("X-Request-ID", "caller-id")
	w = serve(r, req)
	assert.Equal(t, "caller-id", w.Header().Get("X-Request-ID"))

	serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Len(t, rec.calls, 3)
	assert.Equal(t, recorded{"/items/:id", http.StatusOK}, rec.calls[0])
	assert.Equal(t, recorded{"unmatched", http.StatusNotFound}, rec.calls[2])
}

func TestRecoverWithSentry(t *testing.T) {
	r := gin.New()
	r.Use(RecoverWithSentry())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}

func TestAuthModes(t *testing.T) {
	handler := func(c *gin.Context) {
		id, _ := GetUserIDFromGateway(c)
		c.JSON(http.StatusOK, gin.H{"id": CurrentUserID(c), "str": id})
	}

	r := gin.New()
	r.GET("/none", NoAuth(), handler)
	r.GET("/gateway", GatewayAuth(), handler)
	r.GET("/optional", OptionalGatewayAuth(), handler)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/none", nil))
	assert.JSONEq(t, `{"id":0,"str":"anonymous"}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/gateway", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/gateway", nil)
	req.Header.Set("X-User-ID", "42")
	w = serve(r, req)
	assert.JSONEq(t, `{"id":42,"str":"42"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/gateway", nil)
	req.Header.Set("X-User-ID", "usr_abc")
	w = serve(r, req)
	assert.JSONEq(t, `{"id":0,"str":"usr_abc"}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/optional", nil))
	assert.JSONEq(t, `{"id":0,"str":""}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := serve(r, httptest.NewRequest(http.MethodOptions, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/x", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := serve(r, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("short")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("much longer than eight")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
