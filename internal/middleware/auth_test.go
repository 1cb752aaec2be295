package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/chordsheet-api/internal/models"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func finder(users ...models.User) UserFinder {
	return func(id uint) (*models.User, error) {
		for i := range users {
			if users[i].ID == id {
				return &users[i], nil
			}
		}
		return nil, errors.New("record not found")
	}
}

func protectedRouter(find UserFinder) *gin.Engine {
	r := gin.New()
	r.GET("/me", JWTAuthWith(find, testSecret), func(c *gin.Context) {
		id, _ := GetCurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "admin": IsAdmin(c)})
	})
	r.GET("/admin", JWTAuthWith(find, testSecret), AdminRequired(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestTokens(t *testing.T) {
	user := &models.User{ID: 3, Email: "a@b.c"}
	access, refresh, err := IssueTokenPair(testSecret, user)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, access, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.UserID)
	assert.Equal(t, "a@b.c", claims.Email)

	_, err = ParseToken(testSecret, refresh, TokenAccess)
	assert.ErrorIs(t, err, ErrWrongTokenKind)

	_, err = ParseToken("other", access, TokenAccess)
	assert.Error(t, err)

	expired, err := IssueToken(testSecret, user, TokenAccess, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(testSecret, expired, TokenAccess)
	assert.Error(t, err)
}

func TestJWTAuth(t *testing.T) {
	active := models.User{ID: 1, Email: "u@x.y", IsActive: true, Role: models.RoleUser}
	disabled := models.User{ID: 2, Email: "d@x.y", IsActive: false}
	admin := models.User{ID: 4, Email: "root@x.y", IsActive: true, Role: models.RoleAdmin}
	router := protectedRouter(finder(active, disabled, admin))

	token := func(u models.User, kind string) string {
		s, err := IssueToken(testSecret, &u, kind, time.Hour)
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name   string
		path   string
		header string
		cookie string
		want   int
	}{
		{name: "missing token", path: "/me", want: http.StatusUnauthorized},
		{name: "bearer", path: "/me", header: "Bearer " + token(active, TokenAccess), want: http.StatusOK},
		{name: "cookie", path: "/me", cookie: token(active, TokenAccess), want: http.StatusOK},
		{name: "refresh token rejected", path: "/me", header: "Bearer " + token(active, TokenRefresh), want: http.StatusUnauthorized},
		{name: "garbage", path: "/me", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "unknown user", path: "/me", header: "Bearer " + token(models.User{ID: 99}, TokenAccess), want: http.StatusUnauthorized},
		{name: "disabled", path: "/me", header: "Bearer " + token(disabled, TokenAccess), want: http.StatusForbidden},
		{name: "admin route as user", path: "/admin", header: "Bearer " + token(active, TokenAccess), want: http.StatusForbidden},
		{name: "admin route as admin", path: "/admin", header: "Bearer " + token(admin, TokenAccess), want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
