package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Conceptual-Machines/chordsheet-api/internal/config"
	"github.com/Conceptual-Machines/chordsheet-api/internal/middleware"
	"github.com/Conceptual-Machines/chordsheet-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	"gorm.io/gorm"
)

type OAuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewOAuthHandler registers the providers that have credentials configured.
func NewOAuthHandler(db *gorm.DB, cfg *config.Config) *OAuthHandler {
	store := sessions.NewCookieStore([]byte(cfg.JWTSecret))
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.Environment == "production"
	gothic.Store = store

	var providers []goth.Provider
	if cfg.GoogleClientID != "" {
		providers = append(providers, google.New(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.BaseURL+"/api/auth/google/callback",
			"email", "profile",
		))
	}
	if cfg.GitHubClientID != "" {
		providers = append(providers, github.New(
			cfg.GitHubClientID,
			cfg.GitHubClientSecret,
			cfg.BaseURL+"/api/auth/github/callback",
			"user:email",
		))
	}
	goth.UseProviders(providers...)

	return &OAuthHandler{db: db, cfg: cfg}
}

// BeginAuth redirects user to OAuth provider login
func (h *OAuthHandler) BeginAuth(c *gin.Context) {
	if !h.prepare(c) {
		return
	}
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// Callback handles OAuth provider callback
func (h *OAuthHandler) Callback(c *gin.Context) {
	if !h.prepare(c) {
		return
	}

	gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "OAuth authentication failed"})
		return
	}

	user, isNew, err := h.findOrCreateOAuthUser(&gothUser)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		return
	}

	accessToken, refreshToken, err := middleware.IssueTokenPair(h.cfg.JWTSecret, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	setAuthCookies(c, accessToken, refreshToken)

	q := url.Values{}
	q.Set("access_token", accessToken)
	q.Set("refresh_token", refreshToken)
	q.Set("is_new", fmt.Sprint(isNew))
	c.Redirect(http.StatusTemporaryRedirect, h.cfg.BaseURL+"/auth/callback?"+q.Encode())
}

// prepare validates the provider and hands it to gothic through the query.
func (h *OAuthHandler) prepare(c *gin.Context) bool {
	provider := c.Param("provider")
	if provider != providerGoogle && provider != providerGitHub {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported provider"})
		return false
	}
	if _, err := goth.GetProvider(provider); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Provider not configured"})
		return false
	}

	q := c.Request.URL.Query()
	q.Set("provider", provider)
	c.Request.URL.RawQuery = q.Encode()
	return true
}

// findOrCreateOAuthUser finds an existing OAuth user or creates a new one
func (h *OAuthHandler) findOrCreateOAuthUser(gothUser *goth.User) (*models.User, bool, error) {
	var link models.OAuthProvider
	err := h.db.Where("provider = ? AND provider_user_id = ?", gothUser.Provider, gothUser.UserID).
		Preload("User").
		First(&link).Error
	if err == nil {
		return &link.User, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return h.createOAuthUser(gothUser)
}

// createOAuthUser links the provider to an existing account with the same
// email, or creates a password-less account.
func (h *OAuthHandler) createOAuthUser(gothUser *goth.User) (*models.User, bool, error) {
	var user models.User
	isNew := false

	err := h.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", gothUser.Email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{
				Email:    gothUser.Email,
				Name:     gothUser.Name,
				Role:     models.RoleUser,
				IsActive: true,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			isNew = true
		case err != nil:
			return err
		}

		return tx.Create(&models.OAuthProvider{
			UserID:         user.ID,
			Provider:       gothUser.Provider,
			ProviderUserID: gothUser.UserID,
		}).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &user, isNew, nil
}
