package middleware

import (
	"fmt"
	"net/url"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	adapter "github.com/gwatts/gin-adapter"
)

// StaffIDKey is the gin context key carrying the acting staff subject.
// Tests can set it directly to bypass token validation.
const StaffIDKey = "staff_auth0_id"

// StaffAuth validates the bearer token against the Auth0 tenant. Every
// mutating rental call runs behind this: transitions must be attributable
// to the staff member who triggered them.
func StaffAuth(domain, audience string) (gin.HandlerFunc, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid auth0 domain: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up jwt validator: %w", err)
	}

	mw := jwtmiddleware.New(jwtValidator.ValidateToken)
	return adapter.Wrap(mw.CheckJWT), nil
}

// GetStaffAuth0ID extracts the acting staff subject. It prefers an
// explicitly set context key (tests), then falls back to the validated JWT
// claims stored by the middleware.
func GetStaffAuth0ID(c *gin.Context) (string, bool) {
	if v, exists := c.Get(StaffIDKey); exists {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}

	claims, ok := c.Request.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !ok {
		return "", false
	}

	return claims.RegisteredClaims.Subject, true
}
