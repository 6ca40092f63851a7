package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-accounts/internal/infra/security"
)

// jwksCacheControl lets consumers cache the key set for an hour; key
// rotation tolerates that window because old kids stay published.
const jwksCacheControl = "public, max-age=3600"

// JWKSHandler serves the public keys other services need to verify access
// tokens without calling back into this service.
type JWKSHandler struct {
	manager *security.JWTManager
}

// NewJWKSHandler constructs the handler.
func NewJWKSHandler(manager *security.JWTManager) *JWKSHandler {
	return &JWKSHandler{manager: manager}
}

// Keys godoc
// @Summary Retrieve JSON Web Key Set
// @Description Exposes the public keys other services use to verify access-token signatures offline.
// @Tags Public
// @Produce json
// @Success 200 {object} JWKSResponse
// @Failure 503 {object} ErrorResponse
// @Router /.well-known/jwks.json [get]
func (h *JWKSHandler) Keys(c *gin.Context) {
	if h == nil || h.manager == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "jwks not available"))
		return
	}

	doc := h.manager.JWKS()
	resp := JWKSResponse{Keys: make([]JWKSKey, 0, len(doc.Keys))}
	for _, key := range doc.Keys {
		resp.Keys = append(resp.Keys, JWKSKey{
			Kty: key.Kty,
			Use: key.Use,
			Alg: key.Alg,
			Kid: key.Kid,
			N:   key.N,
			E:   key.E,
		})
	}

	c.Header("Cache-Control", jwksCacheControl)
	c.JSON(http.StatusOK, resp)
}
