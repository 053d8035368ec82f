package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/factory_backend/utils"
)

// A request that never resolved to a user must not reach a mutating handler:
// SessionMiddleware passes tokenless requests through, so without this gate
// mutations would run attributed to the System actor.
func TestRequireSessionRejectsAnonymousRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(SessionMiddleware())
	handlerRan := false
	r.POST("/mutate", RequireSession(), func(c *gin.Context) {
		handlerRan = true
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mutate", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous request: got %d want 401", w.Code)
	}
	if handlerRan {
		t.Fatal("handler ran for an anonymous request")
	}
}

func TestRequireSessionPassesAuthenticatedRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	// Stand-in for SessionMiddleware having resolved a user.
	r.Use(func(c *gin.Context) {
		ctx := utils.SetUserIdInContext(c.Request.Context(), 42)
		ctx = utils.SetUserNameInContext(ctx, "Operator")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.POST("/mutate", RequireSession(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mutate", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("authenticated request: got %d want 204", w.Code)
	}
}
