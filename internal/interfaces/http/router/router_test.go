package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIMiddleware(func(c *gin.Context) {
		c.Header("X-API", "yes")
		c.Next()
	}))

	group := NewDomainGroup("orders", "/orders")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.Register(group).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/orders/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "yes", w.Header().Get("X-API"))
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("inventory", "/inventory")
		assert.Equal(t, "inventory", g.Name())
		assert.Equal(t, "/inventory", g.Prefix())
	})

	t.Run("registers every method", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("items", "/items")
		g.GET("/:id", func(c *gin.Context) { c.String(http.StatusOK, "get") }).
			POST("", func(c *gin.Context) { c.String(http.StatusCreated, "post") }).
			PUT("/:id", func(c *gin.Context) { c.String(http.StatusOK, "put") }).
			DELETE("/:id", func(c *gin.Context) { c.String(http.StatusOK, "delete") })
		g.RegisterRoutes(engine.Group("/api/v1"))

		tests := []struct {
			method string
			path   string
			want   int
		}{
			{http.MethodGet, "/api/v1/items/1", http.StatusOK},
			{http.MethodPost, "/api/v1/items", http.StatusCreated},
			{http.MethodPut, "/api/v1/items/1", http.StatusOK},
			{http.MethodDelete, "/api/v1/items/1", http.StatusOK},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.want, serve(engine, tt.method, tt.path).Code, "%s %s", tt.method, tt.path)
		}
	})

	t.Run("group middleware reaches subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("protected", "").Use(func(c *gin.Context) {
			c.Header("X-Group", "applied")
			c.Next()
		})
		g.Group("products", "/products").GET("", func(c *gin.Context) {
			c.String(http.StatusOK, "products")
		})
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/products")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "applied", w.Header().Get("X-Group"))
	})
}
