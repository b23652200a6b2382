package backend

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Deps struct {
	Auth     *AuthHandler
	Products *ProductHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/auth/login", d.Auth.Login)
	e.POST("/auth/register", d.Auth.Register)
	e.GET("/auth/verify", d.Auth.Verify)

	e.GET("/products", d.Products.GetProducts)
	e.GET("/products/:id", d.Products.GetProduct)
}
