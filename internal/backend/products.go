package backend

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type ProductHandler struct {
	DB *gorm.DB
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	var items []Product
	if err := h.DB.Order("name ASC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list products")
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id := c.Param("id")

	var product Product
	if err := h.DB.Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "lookup failed")
	}
	return c.JSON(http.StatusOK, product)
}
