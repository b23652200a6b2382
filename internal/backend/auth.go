package backend

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
}

// sessionResponse is the canonical success body of login and register:
// the clients reject anything that is not user-plus-token.
type sessionResponse struct {
	User  Account `json:"user"`
	Token string  `json:"token"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	var existing Account
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return echo.NewHTTPError(http.StatusConflict, "account already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "lookup failed")
	}

	pwHash, err := hashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not hash password")
	}

	name := req.Name
	if name == "" {
		name = req.Email
	}
	acc := Account{
		Email:        req.Email,
		Name:         name,
		PasswordHash: pwHash,
		Role:         "customer",
	}
	if err := h.DB.Create(&acc).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create account")
	}

	token, err := h.signToken(acc)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create token")
	}
	return c.JSON(http.StatusOK, sessionResponse{User: acc, Token: token})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var acc Account
	if err := h.DB.Where("email = ?", req.Email).First(&acc).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if !checkPassword(acc.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if req.Role != "" && req.Role != acc.Role {
		return echo.NewHTTPError(http.StatusForbidden, "role mismatch")
	}

	token, err := h.signToken(acc)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create token")
	}
	return c.JSON(http.StatusOK, sessionResponse{User: acc, Token: token})
}

func (h *AuthHandler) Verify(c echo.Context) error {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	tokenStr, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || tokenStr == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return h.JWTSecret, nil
	})
	if err != nil || !tkn.Valid {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	var acc Account
	if err := h.DB.Where("id = ?", sub).First(&acc).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unknown account")
	}
	return c.JSON(http.StatusOK, map[string]any{"user": acc})
}

func (h *AuthHandler) signToken(acc Account) (string, error) {
	claims := jwt.MapClaims{
		"sub":   acc.ID,
		"email": acc.Email,
		"role":  acc.Role,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.JWTSecret)
}
