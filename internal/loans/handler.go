package loans

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"bookhub/internal/auth"
	"bookhub/internal/catalog"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

// RegisterRoutes expects rg to sit behind auth.AuthMiddleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/loans", h.list)
	rg.POST("/loans", h.borrow)
	rg.DELETE("/loans/:isbn", h.giveBack)
}

type borrowReq struct {
	ISBN string `json:"isbn"`
}

func (h *Handler) borrow(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req borrowReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(req.ISBN)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isbn required"})
		return
	}

	loan, err := h.Service.Borrow(c.Request.Context(), claims.UserID, code)
	switch {
	case errors.Is(err, ErrNotInCatalog):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "borrow failed"})
		return
	}

	c.JSON(http.StatusCreated, loan)
}

func (h *Handler) giveBack(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	code := strings.TrimSpace(c.Param("isbn"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isbn required"})
		return
	}

	book, err := h.Service.Return(c.Request.Context(), claims.UserID, code)
	switch {
	case errors.Is(err, ErrNotOnLoan):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	case errors.Is(err, catalog.ErrDuplicateISBN):
		c.JSON(http.StatusConflict, gin.H{"error": "isbn already in catalog"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "return failed"})
		return
	}

	c.JSON(http.StatusOK, book)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Service.List(c.Request.Context(), claims.UserID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
