package catalog

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bookhub/pkg/models"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

// RegisterRoutes mounts read routes publicly and write routes behind protect.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, protect ...gin.HandlerFunc) {
	rg.GET("", h.search)        // GET /books?q=&field=
	rg.GET("/stats", h.stats)   // GET /books/stats
	rg.GET("/:isbn", h.getByID) // GET /books/:isbn

	w := rg.Group("", protect...)
	w.POST("", h.add)
	w.DELETE("/:isbn", h.remove)
}

func (h *Handler) search(c *gin.Context) {
	q := c.Query("q")

	field, err := ParseField(c.Query("field"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field must be one of: title, author, isbn"})
		return
	}

	var items []models.Book
	if strings.TrimSpace(q) == "" && field != FieldISBN {
		items = h.Service.Books()
	} else {
		items = h.Service.Search(q, field)
	}

	c.JSON(http.StatusOK, gin.H{
		"total": len(items),
		"field": field.String(),
		"items": items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	book, ok := h.Service.Lookup(c.Param("isbn"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, book)
}

type addReq struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ID     string `json:"id"` // empty or "new" generates one
}

func (h *Handler) add(c *gin.Context) {
	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	title := strings.TrimSpace(req.Title)
	author := strings.TrimSpace(req.Author)
	if title == "" || author == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and author required"})
		return
	}

	code := strings.TrimSpace(req.ID)
	if code == "" {
		code = models.GenerateCode
	}

	book, err := models.NewBookWithCode(title, author, code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid isbn"})
		return
	}

	if err := h.Service.Add(c.Request.Context(), book); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateISBN):
			c.JSON(http.StatusConflict, gin.H{"error": "isbn already in catalog"})
			return
		case errors.Is(err, ErrOnLoan):
			c.JSON(http.StatusConflict, gin.H{"error": "isbn is on loan"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "add failed"})
		return
	}

	c.JSON(http.StatusCreated, book)
}

func (h *Handler) remove(c *gin.Context) {
	if !h.Service.Remove(c.Request.Context(), c.Param("isbn")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) stats(c *gin.Context) {
	resp := gin.H{
		"size":       h.Service.Size(),
		"consistent": true,
	}
	if err := h.Service.Check(); err != nil {
		resp["consistent"] = false
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}
