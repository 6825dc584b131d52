// internal/server/tables_handler.go
package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kor4soft/teamsync/internal/server/tablestore"
)

// TablesHandler exposes the generic table surface the client SDK consumes.
type TablesHandler struct {
	store *tablestore.Store
}

func NewTablesHandler(store *tablestore.Store) *TablesHandler {
	return &TablesHandler{store: store}
}

// List handles GET /api/tables/:table
func (h *TablesHandler) List(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := h.store.Select(c.Request.Context(), c.Param("table"), q)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

// Count handles GET /api/tables/:table/count
func (h *TablesHandler) Count(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.store.Count(c.Request.Context(), c.Param("table"), q)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// Create handles POST /api/tables/:table
func (h *TablesHandler) Create(c *gin.Context) {
	var values tablestore.Row
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row, err := h.store.Insert(c.Request.Context(), c.Param("table"), values)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": row})
}

// Update handles PATCH /api/tables/:table/:id
func (h *TablesHandler) Update(c *gin.Context) {
	var values tablestore.Row
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row, err := h.store.Update(c.Request.Context(), c.Param("table"), c.Param("id"), values)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": row})
}

// Delete handles DELETE /api/tables/:table/:id
func (h *TablesHandler) Delete(c *gin.Context) {
	err := h.store.Delete(c.Request.Context(), c.Param("table"), c.Param("id"), GetUserID(c))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// parseQuery reads the filter dialect from the query string: col=v,
// col__neq=v, col__gt=v, col__contains=v, search=col:term, order, desc,
// limit.
func parseQuery(c *gin.Context) (tablestore.Query, error) {
	q := tablestore.Query{}

	for key, vals := range c.Request.URL.Query() {
		if len(vals) == 0 {
			continue
		}
		val := vals[0]

		switch key {
		case "order":
			q.OrderBy = val
		case "desc":
			q.Desc = val == "true"
		case "limit":
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 {
				return q, errors.New("limit must be a non-negative integer")
			}
			q.Limit = n
		case "search":
			col, term, ok := strings.Cut(val, ":")
			if !ok || col == "" {
				return q, errors.New("search must be column:term")
			}
			q.SearchColumn, q.SearchTerm = col, term
		default:
			col, op := key, tablestore.OpEq
			switch {
			case strings.HasSuffix(key, "__neq"):
				col, op = strings.TrimSuffix(key, "__neq"), tablestore.OpNeq
			case strings.HasSuffix(key, "__gt"):
				col, op = strings.TrimSuffix(key, "__gt"), tablestore.OpGt
			case strings.HasSuffix(key, "__contains"):
				col, op = strings.TrimSuffix(key, "__contains"), tablestore.OpContains
			}
			q.Conds = append(q.Conds, tablestore.Cond{Column: col, Op: op, Value: val})
		}
	}
	return q, nil
}

func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tablestore.ErrUnknownTable), errors.Is(err, tablestore.ErrUnknownColumn):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, tablestore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, tablestore.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	case errors.Is(err, tablestore.ErrVoteClosed),
		errors.Is(err, tablestore.ErrDoubleVote),
		errors.Is(err, tablestore.ErrVoteShrunk),
		errors.Is(err, tablestore.ErrBadTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
