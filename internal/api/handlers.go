package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/roach88/zwiggato/internal/failure"
	"github.com/roach88/zwiggato/internal/order"
)

// maxBodyBytes bounds a POST /orders body.
const maxBodyBytes = 1 << 20

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

func (h *handlers) health(c *gin.Context) {
	if h.deps.Health != nil {
		if err := h.deps.Health.Ping(c.Request.Context()); err != nil {
			h.logger.Error("health check failed", "error", err, "request_id", RequestIDFrom(c))
			c.PureJSON(http.StatusServiceUnavailable, errorBody{Error: "database unavailable"})
			return
		}
	}
	c.PureJSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) listRestaurants(c *gin.Context) {
	restaurants, err := h.deps.Catalog.ListRestaurants(c.Request.Context())
	if err != nil {
		writeError(c, failure.Storage("unable to fetch restaurants", err), h.logger)
		return
	}
	c.PureJSON(http.StatusOK, restaurants)
}

func (h *handlers) listMenu(c *gin.Context) {
	id, err := parseID(c, "id", "restaurant id must be an integer")
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	items, err := h.deps.Catalog.ListMenu(c.Request.Context(), id)
	if err != nil {
		writeError(c, failure.Storage("unable to fetch menu", err), h.logger)
		return
	}
	c.PureJSON(http.StatusOK, items)
}

func (h *handlers) listOrders(c *gin.Context) {
	orders, err := h.deps.Orders.List(c.Request.Context())
	if err != nil {
		writeError(c, err, h.logger)
		return
	}
	c.PureJSON(http.StatusOK, orders)
}

func (h *handlers) getOrder(c *gin.Context) {
	id, err := parseID(c, "id", "order id must be an integer")
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	o, err := h.deps.Orders.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, h.logger)
		return
	}
	c.PureJSON(http.StatusOK, o)
}

func (h *handlers) createOrder(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, failure.Validation("body", "request body too large"), h.logger)
			return
		}
		writeError(c, failure.Validation("body", "unable to read request body"), h.logger)
		return
	}

	sub, err := order.DecodeSubmission(body)
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	created, err := h.deps.Ledger.Submit(c.Request.Context(), sub)
	if err != nil {
		writeError(c, err, h.logger)
		return
	}
	c.PureJSON(http.StatusCreated, created)
}

func parseID(c *gin.Context, param, message string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		return 0, failure.Validation(param, message)
	}
	return id, nil
}
