package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/item-rental-backend/internal/auth"
	"github.com/nekogravitycat/item-rental-backend/internal/booking"
	"github.com/nekogravitycat/item-rental-backend/internal/pkg/clock"
	"github.com/nekogravitycat/item-rental-backend/internal/pkg/request"
	"github.com/nekogravitycat/item-rental-backend/internal/pkg/response"
)

type Handler struct {
	service booking.Service
	clock   clock.Clock
}

func NewHandler(service booking.Service, clk clock.Clock) *Handler {
	return &Handler{service: service, clock: clk}
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	if err := body.Validate(h.clock.Now()); err != nil {
		response.Error(c, err)
		return
	}

	b, err := h.service.Create(c.Request.Context(), auth.GetUserID(c), booking.CreateRequest{
		ItemID: body.ItemID,
		Start:  body.Start.Time,
		End:    body.End.Time,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) Decide(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}

	var query DecideRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	b, err := h.service.Decide(c.Request.Context(), auth.GetUserID(c), uri.ID, *query.Approved)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}

	b, err := h.service.Get(c.Request.Context(), auth.GetUserID(c), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) ListForBooker(c *gin.Context) {
	h.list(c, h.service.ListForBooker)
}

func (h *Handler) ListForOwner(c *gin.Context) {
	h.list(c, h.service.ListForOwner)
}

type listFunc func(ctx context.Context, actorID int64, state string, from, size int) ([]*booking.Booking, error)

func (h *Handler) list(c *gin.Context, fetch listFunc) {
	var query ListBookingsRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	bookings, err := fetch(c.Request.Context(), auth.GetUserID(c), query.State, query.From, query.Size)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingListResponse(bookings))
}
