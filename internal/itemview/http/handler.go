package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/item-rental-backend/internal/auth"
	"github.com/nekogravitycat/item-rental-backend/internal/comment"
	"github.com/nekogravitycat/item-rental-backend/internal/itemview"
	"github.com/nekogravitycat/item-rental-backend/internal/pkg/request"
	"github.com/nekogravitycat/item-rental-backend/internal/pkg/response"
)

type Handler struct {
	service        itemview.Service
	commentService comment.Service
}

func NewHandler(service itemview.Service, commentService comment.Service) *Handler {
	return &Handler{service: service, commentService: commentService}
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid item id", err)
		return
	}

	d, err := h.service.Get(c.Request.Context(), auth.GetUserID(c), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewItemDetailResponse(d))
}

func (h *Handler) PostComment(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid item id", err)
		return
	}

	var body CommentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	cm, err := h.commentService.Post(c.Request.Context(), auth.GetUserID(c), uri.ID, body.Text)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewCommentResponse(cm))
}
