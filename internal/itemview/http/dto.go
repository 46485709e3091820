package http

import (
	"github.com/nekogravitycat/item-rental-backend/internal/comment"
	"github.com/nekogravitycat/item-rental-backend/internal/itemview"
	"github.com/nekogravitycat/item-rental-backend/internal/pkg/localtime"
)

type CommentBody struct {
	Text string `json:"text" binding:"required"`
}

type CommentResponse struct {
	ID         int64              `json:"id"`
	Text       string             `json:"text"`
	AuthorName string             `json:"authorName"`
	Created    localtime.DateTime `json:"created"`
}

func NewCommentResponse(c *comment.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		Text:       c.Text,
		AuthorName: c.AuthorName,
		Created:    localtime.From(c.CreatedAt),
	}
}

type BookingRefResponse struct {
	ID       int64 `json:"id"`
	BookerID int64 `json:"bookerId"`
}

type ItemDetailResponse struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Available   bool                `json:"available"`
	LastBooking *BookingRefResponse `json:"lastBooking"`
	NextBooking *BookingRefResponse `json:"nextBooking"`
	Comments    []CommentResponse   `json:"comments"`
}

func NewItemDetailResponse(d *itemview.Detail) ItemDetailResponse {
	resp := ItemDetailResponse{
		ID:          d.Item.ID,
		Name:        d.Item.Name,
		Description: d.Item.Description,
		Available:   d.Item.Available,
		LastBooking: refResponse(d.LastBooking),
		NextBooking: refResponse(d.NextBooking),
		Comments:    make([]CommentResponse, 0, len(d.Comments)),
	}
	for _, c := range d.Comments {
		resp.Comments = append(resp.Comments, NewCommentResponse(c))
	}
	return resp
}

func refResponse(ref *itemview.BookingRef) *BookingRefResponse {
	if ref == nil {
		return nil
	}
	return &BookingRefResponse{ID: ref.ID, BookerID: ref.BookerID}
}
