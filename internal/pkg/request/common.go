package request

// ByIDRequest is a common struct for endpoints that require a numeric ID path parameter.
type ByIDRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// ListParams carries offset pagination: From is an item offset, Size the window length.
type ListParams struct {
	From int `form:"from,default=0" binding:"min=0"`
	Size int `form:"size,default=10" binding:"min=1,max=100"`
}
