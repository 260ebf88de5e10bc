package dto

// CreateBookRequest HTTP单本创建请求
// 字段规则与批量导入相同，详细校验在领域层(book.ValidateInput)完成
type CreateBookRequest struct {
	Title         string   `json:"title" binding:"max=500" example:"Dune"`
	Author        string   `json:"author" binding:"max=500" example:"Frank Herbert"`
	Genres        []string `json:"genres" example:"Science Fiction"`
	PublishedDate string   `json:"published_date" example:"1965-08-01"`
	Rating        int      `json:"rating" example:"5"`
	Edition       string   `json:"edition" example:"1st"`
	ISBN          string   `json:"isbn" example:"9780441013593"`
}

// ListBooksRequest HTTP图书列表请求
type ListBooksRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
	Keyword  string `form:"keyword" binding:"omitempty,max=100" example:"dune"`
	Genre    string `form:"genre" binding:"omitempty,max=50" example:"Science Fiction"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=created_at_desc title_asc rating_desc" example:"created_at_desc"`
}
