package dto

// ImportForm 导入接口的表单字段(文件字段名为file)
// 未传的字段使用配置中的默认值
// duplicate_handling: skip | fail | allow(忽略大小写)
type ImportForm struct {
	DuplicateHandling string `form:"duplicate_handling" binding:"omitempty,max=10" example:"skip"`
	Enrich            *bool  `form:"enrich" example:"true"`
	BatchSize         int    `form:"batch_size" binding:"omitempty,min=1,max=100" example:"10"`
	BatchDelayMs      *int   `form:"batch_delay_ms" binding:"omitempty,min=0,max=60000" example:"500"`
}
