package entity

// Query 输入文件中的一行: 关键词 + 国家代码
type Query struct {
	// Row 源文件中的行号(从0开始, 不含表头)
	Row     int    `json:"row"`
	Keyword string `json:"keyword"`
	Country string `json:"country"`
}
