package collector

// RequestOptions 每个请求附加的请求头
type RequestOptions struct {
	UserAgent string
	Headers   map[string]string
}
