package serp

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

const DefaultCountry = "us"

// NormalizeCountry 转为小写的gl参数.空值返回us,三位字母代码转换为两位.
// 无法识别的代码仍然原样返回(小写),同时返回错误,由调用方决定是否继续
func NormalizeCountry(code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || code == "nan" {
		return DefaultCountry, nil
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		return code, fmt.Errorf("未知的国家代码 %q: %w", code, err)
	}
	if len(code) == 3 {
		return strings.ToLower(region.String()), nil
	}
	return code, nil
}
