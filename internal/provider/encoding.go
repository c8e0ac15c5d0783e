package provider

import (
	"unicode/utf8"

	"github.com/axgle/mahonia"
)

var gbk = mahonia.NewDecoder("gbk")

// DecodeGBK converts a GBK body to UTF-8.
// Bodies that are already valid UTF-8 are returned unchanged.
func DecodeGBK(body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}
	return gbk.ConvertString(string(body))
}
