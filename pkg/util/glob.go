package util

import "strings"

// 提供 Redis glob 模式的辅助函数。
// 语法（与 SCAN MATCH 一致）：
//   - *      任意字符串
//   - ?      任意单个字符
//   - [...]  字符集合
//   - \x     转义，x 按字面匹配

// IsGlob 判断模式中是否包含未转义的通配符
func IsGlob(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			i++
		case '*', '?', '[':
			return true
		}
	}
	return false
}

// Unescape 去掉转义符，得到字面 key 名
func Unescape(pattern string) string {
	if !strings.Contains(pattern, `\`) {
		return pattern
	}
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '\\' && i+1 < len(pattern) {
			i++
		}
		b.WriteByte(pattern[i])
	}
	return b.String()
}

// Namespace 返回 key 在最后一个分隔符之前的前缀，没有分隔符时返回空字符串
func Namespace(key, delimiter string) string {
	if delimiter == "" {
		return ""
	}
	idx := strings.LastIndex(key, delimiter)
	if idx <= 0 {
		return ""
	}
	return key[:idx]
}
