// Package types 定义定价算法共享的基础类型。
package types

import "strings"

// OptionType 定义期权类型。
type OptionType string

const (
	OptionTypeCall OptionType = "CALL"
	OptionTypePut  OptionType = "PUT"
)

// ParseOptionType 解析大小写不敏感的期权类型字符串。
func ParseOptionType(s string) (OptionType, bool) {
	switch OptionType(strings.ToUpper(strings.TrimSpace(s))) {
	case OptionTypeCall:
		return OptionTypeCall, true
	case OptionTypePut:
		return OptionTypePut, true
	default:
		return "", false
	}
}

// Valid 判断期权类型是否受支持。
func (t OptionType) Valid() bool {
	return t == OptionTypeCall || t == OptionTypePut
}

// Sign 看涨为 +1，看跌为 -1。
func (t OptionType) Sign() float64 {
	if t == OptionTypePut {
		return -1
	}
	return 1
}
