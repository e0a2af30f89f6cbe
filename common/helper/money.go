package helper

import (
	decimal "github.com/shopspring/decimal"
)

// 余额与金额在库中统一按最小货币单位（分）的整数存储，
// 仅在展示层转换为带小数的字符串。

// FormatCents 将分转换为展示金额字符串（两位小数，去掉多余尾零）
// 例：149000 -> "1490"，100050 -> "1000.5"
func FormatCents(cents int64) string {
	d := decimal.New(cents, -2)
	return TrimDecimal(d)
}

// TrimDecimal 格式化金额：保留两位小数后去掉尾部多余的0与小数点
func TrimDecimal(d decimal.Decimal) string {
	s := d.Round(2).String()
	return trimZero(s)
}

func trimZero(s string) string {
	hasDot := false
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			hasDot = true
			break
		}
	}
	if !hasDot {
		return s
	}
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}
