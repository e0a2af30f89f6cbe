package game

import (
	"slots-server/internal/config"
)

// Rules 玩法规则：全部来自配置，引擎不内置任何固定赔率
// 金额单位为分；Paytable 的值为三连相同符号的倍数
type Rules struct {
	GameType        string
	Symbols         []string
	ReelCount       int
	Paytable        map[string]int64
	MinorMultiplier int64 // 三转两同的小奖倍数（0 表示关闭该玩法）
	MinBet          int64
	MaxBet          int64
	BigWinMultiple  int64 // 派彩 >= 投注×该倍数 时触发全员大奖广播
	Currency        string
}

// DefaultRules 默认规则（圣帕特里克主题三轴机）
func DefaultRules() Rules {
	return Rules{
		GameType:  "SLOTS_3_REEL",
		Symbols:   []string{"🍒", "🍋", "🍇", "💎", "🍀"},
		ReelCount: 3,
		Paytable: map[string]int64{
			"🍀": 50, // 三叶草为头奖
			"💎": 20,
			"🍇": 10,
			"🍋": 5,
			"🍒": 2,
		},
		MinorMultiplier: 2,
		MinBet:          10,
		MaxBet:          100000,
		BigWinMultiple:  10,
		Currency:        "EUR",
	}
}

// RulesFromConfig 从配置构建规则，缺省字段回落到默认值
func RulesFromConfig(cfg *config.Config) Rules {
	r := DefaultRules()
	if cfg == nil {
		return r
	}
	g := cfg.Game
	if g.GameType != "" {
		r.GameType = g.GameType
	}
	if len(g.Symbols) > 0 {
		r.Symbols = g.Symbols
	}
	if g.ReelCount > 0 {
		r.ReelCount = g.ReelCount
	}
	if len(g.Paytable) > 0 {
		r.Paytable = g.Paytable
	}
	if g.MinorMultiplier >= 0 {
		r.MinorMultiplier = g.MinorMultiplier
	}
	if g.MinBet > 0 {
		r.MinBet = g.MinBet
	}
	if g.MaxBet > 0 {
		r.MaxBet = g.MaxBet
	}
	if g.BigWinMultiple > 0 {
		r.BigWinMultiple = g.BigWinMultiple
	}
	if g.Currency != "" {
		r.Currency = g.Currency
	}
	return r
}
