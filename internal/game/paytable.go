package game

// 结果形态分类（指标与广播使用）
const (
	OutcomeTriple = "triple" // 三连相同
	OutcomeDouble = "double" // 三转两同（小奖）
	OutcomeNone   = "none"   // 未中奖
)

// Resolve 计算派彩金额（分）。纯函数：同样的输入必然得到同样的输出，
// 不做 I/O、不含随机性 —— 可审计性依赖这一点。
// 规则：
// 1. 全部符号相同 -> 派彩 = 投注 × paytable[符号]
// 2. 恰好两个相同（且未构成三连）-> 派彩 = 投注 × MinorMultiplier
// 3. 其他 -> 0
func (r Rules) Resolve(betAmount int64, outcome []string) int64 {
	switch r.Classify(outcome) {
	case OutcomeTriple:
		return betAmount * r.Paytable[outcome[0]]
	case OutcomeDouble:
		return betAmount * r.MinorMultiplier
	}
	return 0
}

// Classify 判断结果形态
// 两同判定对任意轴数生效：存在某符号出现次数 == 轴数-1 即视为 double
func (r Rules) Classify(outcome []string) string {
	if len(outcome) == 0 {
		return OutcomeNone
	}

	counts := make(map[string]int, len(outcome))
	for _, s := range outcome {
		counts[s]++
	}

	if counts[outcome[0]] == len(outcome) {
		if r.Paytable[outcome[0]] > 0 {
			return OutcomeTriple
		}
		// 符号不在赔付表内的三连不赔付
		return OutcomeNone
	}

	if r.MinorMultiplier > 0 && len(outcome) > 1 {
		for _, c := range counts {
			if c == len(outcome)-1 {
				return OutcomeDouble
			}
		}
	}

	return OutcomeNone
}
