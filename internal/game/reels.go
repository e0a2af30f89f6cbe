package game

import (
	"crypto/rand"
	"math/big"
)

// DrawFunc 抽取函数签名，便于测试注入固定结果
type DrawFunc func(reelCount int, symbols []string) []string

// Draw 抽取一次转轴结果：每个轴独立、均匀地从符号集中取一个符号
// 公平性要求使用密码学安全随机源，不可替换为伪随机
// 无共享状态，可被任意数量的并发结算调用
func Draw(reelCount int, symbols []string) []string {
	out := make([]string, reelCount)
	n := big.NewInt(int64(len(symbols)))
	for i := 0; i < reelCount; i++ {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			// crypto/rand 读取失败说明系统熵源异常，无法给出公平结果
			panic("game: crypto rand unavailable: " + err.Error())
		}
		out[i] = symbols[idx.Int64()]
	}
	return out
}
