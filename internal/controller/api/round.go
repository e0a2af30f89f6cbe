package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	infrds "slots-server/internal/infra/redis"
	"slots-server/internal/model"

	beego "github.com/beego/beego/v2/server/web"
	goredis "github.com/redis/go-redis/v9"
)

// RoundController 提供查询单局结算结果的接口（便于调试/对账回放）
// GET /api/round/:round_id
// 归属校验走数据库；结果载荷先读 Redis 缓存，未命中则构建并回填

type RoundController struct {
	beego.Controller
}

func (c *RoundController) GetRound() {
	roundID := c.Ctx.Input.Param(":round_id")
	if roundID == "" {
		c.CustomAbort(400, "round_id is required")
		return
	}

	// 归属账户由认证过滤器注入；只有局的归属者可以查询
	requester := ""
	if v := c.Ctx.Input.GetData("account_id"); v != nil {
		requester, _ = v.(string)
	}
	if requester == "" {
		c.CustomAbort(401, "unauthorized")
		return
	}

	ctx := context.Background()

	round, err := dataSt.RoundByID(ctx, roundID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.CustomAbort(404, "round not found")
			return
		}
		c.CustomAbort(503, "db error")
		return
	}
	// 非归属者与不存在的局返回一致，避免探测局ID
	if round.AccountID != requester {
		c.CustomAbort(404, "round not found")
		return
	}

	var result map[string]any

	if r := infrds.Client(); r != nil {
		if bs, err := r.Get(ctx, infrds.RoundResultKey(roundID)).Bytes(); err == nil {
			_ = json.Unmarshal(bs, &result)
		} else if err != goredis.Nil {
			c.CustomAbort(503, "redis error")
			return
		}
	}

	ledger, err := dataSt.LedgerByRound(ctx, roundID)
	if err != nil {
		c.CustomAbort(503, "db error")
		return
	}

	if result == nil {
		result = roundResponse(round)
		if r := infrds.Client(); r != nil {
			if b, e := json.Marshal(result); e == nil {
				_ = r.Set(ctx, infrds.RoundResultKey(roundID), b, 2*time.Minute).Err()
			}
		}
	}
	// 兼容历史缓存：响应中不携带账户标识
	delete(result, "account_id")

	c.Data["json"] = map[string]any{
		"ok":     true,
		"result": result,
		"ledger": ledgerView(ledger),
	}
	_ = c.ServeJSON()
}

// roundResponse 构建对外的局视图；不携带账户标识
func roundResponse(round *model.GameRound) map[string]any {
	reels, _ := round.ReelSymbols()
	return map[string]any{
		"round_id":   round.RoundID,
		"game_type":  round.GameType,
		"bet_amount": round.BetAmount,
		"payout":     round.Payout,
		"reels":      reels,
		"created_at": round.CreatedAt,
	}
}

// ledgerView 构建一局账本的对账视图
func ledgerView(entries []model.WalletLedger) []map[string]any {
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"entry_type":     e.EntryType,
			"entry_type_str": e.EntryTypeStr,
			"amount":         e.Amount,
			"before_amount":  e.BeforeAmount,
			"after_amount":   e.AfterAmount,
			"created_at":     e.CreatedAt,
		})
	}
	return out
}
