package helper

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	beegocontext "github.com/beego/beego/v2/server/web/context"
)

// IsJSONContentType 判断是否为 JSON 请求
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.Contains(ct, "json")
}

// 默认输入保护参数
const (
	defaultJSONMaxBytes int64         = 1 << 20 // 1MB
	defaultParseTimeout time.Duration = 1 * time.Second
)

type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (dr *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(dr.deadline) {
		return 0, fmt.Errorf("read timeout")
	}
	return dr.r.Read(p)
}

// jsonBodyReader 在 JSON 分支下为请求体增加大小限制与解析超时保护
func jsonBodyReader(ctx *beegocontext.Context) io.Reader {
	lr := io.LimitReader(ctx.Request.Body, defaultJSONMaxBytes)
	return &deadlineReader{r: lr, deadline: time.Now().Add(defaultParseTimeout)}
}

// GetTraceID 统一提取 trace_id：优先从中间件注入的数据取，其次从常见请求头降级
func GetTraceID(ctx *beegocontext.Context) string {
	if v := ctx.Input.GetData("trace_id"); v != nil {
		return fmt.Sprint(v)
	}
	if h := strings.TrimSpace(ctx.Input.Header("X-Trace-ID")); h != "" {
		return h
	}
	if h := strings.TrimSpace(ctx.Input.Header("Trace-Id")); h != "" {
		return h
	}
	return ""
}

// parseByContentType 按 Content-Type 选择解析函数，减少重复 if/else 分支
func parseByContentType[T any](ctx *beegocontext.Context,
	jsonParser func(io.Reader) (T, bool, string),
	formParser func(*beegocontext.Context) (T, bool, string),
) (T, bool, string) {
	ct := ctx.Input.Header("Content-Type")
	if IsJSONContentType(ct) {
		return jsonParser(jsonBodyReader(ctx))
	}
	return formParser(ctx)
}

// -------- Spin helpers --------

// SpinParsed 为解析后的转轮入参（与控制器/服务层解耦）
// BetAmount 单位为分
type SpinParsed struct {
	BetAmount      int64  `json:"bet_amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

// ParseSpinFromJSON 解析 JSON 到 SpinParsed。失败返回 false 与错误消息。
func ParseSpinFromJSON(r io.Reader) (SpinParsed, bool, string) {
	var out SpinParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return SpinParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

// ParseSpinFromForm 从表单读取字段并做强校验，返回 SpinParsed。失败返回 false 与可读错误信息。
func ParseSpinFromForm(ctx *beegocontext.Context) (SpinParsed, bool, string) {
	var out SpinParsed

	amtStr := strings.TrimSpace(ctx.Input.Query("bet_amount"))
	if amtStr == "" {
		return SpinParsed{}, false, "bet_amount required"
	}
	amt, err := strconv.ParseInt(amtStr, 10, 64)
	if err != nil {
		return SpinParsed{}, false, "bet_amount must be integer cents"
	}
	out.BetAmount = amt

	out.IdempotencyKey = strings.TrimSpace(ctx.Input.Query("idempotency_key"))
	if out.IdempotencyKey == "" {
		return SpinParsed{}, false, "idempotency_key required"
	}

	return out, true, ""
}

// ValidateSpin 对通用字段做二次校验（适用于 JSON 与 FORM）。失败返回 false 与错误消息。
// 金额上下限由服务层按动态配置判定，这里只挡住明显非法的输入
func ValidateSpin(in *SpinParsed) (bool, string) {
	if in.BetAmount <= 0 {
		return false, "bet_amount must be positive integer cents"
	}
	if strings.TrimSpace(in.IdempotencyKey) == "" {
		return false, "idempotency_key required"
	}
	// 额外长度保护，避免异常超长输入
	if len(in.IdempotencyKey) > 64 {
		return false, "invalid request"
	}
	return true, ""
}

// ParseAndValidateSpin 按 Content-Type 自动解析并做统一校验
func ParseAndValidateSpin(ctx *beegocontext.Context) (SpinParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseSpinFromJSON, ParseSpinFromForm)
	if !ok {
		return SpinParsed{}, false, msg
	}
	if ok, msg := ValidateSpin(&out); !ok {
		return SpinParsed{}, false, msg
	}
	return out, true, ""
}

// -------- CreateAccount helpers --------

// CreateAccountParsed 为解析后的开户入参
// OpeningBalance 单位为分
type CreateAccountParsed struct {
	AccountID      string `json:"account_id"`
	DisplayName    string `json:"display_name"`
	OpeningBalance int64  `json:"opening_balance"`
	Currency       string `json:"currency"`
}

func ParseCreateAccountFromJSON(r io.Reader) (CreateAccountParsed, bool, string) {
	var out CreateAccountParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return CreateAccountParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseCreateAccountFromForm(ctx *beegocontext.Context) (CreateAccountParsed, bool, string) {
	var out CreateAccountParsed
	out.AccountID = strings.TrimSpace(ctx.Input.Query("account_id"))
	out.DisplayName = strings.TrimSpace(ctx.Input.Query("display_name"))
	out.Currency = strings.TrimSpace(ctx.Input.Query("currency"))
	if ob := strings.TrimSpace(ctx.Input.Query("opening_balance")); ob != "" {
		v, err := strconv.ParseInt(ob, 10, 64)
		if err != nil {
			return CreateAccountParsed{}, false, "opening_balance must be integer cents"
		}
		out.OpeningBalance = v
	}
	return out, true, ""
}

func ValidateCreateAccount(in *CreateAccountParsed) (bool, string) {
	if strings.TrimSpace(in.AccountID) == "" {
		return false, "account_id required"
	}
	if len(in.AccountID) > 64 || len(in.DisplayName) > 64 || len(in.Currency) > 8 {
		return false, "invalid request"
	}
	if in.OpeningBalance < 0 {
		return false, "opening_balance must not be negative"
	}
	return true, ""
}

// ParseAndValidateCreateAccount 按 Content-Type 自动解析并校验
func ParseAndValidateCreateAccount(ctx *beegocontext.Context) (CreateAccountParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseCreateAccountFromJSON, ParseCreateAccountFromForm)
	if !ok {
		return CreateAccountParsed{}, false, msg
	}
	if ok, msg := ValidateCreateAccount(&out); !ok {
		return CreateAccountParsed{}, false, msg
	}
	return out, true, ""
}
