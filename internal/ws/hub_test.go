package ws

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestBigWinMessageCarriesNoAccountID(t *testing.T) {
	// 大奖广播面向全部在线连接：只允许展示名与派彩金额外泄
	msg := bigWinMessage("Lucky Pat", "round-1", 5000)

	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	payload := string(b)

	if strings.Contains(payload, "account_id") {
		t.Fatalf("broadcast payload leaks account identifier: %s", payload)
	}

	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["type"] != "big_win" {
		t.Fatalf("type = %v, want big_win", got["type"])
	}
	if got["display_name"] != "Lucky Pat" {
		t.Fatalf("display_name = %v, want Lucky Pat", got["display_name"])
	}
	if got["payout"] != float64(5000) {
		t.Fatalf("payout = %v, want 5000", got["payout"])
	}
}
