package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"slots-server/internal/model"
)

// MemoryStore 是 Store 的内存实现，用于单测与本地联调
// 每个账户一把互斥锁，模拟 MySQL 行锁的串行化语义：
// 同一账户的结算互斥，不同账户并行
type MemoryStore struct {
	mapMu sync.Mutex
	muMap map[string]*sync.Mutex

	mu       sync.RWMutex
	accounts map[string]*model.Account
	rounds   map[string]*model.GameRound
	ledger   []model.WalletLedger
	outbox   []model.Outbox
	idemKeys map[string]string // idempotency_key -> ref

	nextLedgerID int64
	nextOutboxID int64
}

// NewMemoryStore 构造内存 Store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		muMap:    make(map[string]*sync.Mutex),
		accounts: make(map[string]*model.Account),
		rounds:   make(map[string]*model.GameRound),
		idemKeys: make(map[string]string),
	}
}

// accountMu 返回账户专属互斥锁（惰性创建）
func (s *MemoryStore) accountMu(accountID string) *sync.Mutex {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()
	mu, ok := s.muMap[accountID]
	if !ok {
		mu = &sync.Mutex{}
		s.muMap[accountID] = mu
	}
	return mu
}

// Settle 锁定账户并执行 fn；fn 内的写入先缓冲，提交时原子应用
func (s *MemoryStore) Settle(ctx context.Context, accountID string, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mu := s.accountMu(accountID)
	mu.Lock()
	defer mu.Unlock()

	s.mu.RLock()
	acct, ok := s.accounts[accountID]
	var balance int64
	if ok {
		balance = acct.Balance
	}
	s.mu.RUnlock()
	if !ok {
		return ErrAccountNotFound
	}

	mt := &memoryTx{store: s, accountID: accountID, balance: balance}
	if err := fn(mt); err != nil {
		return err
	}

	// 提交：缓冲的写入在全局锁内一次性应用
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range mt.idemKeys {
		if _, dup := s.idemKeys[key]; dup {
			return ErrDuplicateKey
		}
	}
	if mt.balanceSet {
		s.accounts[accountID].Balance = mt.balance
		s.accounts[accountID].UpdatedAt = time.Now().UnixMilli()
	}
	for i := range mt.ledger {
		s.nextLedgerID++
		mt.ledger[i].ID = s.nextLedgerID
		mt.ledger[i].CreatedAt = time.Now().UnixMilli()
		s.ledger = append(s.ledger, mt.ledger[i])
	}
	for _, r := range mt.rounds {
		rc := r
		s.rounds[rc.RoundID] = &rc
	}
	for i := range mt.outbox {
		s.nextOutboxID++
		mt.outbox[i].ID = s.nextOutboxID
		s.outbox = append(s.outbox, mt.outbox[i])
	}
	for key, ref := range mt.idemKeys {
		s.idemKeys[key] = ref
	}
	return nil
}

// Balance 查询账户余额
func (s *MemoryStore) Balance(ctx context.Context, accountID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return 0, ErrAccountNotFound
	}
	return acct.Balance, nil
}

// Account 查询账户资料
func (s *MemoryStore) Account(ctx context.Context, accountID string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	ac := *acct
	return &ac, nil
}

// CreateAccount 创建账户并记入开户账本
func (s *MemoryStore) CreateAccount(ctx context.Context, accountID, displayName string, openingBalance int64, currency, traceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; ok {
		return ErrDuplicateKey
	}
	now := time.Now().UnixMilli()
	s.accounts[accountID] = &model.Account{
		AccountID:   accountID,
		DisplayName: displayName,
		Balance:     openingBalance,
		Status:      1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if openingBalance > 0 {
		s.nextLedgerID++
		s.ledger = append(s.ledger, model.WalletLedger{
			ID:           s.nextLedgerID,
			AccountID:    accountID,
			EntryType:    model.EntryOpeningCredit,
			EntryTypeStr: "OPENING_CREDIT",
			Amount:       openingBalance,
			BeforeAmount: 0,
			AfterAmount:  openingBalance,
			Currency:     currency,
			Remark:       "opening balance",
			TraceID:      traceID,
			CreatedAt:    now,
		})
	}
	return nil
}

// RoundByID 按局ID查询局记录
func (s *MemoryStore) RoundByID(ctx context.Context, roundID string) (*model.GameRound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rounds[roundID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	rc := *r
	return &rc, nil
}

// RoundsByAccount 查询账户最近的局记录（按时间倒序）
func (s *MemoryStore) RoundsByAccount(ctx context.Context, accountID string, limit int) ([]model.GameRound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []model.GameRound
	for _, r := range s.rounds {
		if r.AccountID == accountID {
			list = append(list, *r)
		}
	}
	for i := 0; i < len(list); i++ {
		for j := i + 1; j < len(list); j++ {
			if list[j].CreatedAt > list[i].CreatedAt {
				list[i], list[j] = list[j], list[i]
			}
		}
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// RoundIDByIdemKey 按幂等键查询已结算的局ID
func (s *MemoryStore) RoundIDByIdemKey(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idemKeys[key], nil
}

// LedgerByRound 查询一局产生的账本条目
func (s *MemoryStore) LedgerByRound(ctx context.Context, roundID string) ([]model.WalletLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.WalletLedger
	for _, e := range s.ledger {
		if e.RoundID == roundID {
			out = append(out, e)
		}
	}
	return out, nil
}

// LedgerByAccount 返回账户的全部账本条目（测试用）
func (s *MemoryStore) LedgerByAccount(accountID string) []model.WalletLedger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.WalletLedger
	for _, e := range s.ledger {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out
}

// OutboxPending 返回缓冲中的全部 outbox 记录（测试用）
func (s *MemoryStore) OutboxPending() []model.Outbox {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Outbox, len(s.outbox))
	copy(out, s.outbox)
	return out
}

// memoryTx 缓冲一次结算的全部写入，提交时统一应用
type memoryTx struct {
	store      *MemoryStore
	accountID  string
	balance    int64
	balanceSet bool
	ledger     []model.WalletLedger
	rounds     []model.GameRound
	outbox     []model.Outbox
	idemKeys   map[string]string
}

func (t *memoryTx) Balance() int64 {
	return t.balance
}

func (t *memoryTx) UpdateBalance(newBalance int64) error {
	t.balance = newBalance
	t.balanceSet = true
	return nil
}

func (t *memoryTx) AppendLedger(entry *model.WalletLedger) error {
	e := *entry
	if e.EntryTypeStr == "" {
		e.EntryTypeStr = model.EntryTypeName(e.EntryType)
	}
	t.ledger = append(t.ledger, e)
	return nil
}

func (t *memoryTx) InsertRound(round *model.GameRound) error {
	t.rounds = append(t.rounds, *round)
	return nil
}

func (t *memoryTx) InsertOutbox(topic, bizKey string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	t.outbox = append(t.outbox, model.Outbox{Topic: topic, BizKey: bizKey, Payload: string(b), Status: 1})
	return nil
}

func (t *memoryTx) InsertIdempotencyKey(key, purpose, ref string) error {
	t.store.mu.RLock()
	_, dup := t.store.idemKeys[key]
	t.store.mu.RUnlock()
	if dup {
		return ErrDuplicateKey
	}
	if t.idemKeys == nil {
		t.idemKeys = make(map[string]string)
	}
	if _, ok := t.idemKeys[key]; ok {
		return ErrDuplicateKey
	}
	t.idemKeys[key] = ref
	return nil
}
