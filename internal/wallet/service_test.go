package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/sabzico/fulfillment-backend/pkg/errors"
	"github.com/sabzico/fulfillment-backend/pkg/outbox"
	"github.com/sabzico/fulfillment-backend/pkg/pagination"
)

type accountKey struct {
	userID     uuid.UUID
	walletType enums.WalletType
}

type fakeWalletRepo struct {
	mu       sync.Mutex
	accounts map[accountKey]*models.WalletAccount
	entries  []models.WalletTransaction
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{accounts: make(map[accountKey]*models.WalletAccount)}
}

func (f *fakeWalletRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeWalletRepo) LockAccount(ctx context.Context, userID uuid.UUID, walletType enums.WalletType) (*models.WalletAccount, error) {
	key := accountKey{userID: userID, walletType: walletType}
	account, ok := f.accounts[key]
	if !ok {
		account = &models.WalletAccount{ID: uuid.New(), UserID: userID, WalletType: walletType}
		f.accounts[key] = account
	}
	return account, nil
}

func (f *fakeWalletRepo) FindAccount(ctx context.Context, userID uuid.UUID, walletType enums.WalletType) (*models.WalletAccount, error) {
	account, ok := f.accounts[accountKey{userID: userID, walletType: walletType}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return account, nil
}

func (f *fakeWalletRepo) UpdateAccountBalance(ctx context.Context, accountID uuid.UUID, balancePaise int64) error {
	for _, account := range f.accounts {
		if account.ID == accountID {
			account.BalancePaise = balancePaise
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeWalletRepo) InsertTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	f.entries = append(f.entries, *tx)
	return nil
}

func (f *fakeWalletRepo) RefundExists(ctx context.Context, returnID uuid.UUID) (bool, error) {
	for _, entry := range f.entries {
		if entry.Kind == enums.WalletTxKindRefund && entry.ReturnID != nil && *entry.ReturnID == returnID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeWalletRepo) ListTransactions(ctx context.Context, userID uuid.UUID, walletType *enums.WalletType, params pagination.Params) (*TransactionList, error) {
	list := &TransactionList{}
	for _, entry := range f.entries {
		if entry.UserID != userID {
			continue
		}
		if walletType != nil && entry.WalletType != *walletType {
			continue
		}
		list.Transactions = append(list.Transactions, TransactionSummary{
			ID:                entry.ID,
			WalletType:        entry.WalletType,
			Kind:              entry.Kind,
			Direction:         entry.Direction,
			AmountPaise:       entry.AmountPaise,
			BalanceAfterPaise: entry.BalanceAfterPaise,
		})
	}
	return list, nil
}

type stubOutboxPublisher struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// serialTxRunner mimics the row-lock serialization the real repository gets
// from FOR UPDATE: one ledger write at a time.
type serialTxRunner struct {
	mu sync.Mutex
}

func (r *serialTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(nil)
}

func newTestService(t *testing.T) (Service, *fakeWalletRepo, *stubOutboxPublisher) {
	t.Helper()
	repo := newFakeWalletRepo()
	publisher := &stubOutboxPublisher{}
	svc, err := NewService(repo, &serialTxRunner{}, publisher)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc, repo, publisher
}

func TestCreditAppendsEntryWithRunningBalance(t *testing.T) {
	svc, repo, publisher := newTestService(t)
	userID := uuid.New()

	entry, err := svc.Credit(context.Background(), MovementInput{
		UserID:      userID,
		WalletType:  enums.WalletTypeActual,
		AmountPaise: 25000,
		Kind:        enums.WalletTxKindRefund,
	})
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if entry.BalanceAfterPaise != 25000 {
		t.Fatalf("expected balance_after 25000 got %d", entry.BalanceAfterPaise)
	}
	if entry.Direction != enums.WalletTxDirectionCredit {
		t.Fatalf("expected credit direction got %s", entry.Direction)
	}
	account := repo.accounts[accountKey{userID: userID, walletType: enums.WalletTypeActual}]
	if account.BalancePaise != 25000 {
		t.Fatalf("expected account balance 25000 got %d", account.BalancePaise)
	}
	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventWalletCredited {
		t.Fatalf("expected one wallet_credited event got %+v", publisher.events)
	}
}

func TestDebitInsufficientBalance(t *testing.T) {
	svc, repo, _ := newTestService(t)
	userID := uuid.New()

	_, err := svc.Debit(context.Background(), MovementInput{
		UserID:      userID,
		WalletType:  enums.WalletTypeVirtual,
		AmountPaise: 5000,
		Kind:        enums.WalletTxKindOrderPayment,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientBalance {
		t.Fatalf("expected insufficient balance got %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatalf("failed debit must not append a ledger entry, got %d", len(repo.entries))
	}
}

func TestMovementValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	cases := []struct {
		name  string
		input MovementInput
	}{
		{"missing user", MovementInput{WalletType: enums.WalletTypeVirtual, AmountPaise: 100, Kind: enums.WalletTxKindCashback}},
		{"zero amount", MovementInput{UserID: uuid.New(), WalletType: enums.WalletTypeVirtual, Kind: enums.WalletTxKindCashback}},
		{"negative amount", MovementInput{UserID: uuid.New(), WalletType: enums.WalletTypeVirtual, AmountPaise: -5, Kind: enums.WalletTxKindCashback}},
		{"bad wallet type", MovementInput{UserID: uuid.New(), WalletType: "gold", AmountPaise: 100, Kind: enums.WalletTxKindCashback}},
		{"bad kind", MovementInput{UserID: uuid.New(), WalletType: enums.WalletTypeVirtual, AmountPaise: 100, Kind: "bonus"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Credit(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error got %v", err)
			}
		})
	}
}

func TestWalletTypesDoNotMingle(t *testing.T) {
	svc, _, _ := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	if _, err := svc.Credit(ctx, MovementInput{UserID: userID, WalletType: enums.WalletTypeVirtual, AmountPaise: 4000, Kind: enums.WalletTxKindCashback}); err != nil {
		t.Fatalf("virtual credit failed: %v", err)
	}
	if _, err := svc.Credit(ctx, MovementInput{UserID: userID, WalletType: enums.WalletTypeActual, AmountPaise: 9000, Kind: enums.WalletTxKindRefund}); err != nil {
		t.Fatalf("actual credit failed: %v", err)
	}

	balances, err := svc.Balances(ctx, userID)
	if err != nil {
		t.Fatalf("balances failed: %v", err)
	}
	if balances.VirtualPaise != 4000 || balances.ActualPaise != 9000 {
		t.Fatalf("expected 4000/9000 got %d/%d", balances.VirtualPaise, balances.ActualPaise)
	}

	// Actual funds must not cover a virtual debit.
	_, err = svc.Debit(ctx, MovementInput{UserID: userID, WalletType: enums.WalletTypeVirtual, AmountPaise: 5000, Kind: enums.WalletTxKindOrderPayment})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientBalance {
		t.Fatalf("expected insufficient balance got %v", err)
	}
}

func TestConcurrentMovementsKeepLedgerConsistent(t *testing.T) {
	svc, repo, _ := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	const workers = 20
	const amount = int64(100)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Credit(ctx, MovementInput{
				UserID:      userID,
				WalletType:  enums.WalletTypeVirtual,
				AmountPaise: amount,
				Kind:        enums.WalletTxKindCashback,
			})
			if err != nil {
				t.Errorf("credit failed: %v", err)
			}
		}()
	}
	wg.Wait()

	account := repo.accounts[accountKey{userID: userID, walletType: enums.WalletTypeVirtual}]
	if account.BalancePaise != workers*amount {
		t.Fatalf("expected final balance %d got %d", workers*amount, account.BalancePaise)
	}

	// Each entry's balance_after must equal the running signed sum.
	var running int64
	seen := make(map[int64]bool)
	for _, entry := range repo.entries {
		running += entry.AmountPaise
		if seen[entry.BalanceAfterPaise] {
			t.Fatalf("duplicate balance_after %d indicates a lost update", entry.BalanceAfterPaise)
		}
		seen[entry.BalanceAfterPaise] = true
	}
	if running != workers*amount {
		t.Fatalf("expected ledger sum %d got %d", workers*amount, running)
	}
}
