package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/domain"
	"fintrack/internal/observability"

	"github.com/shopspring/decimal"
)

// Notifier pushes an event payload to every connected client of one user.
// Satisfied by the websocket hub; a nil Notifier disables pushes.
type Notifier interface {
	Push(userID string, payload []byte)
}

// BudgetAlert is pushed when an expense moves a category past its monthly cap.
type BudgetAlert struct {
	Type       string          `json:"type"`
	CategoryID string          `json:"category_id"`
	Month      string          `json:"month"`
	Budget     decimal.Decimal `json:"budget"`
	Spent      decimal.Decimal `json:"spent"`
}

// LedgerService owns transactions, categories, budgets and the trash bin.
type LedgerService struct {
	txRepo       domain.TransactionRepository
	categoryRepo domain.CategoryRepository
	budgetRepo   domain.BudgetRepository
	notifier     Notifier
}

func NewLedgerService(
	txRepo domain.TransactionRepository,
	categoryRepo domain.CategoryRepository,
	budgetRepo domain.BudgetRepository,
	notifier Notifier,
) *LedgerService {
	return &LedgerService{
		txRepo:       txRepo,
		categoryRepo: categoryRepo,
		budgetRepo:   budgetRepo,
		notifier:     notifier,
	}
}

// --- Categories ---

func (s *LedgerService) CreateCategory(ctx context.Context, userID, name string, kind domain.Kind, color string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 || !kind.Valid() {
		return nil, domain.ErrInvalidInput
	}

	category := &domain.Category{
		UserID: userID,
		Name:   name,
		Kind:   kind,
		Color:  color,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *LedgerService) GetCategory(ctx context.Context, userID, id string) (*domain.Category, error) {
	return s.categoryRepo.GetByID(ctx, userID, id)
}

func (s *LedgerService) ListCategories(ctx context.Context, userID string) ([]*domain.Category, error) {
	return s.categoryRepo.List(ctx, userID)
}

func (s *LedgerService) UpdateCategory(ctx context.Context, userID, id, name string, kind domain.Kind, color string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 || !kind.Valid() {
		return nil, domain.ErrInvalidInput
	}

	category, err := s.categoryRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	category.Name = name
	category.Kind = kind
	category.Color = color

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *LedgerService) DeleteCategory(ctx context.Context, userID, id string) error {
	return s.categoryRepo.SoftDelete(ctx, userID, id)
}

// --- Transactions ---

func (s *LedgerService) CreateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	if err := s.validateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	s.checkBudget(ctx, tx)
	return tx, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	return s.txRepo.GetByID(ctx, userID, id)
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	return s.txRepo.List(ctx, userID, filter)
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	if err := s.validateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	if err := s.txRepo.Update(ctx, tx); err != nil {
		return nil, err
	}

	s.checkBudget(ctx, tx)
	return tx, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) error {
	return s.txRepo.SoftDelete(ctx, userID, id)
}

// validateTransaction checks amount sign, kind, and that the category exists,
// belongs to the user, and matches the transaction kind.
func (s *LedgerService) validateTransaction(ctx context.Context, tx *domain.Transaction) error {
	if !tx.Kind.Valid() {
		return domain.ErrInvalidInput
	}
	if !tx.Amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if tx.OccurredAt.IsZero() {
		tx.OccurredAt = time.Now()
	}

	category, err := s.categoryRepo.GetByID(ctx, tx.UserID, tx.CategoryID)
	if err != nil {
		return err
	}
	if category.Kind != tx.Kind {
		return domain.ErrInvalidInput
	}
	return nil
}

// checkBudget pushes a budget alert when an expense exceeds its category's
// monthly cap. Alert failures never fail the write that triggered them.
func (s *LedgerService) checkBudget(ctx context.Context, tx *domain.Transaction) {
	if s.notifier == nil || tx.Kind != domain.KindExpense {
		return
	}

	month := tx.OccurredAt.Format("2006-01")
	budget, err := s.budgetRepo.GetByCategoryMonth(ctx, tx.UserID, tx.CategoryID, month)
	if err != nil {
		if err != domain.ErrBudgetNotFound {
			slog.Error("budget lookup failed", slog.String("error", err.Error()))
		}
		return
	}

	spent, err := s.txRepo.SumByCategoryMonth(ctx, tx.UserID, tx.CategoryID, month)
	if err != nil {
		slog.Error("budget spend check failed", slog.String("error", err.Error()))
		return
	}

	if spent.GreaterThan(budget.Amount) {
		payload, err := json.Marshal(BudgetAlert{
			Type:       "budget_alert",
			CategoryID: tx.CategoryID,
			Month:      month,
			Budget:     budget.Amount,
			Spent:      spent,
		})
		if err != nil {
			slog.Error("failed to marshal budget alert", slog.String("error", err.Error()))
			return
		}
		s.notifier.Push(tx.UserID, payload)
		observability.NotificationsSent.WithLabelValues("budget_alert").Inc()
	}
}

// --- Budgets ---

func (s *LedgerService) CreateBudget(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	if !budget.Amount.IsPositive() || !isMonth(budget.Month) {
		return nil, domain.ErrInvalidInput
	}
	if _, err := s.categoryRepo.GetByID(ctx, budget.UserID, budget.CategoryID); err != nil {
		return nil, err
	}

	if err := s.budgetRepo.Create(ctx, budget); err != nil {
		return nil, err
	}
	return budget, nil
}

func (s *LedgerService) GetBudget(ctx context.Context, userID, id string) (*domain.Budget, error) {
	return s.budgetRepo.GetByID(ctx, userID, id)
}

func (s *LedgerService) ListBudgets(ctx context.Context, userID string) ([]*domain.Budget, error) {
	return s.budgetRepo.List(ctx, userID)
}

func (s *LedgerService) UpdateBudget(ctx context.Context, userID, id string, amount decimal.Decimal) (*domain.Budget, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidInput
	}

	budget, err := s.budgetRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	budget.Amount = amount

	if err := s.budgetRepo.Update(ctx, budget); err != nil {
		return nil, err
	}
	return budget, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, userID, id string) error {
	return s.budgetRepo.Delete(ctx, userID, id)
}

// BudgetStatus computes the spend position for one budget.
func (s *LedgerService) BudgetStatus(ctx context.Context, userID, id string) (*domain.BudgetStatus, error) {
	budget, err := s.budgetRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	spent, err := s.txRepo.SumByCategoryMonth(ctx, userID, budget.CategoryID, budget.Month)
	if err != nil {
		return nil, err
	}

	return &domain.BudgetStatus{
		Budget:    budget,
		Spent:     spent,
		Remaining: budget.Amount.Sub(spent),
		Exceeded:  spent.GreaterThan(budget.Amount),
	}, nil
}

// --- Trash ---

// Trash groups the user's soft-deleted records.
type Trash struct {
	Transactions []*domain.Transaction `json:"transactions"`
	Categories   []*domain.Category    `json:"categories"`
}

func (s *LedgerService) ListTrash(ctx context.Context, userID string) (*Trash, error) {
	transactions, err := s.txRepo.ListDeleted(ctx, userID)
	if err != nil {
		return nil, err
	}
	categories, err := s.categoryRepo.ListDeleted(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Trash{Transactions: transactions, Categories: categories}, nil
}

func (s *LedgerService) RestoreTransaction(ctx context.Context, userID, id string) error {
	return s.txRepo.Restore(ctx, userID, id)
}

func (s *LedgerService) PurgeTransaction(ctx context.Context, userID, id string) error {
	return s.txRepo.Purge(ctx, userID, id)
}

// RestoreCategory brings a category back from the trash. Its transactions
// stay wherever they are; restoring a category never resurrects records the
// user deleted separately.
func (s *LedgerService) RestoreCategory(ctx context.Context, userID, id string) error {
	return s.categoryRepo.Restore(ctx, userID, id)
}

// PurgeCategory permanently removes a deleted category. Blocked while
// deleted transactions still reference it, otherwise restoring those
// transactions later would point at nothing.
func (s *LedgerService) PurgeCategory(ctx context.Context, userID, id string) error {
	inUse, err := s.txRepo.HasDeletedInCategory(ctx, userID, id)
	if err != nil {
		return err
	}
	if inUse {
		return domain.ErrCategoryInUse
	}
	return s.categoryRepo.Purge(ctx, userID, id)
}

func isMonth(month string) bool {
	_, err := time.Parse("2006-01", month)
	return err == nil
}
