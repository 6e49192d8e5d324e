// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the fintrack application.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"fintrack/internal/domain"

	"github.com/shopspring/decimal"
)

// Common test errors
var (
	ErrMockNotImplemented = errors.New("mock function not implemented")
	ErrMockNotFound       = errors.New("mock: not found")
)

// MockUserRepository implements domain.UserRepository for testing
type MockUserRepository struct {
	mu sync.RWMutex

	// Function overrides - set these to customize behavior
	CreateFunc        func(ctx context.Context, user *domain.User) error
	GetByIDFunc       func(ctx context.Context, id string) (*domain.User, error)
	GetByUsernameFunc func(ctx context.Context, username string) (*domain.User, error)
	GetByEmailFunc    func(ctx context.Context, email string) (*domain.User, error)

	// In-memory storage for simple tests
	Users map[string]*domain.User
}

// NewMockUserRepository creates a new MockUserRepository with initialized maps
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*domain.User),
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.Users {
		if u.Username == user.Username {
			return domain.ErrUsernameExists
		}
		if u.Email == user.Email {
			return domain.ErrEmailExists
		}
	}

	if user.ID == "" {
		user.ID = "user-" + user.Username
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	m.Users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if user, ok := m.Users[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.Users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.Users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// MockSessionRepository implements domain.SessionRepository for testing
type MockSessionRepository struct {
	mu sync.RWMutex

	// Function overrides
	CreateFunc        func(ctx context.Context, session *domain.Session) error
	GetByTokenFunc    func(ctx context.Context, token string) (*domain.Session, error)
	DeleteFunc        func(ctx context.Context, token string) error
	DeleteExpiredFunc func(ctx context.Context) (int64, error)

	// In-memory storage keyed by token
	Sessions map[string]*domain.Session
}

// NewMockSessionRepository creates a new MockSessionRepository
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		Sessions: make(map[string]*domain.Session),
	}
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	m.Sessions[session.Token] = session
	return nil
}

func (m *MockSessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.Sessions[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

func (m *MockSessionRepository) Delete(ctx context.Context, token string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.Sessions, token)
	return nil
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	now := time.Now()
	for token, session := range m.Sessions {
		if now.After(session.ExpiresAt) {
			delete(m.Sessions, token)
			removed++
		}
	}
	return removed, nil
}

// MockCategoryRepository implements domain.CategoryRepository for testing
type MockCategoryRepository struct {
	mu sync.RWMutex

	// Function overrides
	CreateFunc     func(ctx context.Context, category *domain.Category) error
	GetByIDFunc    func(ctx context.Context, userID, id string) (*domain.Category, error)
	SoftDeleteFunc func(ctx context.Context, userID, id string) error
	RestoreFunc    func(ctx context.Context, userID, id string) error
	PurgeFunc      func(ctx context.Context, userID, id string) error

	// In-memory storage
	Categories map[string]*domain.Category
}

// NewMockCategoryRepository creates a new MockCategoryRepository
func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{
		Categories: make(map[string]*domain.Category),
	}
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, category)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.Categories {
		if c.UserID == category.UserID && c.Name == category.Name && c.DeletedAt == nil {
			return domain.ErrCategoryExists
		}
	}

	if category.ID == "" {
		category.ID = "category-" + category.Name
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now()
	}
	m.Categories[category.ID] = category
	return nil
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, userID, id string) (*domain.Category, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, userID, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	category, ok := m.Categories[id]
	if !ok || category.UserID != userID || category.DeletedAt != nil {
		return nil, domain.ErrCategoryNotFound
	}
	return category, nil
}

func (m *MockCategoryRepository) List(ctx context.Context, userID string) ([]*domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var categories []*domain.Category
	for _, c := range m.Categories {
		if c.UserID == userID && c.DeletedAt == nil {
			categories = append(categories, c)
		}
	}
	return categories, nil
}

func (m *MockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.Categories[category.ID]
	if !ok || existing.UserID != category.UserID || existing.DeletedAt != nil {
		return domain.ErrCategoryNotFound
	}
	m.Categories[category.ID] = category
	return nil
}

func (m *MockCategoryRepository) SoftDelete(ctx context.Context, userID, id string) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, userID, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	category, ok := m.Categories[id]
	if !ok || category.UserID != userID || category.DeletedAt != nil {
		return domain.ErrCategoryNotFound
	}
	now := time.Now()
	category.DeletedAt = &now
	return nil
}

func (m *MockCategoryRepository) ListDeleted(ctx context.Context, userID string) ([]*domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var categories []*domain.Category
	for _, c := range m.Categories {
		if c.UserID == userID && c.DeletedAt != nil {
			categories = append(categories, c)
		}
	}
	return categories, nil
}

func (m *MockCategoryRepository) Restore(ctx context.Context, userID, id string) error {
	if m.RestoreFunc != nil {
		return m.RestoreFunc(ctx, userID, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	category, ok := m.Categories[id]
	if !ok || category.UserID != userID {
		return domain.ErrCategoryNotFound
	}
	if category.DeletedAt == nil {
		return domain.ErrNotDeleted
	}
	category.DeletedAt = nil
	return nil
}

func (m *MockCategoryRepository) Purge(ctx context.Context, userID, id string) error {
	if m.PurgeFunc != nil {
		return m.PurgeFunc(ctx, userID, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	category, ok := m.Categories[id]
	if !ok || category.UserID != userID {
		return domain.ErrCategoryNotFound
	}
	if category.DeletedAt == nil {
		return domain.ErrNotDeleted
	}
	delete(m.Categories, id)
	return nil
}

// MockTransactionRepository implements domain.TransactionRepository for testing
type MockTransactionRepository struct {
	mu sync.RWMutex

	// Function overrides
	CreateFunc               func(ctx context.Context, tx *domain.Transaction) error
	SumByCategoryMonthFunc   func(ctx context.Context, userID, categoryID, month string) (decimal.Decimal, error)
	HasDeletedInCategoryFunc func(ctx context.Context, userID, categoryID string) (bool, error)

	// In-memory storage
	Transactions map[string]*domain.Transaction
}

// NewMockTransactionRepository creates a new MockTransactionRepository
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		Transactions: make(map[string]*domain.Transaction),
	}
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.ID == "" {
		tx.ID = nextID("tx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	m.Transactions[tx.ID] = tx
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.Transactions[id]
	if !ok || tx.UserID != userID || tx.DeletedAt != nil {
		return nil, domain.ErrTransactionNotFound
	}
	return tx, nil
}

func (m *MockTransactionRepository) List(ctx context.Context, userID string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var transactions []*domain.Transaction
	for _, tx := range m.Transactions {
		if tx.UserID != userID || tx.DeletedAt != nil {
			continue
		}
		if filter.CategoryID != "" && tx.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Kind != "" && tx.Kind != filter.Kind {
			continue
		}
		if filter.Month != "" && tx.OccurredAt.Format("2006-01") != filter.Month {
			continue
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

func (m *MockTransactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.Transactions[tx.ID]
	if !ok || existing.UserID != tx.UserID || existing.DeletedAt != nil {
		return domain.ErrTransactionNotFound
	}
	m.Transactions[tx.ID] = tx
	return nil
}

func (m *MockTransactionRepository) SoftDelete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.Transactions[id]
	if !ok || tx.UserID != userID || tx.DeletedAt != nil {
		return domain.ErrTransactionNotFound
	}
	now := time.Now()
	tx.DeletedAt = &now
	return nil
}

func (m *MockTransactionRepository) ListDeleted(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var transactions []*domain.Transaction
	for _, tx := range m.Transactions {
		if tx.UserID == userID && tx.DeletedAt != nil {
			transactions = append(transactions, tx)
		}
	}
	return transactions, nil
}

func (m *MockTransactionRepository) Restore(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.Transactions[id]
	if !ok || tx.UserID != userID {
		return domain.ErrTransactionNotFound
	}
	if tx.DeletedAt == nil {
		return domain.ErrNotDeleted
	}
	tx.DeletedAt = nil
	return nil
}

func (m *MockTransactionRepository) Purge(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.Transactions[id]
	if !ok || tx.UserID != userID {
		return domain.ErrTransactionNotFound
	}
	if tx.DeletedAt == nil {
		return domain.ErrNotDeleted
	}
	delete(m.Transactions, id)
	return nil
}

func (m *MockTransactionRepository) HasDeletedInCategory(ctx context.Context, userID, categoryID string) (bool, error) {
	if m.HasDeletedInCategoryFunc != nil {
		return m.HasDeletedInCategoryFunc(ctx, userID, categoryID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, tx := range m.Transactions {
		if tx.UserID == userID && tx.CategoryID == categoryID && tx.DeletedAt != nil {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockTransactionRepository) SumByCategoryMonth(ctx context.Context, userID, categoryID, month string) (decimal.Decimal, error) {
	if m.SumByCategoryMonthFunc != nil {
		return m.SumByCategoryMonthFunc(ctx, userID, categoryID, month)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	sum := decimal.Zero
	for _, tx := range m.Transactions {
		if tx.UserID != userID || tx.CategoryID != categoryID || tx.DeletedAt != nil {
			continue
		}
		if tx.Kind != domain.KindExpense {
			continue
		}
		if tx.OccurredAt.Format("2006-01") != month {
			continue
		}
		sum = sum.Add(tx.Amount)
	}
	return sum, nil
}

// MockBudgetRepository implements domain.BudgetRepository for testing
type MockBudgetRepository struct {
	mu sync.RWMutex

	// Function overrides
	CreateFunc             func(ctx context.Context, budget *domain.Budget) error
	GetByCategoryMonthFunc func(ctx context.Context, userID, categoryID, month string) (*domain.Budget, error)

	// In-memory storage
	Budgets map[string]*domain.Budget
}

// NewMockBudgetRepository creates a new MockBudgetRepository
func NewMockBudgetRepository() *MockBudgetRepository {
	return &MockBudgetRepository{
		Budgets: make(map[string]*domain.Budget),
	}
}

func (m *MockBudgetRepository) Create(ctx context.Context, budget *domain.Budget) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, budget)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.Budgets {
		if b.UserID == budget.UserID && b.CategoryID == budget.CategoryID && b.Month == budget.Month {
			return domain.ErrBudgetExists
		}
	}

	if budget.ID == "" {
		budget.ID = nextID("budget")
	}
	if budget.CreatedAt.IsZero() {
		budget.CreatedAt = time.Now()
	}
	m.Budgets[budget.ID] = budget
	return nil
}

func (m *MockBudgetRepository) GetByID(ctx context.Context, userID, id string) (*domain.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	budget, ok := m.Budgets[id]
	if !ok || budget.UserID != userID {
		return nil, domain.ErrBudgetNotFound
	}
	return budget, nil
}

func (m *MockBudgetRepository) GetByCategoryMonth(ctx context.Context, userID, categoryID, month string) (*domain.Budget, error) {
	if m.GetByCategoryMonthFunc != nil {
		return m.GetByCategoryMonthFunc(ctx, userID, categoryID, month)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, b := range m.Budgets {
		if b.UserID == userID && b.CategoryID == categoryID && b.Month == month {
			return b, nil
		}
	}
	return nil, domain.ErrBudgetNotFound
}

func (m *MockBudgetRepository) List(ctx context.Context, userID string) ([]*domain.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var budgets []*domain.Budget
	for _, b := range m.Budgets {
		if b.UserID == userID {
			budgets = append(budgets, b)
		}
	}
	return budgets, nil
}

func (m *MockBudgetRepository) Update(ctx context.Context, budget *domain.Budget) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.Budgets[budget.ID]
	if !ok || existing.UserID != budget.UserID {
		return domain.ErrBudgetNotFound
	}
	m.Budgets[budget.ID] = budget
	return nil
}

func (m *MockBudgetRepository) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	budget, ok := m.Budgets[id]
	if !ok || budget.UserID != userID {
		return domain.ErrBudgetNotFound
	}
	delete(m.Budgets, id)
	return nil
}

// MockInsightRepository implements domain.InsightRepository for testing
type MockInsightRepository struct {
	mu sync.RWMutex

	// Function overrides
	CreateFunc   func(ctx context.Context, insight *domain.Insight) error
	CompleteFunc func(ctx context.Context, id, summary string) error
	FailFunc     func(ctx context.Context, id, reason string) error

	// In-memory storage
	Insights map[string]*domain.Insight
}

// NewMockInsightRepository creates a new MockInsightRepository
func NewMockInsightRepository() *MockInsightRepository {
	return &MockInsightRepository{
		Insights: make(map[string]*domain.Insight),
	}
}

func (m *MockInsightRepository) Create(ctx context.Context, insight *domain.Insight) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, insight)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if insight.ID == "" {
		insight.ID = nextID("insight")
	}
	insight.Status = domain.InsightPending
	if insight.CreatedAt.IsZero() {
		insight.CreatedAt = time.Now()
	}
	m.Insights[insight.ID] = insight
	return nil
}

func (m *MockInsightRepository) GetByID(ctx context.Context, userID, id string) (*domain.Insight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	insight, ok := m.Insights[id]
	if !ok || insight.UserID != userID {
		return nil, domain.ErrInsightNotFound
	}
	return insight, nil
}

func (m *MockInsightRepository) List(ctx context.Context, userID string) ([]*domain.Insight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var insights []*domain.Insight
	for _, i := range m.Insights {
		if i.UserID == userID {
			insights = append(insights, i)
		}
	}
	return insights, nil
}

func (m *MockInsightRepository) Complete(ctx context.Context, id, summary string) error {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, id, summary)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	insight, ok := m.Insights[id]
	if !ok || insight.Status != domain.InsightPending {
		return domain.ErrInsightNotFound
	}
	now := time.Now()
	insight.Summary = summary
	insight.Status = domain.InsightReady
	insight.CompletedAt = &now
	return nil
}

func (m *MockInsightRepository) Fail(ctx context.Context, id, reason string) error {
	if m.FailFunc != nil {
		return m.FailFunc(ctx, id, reason)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	insight, ok := m.Insights[id]
	if !ok || insight.Status != domain.InsightPending {
		return domain.ErrInsightNotFound
	}
	now := time.Now()
	insight.Error = reason
	insight.Status = domain.InsightFailed
	insight.CompletedAt = &now
	return nil
}

// MockNotifier records pushes for assertion
type MockNotifier struct {
	mu sync.Mutex

	Pushes []NotifierPush
}

// NotifierPush is one recorded Push call
type NotifierPush struct {
	UserID  string
	Payload []byte
}

// NewMockNotifier creates a new MockNotifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Push(userID string, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pushes = append(m.Pushes, NotifierPush{UserID: userID, Payload: payload})
}

// GetPushes returns a copy of the recorded pushes
func (m *MockNotifier) GetPushes() []NotifierPush {
	m.mu.Lock()
	defer m.mu.Unlock()
	pushes := make([]NotifierPush, len(m.Pushes))
	copy(pushes, m.Pushes)
	return pushes
}
