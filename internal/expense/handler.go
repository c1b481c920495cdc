package expense

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expenseflow/internal/membership"
	"github.com/frahmantamala/expenseflow/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Submit(ctx context.Context, res membership.Resolution, dto CreateExpenseDTO) (*Expense, error)
	ListOwn(ctx context.Context, res membership.Resolution, query ListQuery) ([]*Expense, error)
	ListOrganization(ctx context.Context, res membership.Resolution, query ListQuery) ([]*Expense, error)
	PendingQueue(ctx context.Context, res membership.Resolution, limit, offset int) ([]*Expense, error)
	Get(ctx context.Context, res membership.Resolution, id string) (*Expense, error)
	Approve(ctx context.Context, res membership.Resolution, id string) (*Expense, error)
	Reject(ctx context.Context, res membership.Resolution, id string, dto RejectExpenseDTO) (*Expense, error)
	Reimburse(ctx context.Context, res membership.Resolution, id string) (*Expense, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) listQuery(r *http.Request) ListQuery {
	limit, offset := h.Pagination(r)
	return ListQuery{
		Status: Status(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}
}

// CreateExpense handles POST /expenses
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	res, _ := membership.ResolutionFromContext(r.Context())

	var dto CreateExpenseDTO
	if err := h.DecodeJSON(r, &dto, false); err != nil {
		h.WriteAppError(w, err)
		return
	}

	exp, err := h.Service.Submit(r.Context(), res, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, exp)
}

// GetUserExpenses handles GET /expenses
func (h *Handler) GetUserExpenses(w http.ResponseWriter, r *http.Request) {
	res, _ := membership.ResolutionFromContext(r.Context())
	query := h.listQuery(r)

	expenses, err := h.Service.ListOwn(r.Context(), res, query)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ExpenseListResponse{Expenses: expenses, Limit: query.Limit, Offset: query.Offset})
}

// GetAllExpenses handles GET /accounts/expenses
func (h *Handler) GetAllExpenses(w http.ResponseWriter, r *http.Request) {
	res, _ := membership.ResolutionFromContext(r.Context())
	query := h.listQuery(r)

	expenses, err := h.Service.ListOrganization(r.Context(), res, query)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ExpenseListResponse{Expenses: expenses, Limit: query.Limit, Offset: query.Offset})
}

// GetPendingApprovals handles GET /hr/approvals
func (h *Handler) GetPendingApprovals(w http.ResponseWriter, r *http.Request) {
	res, _ := membership.ResolutionFromContext(r.Context())
	limit, offset := h.Pagination(r)

	expenses, err := h.Service.PendingQueue(r.Context(), res, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ExpenseListResponse{Expenses: expenses, Limit: limit, Offset: offset})
}

// GetExpense handles GET /expenses/{id}
func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	res, _ := membership.ResolutionFromContext(r.Context())

	exp, err := h.Service.Get(r.Context(), res, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, exp)
}

// ApproveExpense handles PATCH /expenses/{id}/approve
func (h *Handler) ApproveExpense(w http.ResponseWriter, r *http.Request) {
	res, _ := membership.ResolutionFromContext(r.Context())

	exp, err := h.Service.Approve(r.Context(), res, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, exp)
}

// RejectExpense handles PATCH /expenses/{id}/reject
func (h *Handler) RejectExpense(w http.ResponseWriter, r *http.Request) {
	res, _ := membership.ResolutionFromContext(r.Context())

	var dto RejectExpenseDTO
	if err := h.DecodeJSON(r, &dto, true); err != nil {
		h.WriteAppError(w, err)
		return
	}

	exp, err := h.Service.Reject(r.Context(), res, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, exp)
}

// ReimburseExpense handles PATCH /expenses/{id}/reimburse
func (h *Handler) ReimburseExpense(w http.ResponseWriter, r *http.Request) {
	res, _ := membership.ResolutionFromContext(r.Context())

	exp, err := h.Service.Reimburse(r.Context(), res, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, exp)
}
