package loan

import (
	"net/http"
	"time"

	"libraryapi/internal/apperr"
	"libraryapi/internal/httpx"
	"libraryapi/internal/platform/date"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type loanRequest struct {
	BookID       httpx.Int64 `json:"book_id" validate:"required,gt=0"`
	CustomerID   httpx.Int64 `json:"customer_id" validate:"required,gt=0"`
	DateBorrowed string      `json:"date_borrowed" validate:"required,datetime=2006-01-02"`
	DateReturned string      `json:"date_returned" validate:"omitempty,datetime=2006-01-02"`
}

func (req loanRequest) dates() (time.Time, *time.Time, error) {
	borrowed, err := date.Parse(req.DateBorrowed)
	if err != nil {
		return time.Time{}, nil, apperr.Validation(err.Error())
	}
	returned, err := date.ParseOptional(req.DateReturned)
	if err != nil {
		return time.Time{}, nil, apperr.Validation(err.Error())
	}
	return borrowed, returned, nil
}

type returnRequest struct {
	TransactionID httpx.Int64 `json:"transaction_id" validate:"required,gt=0"`
}

func decodeLoanRequest(w http.ResponseWriter, r *http.Request) (loanRequest, bool) {
	var req loanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequestBody(w, r)
		return req, false
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.InvalidInput(w, r, details)
		return req, false
	}
	return req, true
}

// Create handles POST /transactions
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLoanRequest(w, r)
	if !ok {
		return
	}
	borrowed, returned, err := req.dates()
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	id, err := h.service.CreateLoan(r.Context(), CreateInput{
		BookID:       int64(req.BookID),
		CustomerID:   int64(req.CustomerID),
		BorrowedDate: borrowed,
		ReturnedDate: returned,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, httpx.MessageResponse{Message: "Transaction added successfully", ID: id})
}

// Update handles PUT /transactions/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, r, ErrNotFound)
		return
	}
	req, ok := decodeLoanRequest(w, r)
	if !ok {
		return
	}
	borrowed, returned, err := req.dates()
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	err = h.service.UpdateLoan(r.Context(), id, UpdateInput{
		BookID:       int64(req.BookID),
		CustomerID:   int64(req.CustomerID),
		BorrowedDate: borrowed,
		ReturnedDate: returned,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, httpx.MessageResponse{Message: "Transaction updated successfully", ID: id}, nil)
}

// Delete handles DELETE /transactions/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, r, ErrNotFound)
		return
	}
	if err := h.service.DeleteLoan(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, httpx.MessageResponse{Message: "Transaction deleted successfully", ID: id}, nil)
}

// Return handles POST /transactions/return
func (h *HTTPHandler) Return(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequestBody(w, r)
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.InvalidInput(w, r, details)
		return
	}

	id := int64(req.TransactionID)
	if err := h.service.ReturnLoan(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, httpx.MessageResponse{Message: "Book returned successfully", ID: id}, nil)
}

// List handles GET /transactions
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status := Status(query.Get("status"))
	switch status {
	case StatusAny, StatusOpen, StatusReturned:
	default:
		httpx.InvalidInput(w, r, []httpx.ErrorDetail{{Field: "status", Message: "status must be one of: open returned"}})
		return
	}

	page, pageSize := httpx.Page(r)
	params := Query{
		BookID:     httpx.QueryInt64(r, "book_id"),
		CustomerID: httpx.QueryInt64(r, "customer_id"),
		Status:     status,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}

	records, total, err := h.service.List(r.Context(), params)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, records, httpx.PageMeta(page, pageSize, total))
}

// Get handles GET /transactions/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, r, ErrNotFound)
		return
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, rec, nil)
}
