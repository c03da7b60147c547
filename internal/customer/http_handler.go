package customer

import (
	"net/http"

	"libraryapi/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type customerReq struct {
	FirstName string `json:"first_name" validate:"required,notblank,max=100"`
	LastName  string `json:"last_name" validate:"required,notblank,max=100"`
	Email     string `json:"email" validate:"required,email,max=200"`
}

func decodeCustomerReq(w http.ResponseWriter, r *http.Request) (customerReq, bool) {
	var req customerReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequestBody(w, r)
		return req, false
	}
	if validationErrors := httpx.ValidateStruct(req); len(validationErrors) > 0 {
		httpx.InvalidInput(w, r, validationErrors)
		return req, false
	}
	return req, true
}

// Create handles POST /customers
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCustomerReq(w, r)
	if !ok {
		return
	}
	c, err := h.service.Create(r.Context(), req.FirstName, req.LastName, req.Email)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, httpx.MessageResponse{Message: "Customer added successfully", ID: c.ID})
}

// Update handles PUT /customers/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, r, ErrNotFound)
		return
	}
	req, ok := decodeCustomerReq(w, r)
	if !ok {
		return
	}
	if err := h.service.Update(r.Context(), id, req.FirstName, req.LastName, req.Email); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, httpx.MessageResponse{Message: "Customer updated successfully", ID: id}, nil)
}

// Delete handles DELETE /customers/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, r, ErrNotFound)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, httpx.MessageResponse{Message: "Customer deleted successfully", ID: id}, nil)
}

// GetByID handles GET /customers/{id}
func (h *HTTPHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, r, ErrNotFound)
		return
	}
	c, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, c, nil)
}

// List handles GET /customers
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := httpx.Page(r)
	customers, total, err := h.service.List(r.Context(), Query{
		Name:   r.URL.Query().Get("name"),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, customers, httpx.PageMeta(page, pageSize, total))
}
