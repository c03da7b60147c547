package book

import (
	"net/http"
	"strconv"

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

// bookRequest is the body of POST /books and PUT /books/{id}. Clients may
// still send availability; it is ignored because only loans change it.
type bookRequest struct {
	Title           string        `json:"title" validate:"required,notblank,max=200"`
	AuthorFirstName string        `json:"author_first_name" validate:"required,notblank,max=100"`
	AuthorLastName  string        `json:"author_last_name" validate:"required,notblank,max=100"`
	GenreName       string        `json:"genre_name" validate:"required,notblank,max=100"`
	PublishedDate   string        `json:"published_date" validate:"required,datetime=2006-01-02"`
	Price           httpx.Float64 `json:"price" validate:"gte=0"`
	Availability    any           `json:"availability,omitempty"`
}

func decodeBookRequest(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequestBody(w, r)
		return Input{}, false
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.InvalidInput(w, r, details)
		return Input{}, false
	}
	published, err := date.Parse(req.PublishedDate)
	if err != nil {
		httpx.WriteError(w, r, apperr.Validation(err.Error()))
		return Input{}, false
	}
	return Input{
		Title:           req.Title,
		AuthorFirstName: req.AuthorFirstName,
		AuthorLastName:  req.AuthorLastName,
		GenreName:       req.GenreName,
		PublishedDate:   published,
		Price:           float64(req.Price),
	}, true
}

// Create handles POST /books
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeBookRequest(w, r)
	if !ok {
		return
	}
	id, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, httpx.MessageResponse{Message: "Book added successfully", ID: id})
}

// Update handles PUT /books/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, r, ErrNotFound)
		return
	}
	in, ok := decodeBookRequest(w, r)
	if !ok {
		return
	}
	if err := h.service.Update(r.Context(), id, in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, httpx.MessageResponse{Message: "Book updated successfully", ID: id}, nil)
}

// Delete handles DELETE /books/{id}
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
	httpx.JSONSuccess(w, r, httpx.MessageResponse{Message: "Book deleted successfully", ID: id}, nil)
}

// List handles GET /library
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := Query{
		Title:  query.Get("title"),
		Genre:  query.Get("genre"),
		Author: query.Get("author"),
	}
	if availableStr := query.Get("available"); availableStr != "" {
		val, err := strconv.ParseBool(availableStr)
		if err != nil {
			httpx.InvalidInput(w, r, []httpx.ErrorDetail{{Field: "available", Message: "available must be true or false"}})
			return
		}
		params.Available = &val
	}

	cursor, err := DecodeCursor(query.Get("cursor"))
	if err != nil {
		httpx.InvalidInput(w, r, []httpx.ErrorDetail{{Field: "cursor", Message: "cursor is invalid"}})
		return
	}

	page, pageSize := httpx.Page(r)
	params.Limit = pageSize
	params.AfterID = cursor.AfterID
	params.Offset = (page - 1) * pageSize

	books, total, err := h.service.List(r.Context(), params)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	meta := httpx.PageMeta(page, pageSize, total)
	if len(books) == pageSize {
		meta["next_cursor"] = EncodeCursor(CursorData{AfterID: books[len(books)-1].ID})
	}
	httpx.JSONSuccess(w, r, books, meta)
}

// GetByID handles GET /books/{id}
func (h *HTTPHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, r, ErrNotFound)
		return
	}
	b, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}
