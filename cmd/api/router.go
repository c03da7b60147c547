package main

import (
	"context"
	"net/http"
	"time"

	"libraryapi/internal/book"
	"libraryapi/internal/customer"
	"libraryapi/internal/httpx"
	"libraryapi/internal/loan"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type handlers struct {
	books     *book.HTTPHandler
	customers *customer.HTTPHandler
	loans     *loan.HTTPHandler
	// ready reports whether the database answers.
	ready func(ctx context.Context) error
}

func newRouter(h handlers) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			httpx.JSONError(w, r, http.StatusServiceUnavailable, "NOT_READY", "db not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	router.Handle("GET /metrics", promhttp.Handler())

	router.HandleFunc("GET /library", h.books.List)
	router.HandleFunc("POST /books", h.books.Create)
	router.HandleFunc("GET /books/{id}", h.books.GetByID)
	router.HandleFunc("PUT /books/{id}", h.books.Update)
	router.HandleFunc("DELETE /books/{id}", h.books.Delete)

	router.HandleFunc("GET /customers", h.customers.List)
	router.HandleFunc("POST /customers", h.customers.Create)
	router.HandleFunc("GET /customers/{id}", h.customers.GetByID)
	router.HandleFunc("PUT /customers/{id}", h.customers.Update)
	router.HandleFunc("DELETE /customers/{id}", h.customers.Delete)

	router.HandleFunc("GET /transactions", h.loans.List)
	router.HandleFunc("POST /transactions", h.loans.Create)
	router.HandleFunc("POST /transactions/return", h.loans.Return)
	router.HandleFunc("GET /transactions/{id}", h.loans.Get)
	router.HandleFunc("PUT /transactions/{id}", h.loans.Update)
	router.HandleFunc("DELETE /transactions/{id}", h.loans.Delete)

	return router
}
