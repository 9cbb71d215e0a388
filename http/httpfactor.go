/*
Copyright 2012 Google Inc.
Copyright 2026 Vimeo Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package httpfactor serves a factor.Factoriser over HTTP.
//
// GET {BasePath}{n} answers with a JSON document:
//
//	{"n": 12, "factors": [2, 2, 3]}
//
// A malformed or non-positive n is a 400, any method but GET a 405 and a
// failed factorisation a 500. Error bodies are {"error": "..."}.
package httpfactor // import "github.com/vimeo/lrumemo/http"

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/vimeo/lrumemo/factor"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opencensus.io/plugin/ochttp"
)

// DefaultBasePath is the path prefix used when Options.BasePath is empty.
const DefaultBasePath = "/factor/"

// RequestIDHeader carries the request ID. An incoming value is kept,
// otherwise one is generated.
const RequestIDHeader = "X-Request-ID"

// Options configure the handler.
type Options struct {
	// BasePath specifies the HTTP path that will serve factorisations.
	// If blank, it defaults to "/factor/".
	BasePath string

	// Logger receives request and failure logs. If nil, logs are
	// discarded.
	Logger *slog.Logger
}

// Response is the body of a successful request.
type Response struct {
	N       uint64         `json:"n"`
	Factors factor.Factors `json:"factors"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	factoriser factor.Factoriser
	logger     *slog.Logger
}

// NewHandler returns a handler serving f under opts.BasePath.
func NewHandler(f factor.Factoriser, opts Options) http.Handler {
	basePath := opts.BasePath
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &handler{factoriser: f, logger: logger}

	r := chi.NewRouter()
	r.Use(requestID)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
	r.Get(basePath+"{n}", h.factorise)
	return r
}

// Wrap instruments h with opencensus stats and tracing. Register
// ochttp.DefaultServerViews to export them.
func Wrap(h http.Handler) http.Handler {
	return &ochttp.Handler{Handler: h}
}

func (h *handler) factorise(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.With(slog.String("request_id", w.Header().Get(RequestIDHeader)))

	raw := chi.URLParam(r, "n")
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		log.DebugContext(ctx, "bad request", slog.String("n", raw))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "n must be a positive integer, got " + strconv.Quote(raw)})
		return
	}

	fs, err := h.factoriser.Factorise(ctx, n)
	if err != nil {
		if ctx.Err() != nil {
			// the client went away; nobody is left to answer
			log.DebugContext(ctx, "request canceled", slog.Uint64("n", n))
			return
		}
		log.ErrorContext(ctx, "factorise failed", slog.Uint64("n", n), slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if fs == nil {
		fs = factor.Factors{}
	}
	log.DebugContext(ctx, "factorised", slog.Uint64("n", n), slog.String("factors", fs.String()))
	writeJSON(w, http.StatusOK, Response{N: n, Factors: fs})
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
