package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"payables/internal/log"
	"payables/internal/ocr"
	"payables/internal/services"
)

// multipartOverhead allows for boundaries and headers around the file part.
const multipartOverhead = 1 << 20

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request, userID string) {
	opts, err := ParseListOptions(r.URL.Query())
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	invs, err := s.deps.Invoices.List(r.Context(), userID, opts)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(newInvoiceResponses(invs)).Write(w)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request, userID string) {
	inv, err := s.deps.Invoices.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(newInvoiceResponse(inv)).Write(w)
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.deps.Invoices.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleSetPaid(w http.ResponseWriter, r *http.Request, userID string) {
	paid, err := ParseBoolParam(r.URL.Query(), "paid")
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	inv, err := s.deps.Invoices.SetPaid(r.Context(), userID, r.PathValue("id"), paid)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(newInvoiceResponse(inv)).Write(w)
}

// handleUploadInvoice accepts a multipart form with the document in "file".
// A new invoice answers 201, a re-upload of the same file 200.
func (s *Server) handleUploadInvoice(w http.ResponseWriter, r *http.Request, userID string) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorFor(fmt.Errorf("%w: limit %d bytes", ocr.ErrFileTooLarge, s.deps.MaxUploadBytes)).Write(w)
			return
		}
		BadRequestError("expected a multipart form").Write(w)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequestError("missing file").Write(w)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, r, log.OpIngest, fmt.Errorf("read upload: %w", err))
		return
	}

	res, err := s.deps.Invoices.Ingest(r.Context(), userID, services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		s.fail(w, r, log.OpIngest, err)
		return
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	NewJSONResponse().Status(status).Body(newInvoiceResponse(res.Invoice)).Write(w)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request, userID string) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	name := p.Get("category_name")
	if err := s.deps.Invoices.AddCategory(r.Context(), userID, r.PathValue("id"), name); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(map[string]string{"category_name": name}).Write(w)
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request, userID string) {
	name := sanitizeInput(r.URL.Query().Get("category_name"))
	if err := s.deps.Invoices.RemoveCategory(r.Context(), userID, r.PathValue("id"), name); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(map[string]string{"category_name": name}).Write(w)
}
