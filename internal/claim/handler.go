package claim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/core/user"
	"github.com/frahmantamala/time2pay/internal/document"
	"github.com/frahmantamala/time2pay/internal/transport"
	"github.com/frahmantamala/time2pay/pkg/logger"
)

type ServiceAPI interface {
	Submit(ctx context.Context, actor *user.Actor, dto ClaimInputDTO, upload *document.Upload) (*Claim, error)
	Edit(ctx context.Context, actor *user.Actor, id int64, dto ClaimInputDTO, upload *document.Upload) (*Claim, error)
	Delete(ctx context.Context, actor *user.Actor, id int64) error
	Verify(ctx context.Context, actor *user.Actor, id int64, remarks string) (*Claim, error)
	Reject(ctx context.Context, actor *user.Actor, id int64, remarks string) (*Claim, error)
	Approve(ctx context.Context, actor *user.Actor, id int64, remarks string) (*Claim, error)
	Get(ctx context.Context, actor *user.Actor, id int64) (*Claim, error)
	ListOwn(ctx context.Context, actor *user.Actor) ([]*Claim, error)
	ListForVerification(ctx context.Context, actor *user.Actor, status *Status) ([]*Claim, error)
	ListForApproval(ctx context.Context, actor *user.Actor, status *Status) ([]*Claim, error)
	DepartmentSummary(ctx context.Context, actor *user.Actor) (*Summary, error)
	History(ctx context.Context, actor *user.Actor, id int64) ([]AuditEntry, error)
	OpenDocument(ctx context.Context, actor *user.Actor, id int64) (io.ReadCloser, *SupportingDocument, error)
}

type Handler struct {
	*transport.BaseHandler
	Service   ServiceAPI
	maxUpload int64
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		maxUpload:   document.UploadLimit(0),
	}
}

// WithUploadLimit sets the document size the multipart body is capped around.
func (h *Handler) WithUploadLimit(maxBytes int64) *Handler {
	h.maxUpload = document.UploadLimit(maxBytes)
	return h
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request, op string) (*user.Actor, bool) {
	actor, ok := errors.ActorFromContext(r.Context())
	if !ok {
		h.Logger.Error(op + ": actor not found in context")
		h.HandleServiceError(w, errors.AuthenticationRequired())
		return nil, false
	}
	return actor, true
}

// readForm pulls the claim fields and the optional document of a multipart
// request. The returned closer must be called once the upload is consumed.
func (h *Handler) readForm(w http.ResponseWriter, r *http.Request) (ClaimInputDTO, *document.Upload, func(), error) {
	file, header, err := h.FormFile(w, r, "document", h.maxUpload+transport.FormOverhead)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = document.TooLarge(h.maxUpload)
		}
		return ClaimInputDTO{}, nil, func() {}, err
	}

	dto := ClaimInputDTO{
		HoursWorked: r.FormValue("hours_worked"),
		WorkMonth:   r.FormValue("work_month"),
	}

	if file == nil {
		return dto, nil, func() {}, nil
	}

	upload := &document.Upload{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
	return dto, upload, func() { file.Close() }, nil
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "Submit")
	if !ok {
		return
	}

	dto, upload, closeUpload, err := h.readForm(w, r)
	defer closeUpload()
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	c, err := h.Service.Submit(r.Context(), actor, dto, upload)
	if err != nil {
		logger.From(r.Context()).Warn("Submit: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteSuccess(w, http.StatusCreated, "Claim submitted successfully.", c)
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "Edit")
	if !ok {
		return
	}

	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	dto, upload, closeUpload, err := h.readForm(w, r)
	defer closeUpload()
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	c, err := h.Service.Edit(r.Context(), actor, id, dto, upload)
	if err != nil {
		logger.From(r.Context()).Warn("Edit: service error", "error", err, "claim_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Claim updated successfully.", c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "Delete")
	if !ok {
		return
	}

	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.Delete(r.Context(), actor, id); err != nil {
		logger.From(r.Context()).Warn("Delete: service error", "error", err, "claim_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Claim deleted successfully.", nil)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, "Verify", h.Service.Verify, "Claim verified successfully.")
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, "Reject", h.Service.Reject, "Claim rejected successfully.")
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, "Approve", h.Service.Approve, "Claim approved successfully.")
}

type transitionFunc func(ctx context.Context, actor *user.Actor, id int64, remarks string) (*Claim, error)

func (h *Handler) applyTransition(w http.ResponseWriter, r *http.Request, op string, fn transitionFunc, message string) {
	actor, ok := h.actor(w, r, op)
	if !ok {
		return
	}

	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto TransitionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	c, err := fn(r.Context(), actor, id, dto.Remarks)
	if err != nil {
		logger.From(r.Context()).Warn(op+": service error", "error", err, "claim_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, message, c)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "Get")
	if !ok {
		return
	}

	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	c, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "ListOwn")
	if !ok {
		return
	}

	claims, err := h.Service.ListOwn(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"claims": claims})
}

func (h *Handler) ListForVerification(w http.ResponseWriter, r *http.Request) {
	h.listDepartment(w, r, "ListForVerification", h.Service.ListForVerification)
}

func (h *Handler) ListForApproval(w http.ResponseWriter, r *http.Request) {
	h.listDepartment(w, r, "ListForApproval", h.Service.ListForApproval)
}

func (h *Handler) listDepartment(w http.ResponseWriter, r *http.Request, op string,
	fn func(context.Context, *user.Actor, *Status) ([]*Claim, error)) {
	actor, ok := h.actor(w, r, op)
	if !ok {
		return
	}

	var status *Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := ParseStatus(raw)
		if err != nil {
			h.HandleServiceError(w, errors.NewValidationError(fmt.Sprintf("unknown status %q", raw), errors.ErrCodeValidationFailed))
			return
		}
		status = &parsed
	}

	claims, err := fn(r.Context(), actor, status)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"claims": claims})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "Summary")
	if !ok {
		return
	}

	summary, err := h.Service.DepartmentSummary(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "History")
	if !ok {
		return
	}

	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	entries, err := h.Service.History(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"history": entries})
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "Document")
	if !ok {
		return
	}

	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	rc, doc, err := h.Service.OpenDocument(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	defer rc.Close()

	name := doc.OriginalName
	if name == "" {
		name = fmt.Sprintf("claim_%d.pdf", id)
	}
	w.Header().Set("Content-Type", document.PDFContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	if doc.SizeBytes > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", doc.SizeBytes))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.Logger.Error("Document: failed to stream", "error", err, "claim_id", id)
	}
}
