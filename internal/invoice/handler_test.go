package invoice_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/core/user"
	"github.com/frahmantamala/time2pay/internal/invoice"
)

var _ = Describe("Handler", func() {
	var (
		repo   *mockInvoiceRepository
		router chi.Router
	)

	BeforeEach(func() {
		repo = &mockInvoiceRepository{invoices: map[int64]invoice.Invoice{1: sampleInvoice(1)}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		handler := invoice.NewHandler(invoice.NewService(repo, invoice.NewGenerator(), logger))

		hr := &user.Actor{EmployeeID: 99, Role: user.RoleHRAdmin, DepartmentID: 5}
		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(internal.ContextWithActor(r.Context(), hr)))
			})
		})
		router.Get("/hr/claims", handler.ListClaims)
		router.Get("/hr/claims/{id}/invoice", handler.Get)
		router.Get("/hr/claims/{id}/invoice.pdf", handler.Download)
		router.Get("/hr/invoices/export", handler.Export)
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	It("returns the invoice view", func() {
		rec := get("/hr/claims/1/invoice")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var body map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		data := body["data"].(map[string]interface{})
		Expect(data["total_amount"]).To(Equal("4000"))
		Expect(data["lecturer_name"]).To(Equal("Lerato Mokoena"))
	})

	It("streams the PDF as an attachment", func() {
		rec := get("/hr/claims/1/invoice.pdf")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/pdf"))
		Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring(`filename="Invoice_1.pdf"`))
		Expect(rec.Body.String()).To(HavePrefix("%PDF"))
	})

	It("maps a missing claim to 404", func() {
		Expect(get("/hr/claims/42/invoice.pdf").Code).To(Equal(http.StatusNotFound))
	})

	It("rejects an export with nothing selected", func() {
		rec := get("/hr/invoices/export?status=Rejected")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		var body map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["success"]).To(BeFalse())
		Expect(body["message"]).To(Equal("No invoices found for selected filters."))
	})

	It("returns a zip for the export", func() {
		rec := get("/hr/invoices/export?month=2025-06")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/zip"))
		Expect(rec.Body.String()).To(HavePrefix("PK"))
	})

	It("validates query filters", func() {
		Expect(get("/hr/claims?month=06-2025").Code).To(Equal(http.StatusBadRequest))
	})
})
