package claim_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/claim"
	"github.com/frahmantamala/time2pay/internal/core/user"
)

var _ = Describe("Handler", func() {
	var (
		repo   *mockClaimRepository
		store  *mockStore
		router chi.Router
		actor  *user.Actor
		month  string
	)

	BeforeEach(func() {
		repo = newMockClaimRepository()
		store = newMockStore()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service := claim.NewService(repo, store, nil, 0, logger)
		handler := claim.NewHandler(service)
		month = time.Now().Format("2006-01")

		rate := decimal.RequireFromString("367.50")
		repo.addProfile(&claim.Profile{EmployeeID: 1, Name: "Lecturer", DepartmentID: 1, HourlyRate: rate})
		repo.addProfile(&claim.Profile{EmployeeID: 2, Name: "Coordinator", DepartmentID: 1, HourlyRate: rate})

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if actor != nil {
					r = r.WithContext(internal.ContextWithActor(r.Context(), actor))
				}
				next.ServeHTTP(w, r)
			})
		})
		router.Post("/claims", handler.Submit)
		router.Get("/claims/{id}", handler.Get)
		router.Get("/claims/{id}/document", handler.Document)
		router.Post("/claims/{id}/verify", handler.Verify)
		router.Post("/claims/{id}/approve", handler.Approve)
	})

	multipartRequest := func(fields map[string]string, fileName string, content []byte) *http.Request {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		for k, v := range fields {
			Expect(writer.WriteField(k, v)).To(Succeed())
		}
		if fileName != "" {
			part, err := writer.CreateFormFile("document", fileName)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write(content)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(writer.Close()).To(Succeed())

		req := httptest.NewRequest(http.MethodPost, "/claims", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req
	}

	decode := func(rec *httptest.ResponseRecorder) map[string]interface{} {
		var out map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		return out
	}

	It("accepts a multipart submission", func() {
		// Given
		actor = &user.Actor{EmployeeID: 1, Role: user.RoleLecturer, DepartmentID: 1}
		req := multipartRequest(map[string]string{"hours_worked": "10", "work_month": month}, "march.pdf", []byte("%PDF-1.4 test"))

		// When
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		// Then
		Expect(rec.Code).To(Equal(http.StatusCreated))
		body := decode(rec)
		Expect(body["success"]).To(BeTrue())
		Expect(body["message"]).To(Equal("Claim submitted successfully."))
		data := body["data"].(map[string]interface{})
		Expect(data["status"]).To(Equal("Pending"))
		Expect(data["total_amount"]).To(Equal("3675"))
	})

	It("refuses a submission without a document", func() {
		actor = &user.Actor{EmployeeID: 1, Role: user.RoleLecturer, DepartmentID: 1}
		req := multipartRequest(map[string]string{"hours_worked": "10", "work_month": month}, "", nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		body := decode(rec)
		Expect(body["success"]).To(BeFalse())
		Expect(body["type"]).To(Equal("VALIDATION_ERROR"))
		Expect(body["message"]).To(Equal("A supporting PDF document is required."))
		Expect(repo.claims).To(BeEmpty())
	})

	DescribeTable("caps the multipart body before parsing",
		func(declareLength bool) {
			actor = &user.Actor{EmployeeID: 1, Role: user.RoleLecturer, DepartmentID: 1}
			content := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("a"), 7*1024*1024)...)
			req := multipartRequest(map[string]string{"hours_worked": "10", "work_month": month}, "huge.pdf", content)
			if !declareLength {
				req.ContentLength = -1
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			body := decode(rec)
			Expect(body["type"]).To(Equal("VALIDATION_ERROR"))
			Expect(body["message"]).To(Equal("File size must not exceed 5 MB."))
			Expect(repo.claims).To(BeEmpty())
			Expect(store.count()).To(Equal(0))
		},
		Entry("declared content length", true),
		Entry("streamed without a length", false),
	)

	It("answers 401 without an actor", func() {
		actor = nil
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/claims/1", nil))

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(decode(rec)["code"]).To(Equal("AUTHENTICATION_REQUIRED"))
	})

	It("explains an illegal transition in the message", func() {
		actor = &user.Actor{EmployeeID: 1, Role: user.RoleLecturer, DepartmentID: 1}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, multipartRequest(map[string]string{"hours_worked": "2", "work_month": month}, "a.pdf", []byte("%PDF")))
		Expect(rec.Code).To(Equal(http.StatusCreated))

		actor = &user.Actor{EmployeeID: 2, Role: user.RoleCoordinator, DepartmentID: 1}
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/claims/1/verify", strings.NewReader(`{"remarks":"fine"}`)))
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/claims/1/verify", nil))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		body := decode(rec)
		Expect(body["message"]).To(Equal("Verified claims cannot be verified"))
		Expect(body["code"]).To(Equal("INVALID_CLAIM_TRANSITION"))

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/claims/1/approve", nil))
		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("streams the document as a PDF", func() {
		actor = &user.Actor{EmployeeID: 1, Role: user.RoleLecturer, DepartmentID: 1}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, multipartRequest(map[string]string{"hours_worked": "2", "work_month": month}, "a.pdf", []byte("%PDF-1.7")))
		Expect(rec.Code).To(Equal(http.StatusCreated))

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/claims/1/document", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/pdf"))
		Expect(rec.Body.String()).To(Equal("%PDF-1.7"))
	})

	It("rejects a non numeric id", func() {
		actor = &user.Actor{EmployeeID: 1, Role: user.RoleLecturer, DepartmentID: 1}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/claims/abc", nil))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})
})
