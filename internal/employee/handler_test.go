package employee_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/core/user"
	"github.com/frahmantamala/time2pay/internal/employee"
)

var _ = Describe("Handler", func() {
	var (
		repo   *mockEmployeeRepository
		router chi.Router
		actor  *user.Actor
	)

	BeforeEach(func() {
		repo = newMockEmployeeRepository()
		repo.departments[1] = &employee.Department{ID: 1, Name: "Diploma in Software Development", HourlyRate: decimal.RequireFromString("367.50")}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		handler := employee.NewHandler(employee.NewService(repo, bcrypt.MinCost, logger))

		actor = nil
		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if actor != nil {
					r = r.WithContext(internal.ContextWithActor(r.Context(), actor))
				}
				next.ServeHTTP(w, r)
			})
		})
		router.Post("/employees/register", handler.Register)
		router.Get("/departments", handler.ListDepartments)
		router.Get("/hr/employees", handler.ListEmployees)
		router.Patch("/hr/employees/{id}/role", handler.UpdateEmployeeRole)
	})

	serve := func(method, path, body string) (int, map[string]interface{}) {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		var out map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		return rec.Code, out
	}

	It("registers a lecturer", func() {
		code, body := serve(http.MethodPost, "/employees/register",
			`{"name":"Ayanda","email":"ayanda@example.com","department_id":1,"password":"Str0ng!pw","confirm_password":"Str0ng!pw"}`)

		Expect(code).To(Equal(http.StatusCreated))
		Expect(body["success"]).To(BeTrue())
		data := body["data"].(map[string]interface{})
		Expect(data["role"]).To(Equal("Lecturer"))
		Expect(data).NotTo(HaveKey("password"))
	})

	It("reports a duplicate email as a conflict", func() {
		payload := `{"name":"Ayanda","email":"ayanda@example.com","department_id":1,"password":"Str0ng!pw","confirm_password":"Str0ng!pw"}`
		code, _ := serve(http.MethodPost, "/employees/register", payload)
		Expect(code).To(Equal(http.StatusCreated))

		code, body := serve(http.MethodPost, "/employees/register", payload)
		Expect(code).To(Equal(http.StatusConflict))
		Expect(body["message"]).To(Equal("Email already in use."))
	})

	It("lists departments publicly", func() {
		code, body := serve(http.MethodGet, "/departments", "")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body["departments"]).To(HaveLen(1))
	})

	It("keeps HR endpoints away from lecturers", func() {
		actor = &user.Actor{EmployeeID: 5, Role: user.RoleLecturer, DepartmentID: 1}
		code, body := serve(http.MethodGet, "/hr/employees", "")
		Expect(code).To(Equal(http.StatusForbidden))
		Expect(body["code"]).To(Equal("ROLE_NOT_PERMITTED"))
	})

	It("changes a role", func() {
		repo.employees[7] = &employee.Employee{ID: 7, Name: "Sam", Email: "sam@example.com", Role: user.RoleLecturer, DepartmentID: 1}
		actor = &user.Actor{EmployeeID: 1, Role: user.RoleHRAdmin}

		code, body := serve(http.MethodPatch, "/hr/employees/7/role", `{"role":"Manager"}`)
		Expect(code).To(Equal(http.StatusOK))
		Expect(body["data"].(map[string]interface{})["role"]).To(Equal("Manager"))
	})
})
