package claim_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/claim"
	"github.com/frahmantamala/time2pay/internal/core/events"
	"github.com/frahmantamala/time2pay/internal/core/user"
	"github.com/frahmantamala/time2pay/internal/document"
)

func pdfUpload(size int) *document.Upload {
	body := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("a"), size)...)
	return &document.Upload{
		Name:        "timesheet.pdf",
		Size:        int64(len(body)),
		ContentType: document.PDFContentType,
		Body:        bytes.NewReader(body),
	}
}

var _ = Describe("Service", func() {
	var (
		repo      *mockClaimRepository
		store     *mockStore
		publisher *mockPublisher
		service   *claim.Service
		ctx       context.Context

		lecturer    *user.Actor
		coordinator *user.Actor
		manager     *user.Actor
		outsider    *user.Actor
		month       string
	)

	const (
		deptSoftware = int64(1)
		deptWeb      = int64(2)
	)

	BeforeEach(func() {
		repo = newMockClaimRepository()
		store = newMockStore()
		publisher = &mockPublisher{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = claim.NewService(repo, store, publisher, 0, logger)
		ctx = context.Background()
		month = time.Now().AddDate(0, -1, 0).Format("2006-01")

		rate := decimal.RequireFromString("400.00")
		repo.addProfile(&claim.Profile{EmployeeID: 10, Name: "Lerato", DepartmentID: deptSoftware, DepartmentName: "Software", HourlyRate: rate})
		repo.addProfile(&claim.Profile{EmployeeID: 20, Name: "Cebo", DepartmentID: deptSoftware, DepartmentName: "Software", HourlyRate: rate})
		repo.addProfile(&claim.Profile{EmployeeID: 30, Name: "Mpho", DepartmentID: deptSoftware, DepartmentName: "Software", HourlyRate: rate})
		repo.addProfile(&claim.Profile{EmployeeID: 40, Name: "Sipho", DepartmentID: deptWeb, DepartmentName: "Web", HourlyRate: decimal.RequireFromString("369.42")})

		lecturer = &user.Actor{EmployeeID: 10, Role: user.RoleLecturer, DepartmentID: deptSoftware}
		coordinator = &user.Actor{EmployeeID: 20, Role: user.RoleCoordinator, DepartmentID: deptSoftware}
		manager = &user.Actor{EmployeeID: 30, Role: user.RoleManager, DepartmentID: deptSoftware}
		outsider = &user.Actor{EmployeeID: 40, Role: user.RoleCoordinator, DepartmentID: deptWeb}
	})

	submit := func(hours string) *claim.Claim {
		c, err := service.Submit(ctx, lecturer, claim.ClaimInputDTO{HoursWorked: hours, WorkMonth: month}, pdfUpload(1024))
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	Describe("end to end", func() {
		It("moves a claim from submission to approval and then refuses to verify it", func() {
			// Given
			c, err := service.Submit(ctx, lecturer,
				claim.ClaimInputDTO{HoursWorked: "10", WorkMonth: month}, pdfUpload(2*1024*1024-16))
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Status).To(Equal(claim.StatusPending))
			Expect(c.TotalAmount.Equal(decimal.RequireFromString("4000.00"))).To(BeTrue())
			Expect(c.Documents).To(HaveLen(1))
			Expect(store.count()).To(Equal(1))

			// When
			verified, err := service.Verify(ctx, coordinator, c.ID, "")
			Expect(err).NotTo(HaveOccurred())
			approved, err := service.Approve(ctx, manager, c.ID, "Looks right")
			Expect(err).NotTo(HaveOccurred())

			// Then
			Expect(verified.Status).To(Equal(claim.StatusVerified))
			Expect(approved.Status).To(Equal(claim.StatusApproved))
			Expect(repo.verificationCount()).To(Equal(1))
			Expect(repo.approvalCount()).To(Equal(1))

			_, err = service.Verify(ctx, coordinator, c.ID, "")
			Expect(err).To(MatchError("Approved claims cannot be verified"))
			Expect(repo.verificationCount()).To(Equal(1))
			Expect(repo.approvalCount()).To(Equal(1))

			Expect(publisher.types()).To(Equal([]string{
				events.EventTypeClaimSubmitted,
				events.EventTypeClaimVerified,
				events.EventTypeClaimApproved,
			}))
		})
	})

	Describe("Submit", func() {
		It("rounds the total to two places", func() {
			repo.profiles[10].HourlyRate = decimal.RequireFromString("423.55")
			c := submit("7.33")
			Expect(c.TotalAmount.String()).To(Equal("3104.62"))
		})

		It("computes the total from the hours as stored", func() {
			c := submit("10.500")
			Expect(c.HoursWorked.String()).To(Equal("10.5"))
			Expect(c.TotalAmount.Equal(decimal.RequireFromString("4200.00"))).To(BeTrue())
			Expect(c.TotalAmount.Equal(claim.ComputeTotal(c.HoursWorked.Round(2), decimal.RequireFromString("400.00")))).To(BeTrue())
		})

		It("reports excess precision as a validation failure on hours_worked", func() {
			_, err := service.Submit(ctx, lecturer, claim.ClaimInputDTO{HoursWorked: "0.001", WorkMonth: month}, pdfUpload(10))
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			details, ok := appErr.Details.(errors.ValidationErrors)
			Expect(ok).To(BeTrue())
			Expect(details.Errors[0].Field).To(Equal("hours_worked"))
			Expect(details.Errors[0].Code).To(Equal(string(errors.ErrCodeInvalidHours)))
			Expect(store.count()).To(Equal(0))
		})

		It("rejects a 6 MB document before anything is written", func() {
			_, err := service.Submit(ctx, lecturer, claim.ClaimInputDTO{HoursWorked: "5", WorkMonth: month}, pdfUpload(6*1024*1024))
			Expect(err).To(HaveOccurred())
			Expect(repo.claims).To(BeEmpty())
			Expect(store.count()).To(Equal(0))
		})

		It("rejects a .docx document before anything is written", func() {
			upload := pdfUpload(100)
			upload.Name = "timesheet.docx"
			_, err := service.Submit(ctx, lecturer, claim.ClaimInputDTO{HoursWorked: "5", WorkMonth: month}, upload)
			Expect(err).To(HaveOccurred())
			Expect(repo.claims).To(BeEmpty())
			Expect(store.count()).To(Equal(0))
		})

		DescribeTable("rejects invalid input",
			func(hours, workMonth string) {
				_, err := service.Submit(ctx, lecturer, claim.ClaimInputDTO{HoursWorked: hours, WorkMonth: workMonth}, pdfUpload(10))
				appErr, ok := errors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))
				Expect(repo.claims).To(BeEmpty())
			},
			Entry("zero hours", "0", "2025-01"),
			Entry("too many hours", "140.5", "2025-01"),
			Entry("more precision than the column keeps", "10.005", "2025-01"),
			Entry("hours that round to zero", "0.001", "2025-01"),
			Entry("not a number", "ten", "2025-01"),
			Entry("future month", "10", time.Now().AddDate(0, 2, 0).Format("2006-01")),
			Entry("bad month", "10", "January"),
		)

		It("removes the stored file when the transaction fails", func() {
			repo.documentError = errors.NewInternalError("failed to save supporting document", stderrors.New("disk full"))
			_, err := service.Submit(ctx, lecturer, claim.ClaimInputDTO{HoursWorked: "5", WorkMonth: month}, pdfUpload(10))
			Expect(err).To(HaveOccurred())
			Expect(repo.claims).To(BeEmpty())
			Expect(store.count()).To(Equal(0))
			Expect(store.deleted).To(HaveLen(1))
		})

		It("is limited to lecturers", func() {
			_, err := service.Submit(ctx, coordinator, claim.ClaimInputDTO{HoursWorked: "5", WorkMonth: month}, pdfUpload(10))
			Expect(err).To(MatchError(errors.ErrRoleNotPermitted))
		})
	})

	Describe("Verify and Reject", func() {
		It("refuses coordinators from another department", func() {
			c := submit("10")
			_, err := service.Verify(ctx, outsider, c.ID, "")
			Expect(err).To(MatchError(errors.ErrOutsideDepartment))
			Expect(repo.verificationCount()).To(Equal(0))
		})

		It("uses the stored department rather than the session snapshot", func() {
			c := submit("10")
			stale := *outsider
			stale.DepartmentID = deptSoftware
			_, err := service.Verify(ctx, &stale, c.ID, "")
			Expect(err).To(MatchError(errors.ErrOutsideDepartment))
		})

		It("records remarks on rejection and refuses a second rejection", func() {
			c := submit("10")
			rejected, err := service.Reject(ctx, coordinator, c.ID, "  Missing signature  ")
			Expect(err).NotTo(HaveOccurred())
			Expect(rejected.Status).To(Equal(claim.StatusRejected))

			_, err = service.Reject(ctx, coordinator, c.ID, "again")
			Expect(err).To(MatchError("Rejected claims cannot be rejected"))
			Expect(repo.verifications).To(HaveLen(1))
			Expect(*repo.verifications[0].Remarks).To(Equal("Missing signature"))
			Expect(repo.verifications[0].Status).To(Equal(claim.StatusRejected))
		})

		It("refuses deleted claims", func() {
			c := submit("10")
			Expect(service.Delete(ctx, lecturer, c.ID)).To(Succeed())
			_, err := service.Verify(ctx, coordinator, c.ID, "")
			Expect(err).To(MatchError("Deleted claims cannot be verified"))
		})

		It("reports a missing claim as not found", func() {
			_, err := service.Verify(ctx, coordinator, 999, "")
			Expect(err).To(MatchError(errors.ErrClaimNotFound))
		})

		It("reports a lost race as a conflict without an audit row", func() {
			c := submit("10")
			repo.updateMisses = 1
			repo.claims[c.ID].Status = claim.StatusPending

			_, err := service.Verify(ctx, coordinator, c.ID, "")
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(errors.ErrCodeTransitionConflict))
			Expect(repo.verificationCount()).To(Equal(0))
		})
	})

	Describe("Approve", func() {
		It("approves a pending claim without a prior verification", func() {
			c := submit("10")
			approved, err := service.Approve(ctx, manager, c.ID, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(approved.Status).To(Equal(claim.StatusApproved))
			Expect(repo.approvalCount()).To(Equal(1))
			Expect(repo.verificationCount()).To(Equal(0))
		})

		It("overturns a rejection", func() {
			c := submit("10")
			_, err := service.Reject(ctx, coordinator, c.ID, "Timesheet unsigned")
			Expect(err).NotTo(HaveOccurred())
			approved, err := service.Approve(ctx, manager, c.ID, "Signed copy received")
			Expect(err).NotTo(HaveOccurred())
			Expect(approved.Status).To(Equal(claim.StatusApproved))
		})

		It("never approves a claim twice", func() {
			c := submit("10")
			_, err := service.Approve(ctx, manager, c.ID, "")
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Approve(ctx, manager, c.ID, "")
			Expect(err).To(MatchError("Approved claims cannot be approved"))
			Expect(repo.approvalCount()).To(Equal(1))
		})

		It("refuses deleted claims", func() {
			c := submit("10")
			Expect(service.Delete(ctx, lecturer, c.ID)).To(Succeed())
			_, err := service.Approve(ctx, manager, c.ID, "")
			Expect(err).To(MatchError("Deleted claims cannot be approved"))
			Expect(repo.approvalCount()).To(Equal(0))
		})

		It("is limited to managers", func() {
			c := submit("10")
			_, err := service.Verify(ctx, coordinator, c.ID, "")
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Approve(ctx, coordinator, c.ID, "")
			Expect(err).To(MatchError(errors.ErrRoleNotPermitted))
		})
	})

	Describe("Edit", func() {
		It("resets a rejected claim to pending and recomputes the amount", func() {
			c := submit("10")
			_, err := service.Reject(ctx, coordinator, c.ID, "wrong hours")
			Expect(err).NotTo(HaveOccurred())

			repo.profiles[10].HourlyRate = decimal.RequireFromString("422.00")
			edited, err := service.Edit(ctx, lecturer, c.ID, claim.ClaimInputDTO{HoursWorked: "12.5", WorkMonth: month}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(edited.Status).To(Equal(claim.StatusPending))
			Expect(edited.TotalAmount.Equal(decimal.RequireFromString("5275.00"))).To(BeTrue())
			Expect(edited.Documents).To(HaveLen(1))
		})

		It("replaces the document and removes the old file after commit", func() {
			c := submit("10")
			oldKey := c.Documents[0].FilePath

			edited, err := service.Edit(ctx, lecturer, c.ID, claim.ClaimInputDTO{HoursWorked: "8", WorkMonth: month}, pdfUpload(64))
			Expect(err).NotTo(HaveOccurred())
			Expect(edited.Documents).To(HaveLen(1))
			Expect(edited.Documents[0].FilePath).NotTo(Equal(oldKey))
			Expect(store.deleted).To(ConsistOf(oldKey))
			Expect(store.count()).To(Equal(1))
		})

		It("keeps the old file when the replacement fails", func() {
			c := submit("10")
			oldKey := c.Documents[0].FilePath
			repo.documentError = stderrors.New("insert failed")

			_, err := service.Edit(ctx, lecturer, c.ID, claim.ClaimInputDTO{HoursWorked: "8", WorkMonth: month}, pdfUpload(64))
			Expect(err).To(HaveOccurred())
			Expect(store.files).To(HaveKey(oldKey))
			Expect(store.count()).To(Equal(1))
			Expect(repo.documents[c.ID]).To(HaveLen(1))
			Expect(repo.claims[c.ID].HoursWorked.Equal(decimal.NewFromInt(10))).To(BeTrue())
		})

		It("refuses verified claims and other lecturers", func() {
			c := submit("10")
			other := &user.Actor{EmployeeID: 99, Role: user.RoleLecturer, DepartmentID: deptSoftware}
			_, err := service.Edit(ctx, other, c.ID, claim.ClaimInputDTO{HoursWorked: "8", WorkMonth: month}, nil)
			Expect(err).To(MatchError(errors.ErrNotClaimOwner))

			_, err = service.Verify(ctx, coordinator, c.ID, "")
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Edit(ctx, lecturer, c.ID, claim.ClaimInputDTO{HoursWorked: "8", WorkMonth: month}, nil)
			Expect(err).To(MatchError("Verified claims cannot be edited"))
		})
	})

	Describe("Delete", func() {
		It("soft deletes and hides the claim from active queries", func() {
			c := submit("10")
			Expect(service.Delete(ctx, lecturer, c.ID)).To(Succeed())

			Expect(repo.claims[c.ID].IsDeleted).To(BeTrue())
			Expect(repo.claims[c.ID].Status).To(Equal(claim.StatusDeleted))

			own, err := service.ListOwn(ctx, lecturer)
			Expect(err).NotTo(HaveOccurred())
			Expect(own).To(BeEmpty())

			_, err = service.Get(ctx, coordinator, c.ID)
			Expect(err).To(MatchError(errors.ErrClaimNotFound))
		})

		It("refuses approved claims", func() {
			c := submit("10")
			_, err := service.Verify(ctx, coordinator, c.ID, "")
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Approve(ctx, manager, c.ID, "")
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Delete(ctx, lecturer, c.ID)).To(MatchError("Approved claims cannot be deleted"))
		})
	})

	Describe("queries", func() {
		It("scopes department listings and summaries", func() {
			first := submit("10")
			submit("4")
			_, err := service.Verify(ctx, coordinator, first.ID, "")
			Expect(err).NotTo(HaveOccurred())

			pending := claim.StatusPending
			list, err := service.ListForVerification(ctx, coordinator, &pending)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].Actions).To(Equal([]claim.Action{claim.ActionVerify, claim.ActionReject}))

			own, err := service.ListOwn(ctx, lecturer)
			Expect(err).NotTo(HaveOccurred())
			for _, c := range own {
				if c.ID == first.ID {
					Expect(c.Actions).To(Equal([]claim.Action{claim.ActionDelete}))
				}
			}

			none, err := service.ListForVerification(ctx, outsider, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(none).To(BeEmpty())

			_, err = service.ListForApproval(ctx, coordinator, nil)
			Expect(err).To(MatchError(errors.ErrRoleNotPermitted))

			summary, err := service.DepartmentSummary(ctx, manager)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Total).To(Equal(int64(2)))
			Expect(summary.Counts).To(ContainElement(claim.StatusCount{Status: claim.StatusVerified, Total: 1}))
		})

		It("streams the supporting document to permitted readers only", func() {
			c := submit("10")

			rc, doc, err := service.OpenDocument(ctx, coordinator, c.ID)
			Expect(err).NotTo(HaveOccurred())
			defer rc.Close()
			data, _ := io.ReadAll(rc)
			Expect(string(data)).To(HavePrefix("%PDF"))
			Expect(doc.OriginalName).To(Equal("timesheet.pdf"))

			_, _, err = service.OpenDocument(ctx, outsider, c.ID)
			Expect(err).To(MatchError(errors.ErrOutsideDepartment))
		})

		It("returns the audit trail in order", func() {
			c := submit("10")
			_, err := service.Verify(ctx, coordinator, c.ID, "ok")
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Approve(ctx, manager, c.ID, "")
			Expect(err).NotTo(HaveOccurred())

			history, err := service.History(ctx, lecturer, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(2))
			Expect(history[0].Kind).To(Equal(claim.AuditKindVerification))
			Expect(history[1].Kind).To(Equal(claim.AuditKindApproval))
			Expect(history[1].Remarks).To(BeNil())
		})
	})
})
