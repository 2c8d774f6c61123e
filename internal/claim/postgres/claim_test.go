package postgres

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/claim"
	claimDatamodel "github.com/frahmantamala/time2pay/internal/core/datamodel/claim"
	employeeDatamodel "github.com/frahmantamala/time2pay/internal/core/datamodel/employee"
)

func TestClaimRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ClaimRepository Suite")
}

var _ = Describe("ClaimRepository", func() {
	var (
		db   *gorm.DB
		repo claim.Repository
		ctx  context.Context

		lecturer employeeDatamodel.Employee
		outsider employeeDatamodel.Employee
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(
			&employeeDatamodel.Department{},
			&employeeDatamodel.Employee{},
			&claimDatamodel.Claim{},
			&claimDatamodel.SupportingDocument{},
			&claimDatamodel.Verification{},
			&claimDatamodel.Approval{},
		)
		Expect(err).NotTo(HaveOccurred())

		software := employeeDatamodel.Department{Name: "Diploma in Software Development", HourlyRate: decimal.RequireFromString("367.50")}
		web := employeeDatamodel.Department{Name: "Diploma in Web Development", HourlyRate: decimal.RequireFromString("369.42")}
		Expect(db.Create(&software).Error).NotTo(HaveOccurred())
		Expect(db.Create(&web).Error).NotTo(HaveOccurred())

		lecturer = employeeDatamodel.Employee{Name: "Lerato", Email: "lerato@example.com", DepartmentID: software.ID, Role: "Lecturer"}
		outsider = employeeDatamodel.Employee{Name: "Sipho", Email: "sipho@example.com", DepartmentID: web.ID, Role: "Lecturer"}
		Expect(db.Create(&lecturer).Error).NotTo(HaveOccurred())
		Expect(db.Create(&outsider).Error).NotTo(HaveOccurred())

		repo = NewClaimRepository(db)
		ctx = context.Background()
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	create := func(employeeID int64, status claim.Status) *claim.Claim {
		c := &claim.Claim{
			EmployeeID:  employeeID,
			HoursWorked: decimal.RequireFromString("10"),
			WorkMonth:   "2025-06",
			Status:      status,
			TotalAmount: decimal.RequireFromString("3675.00"),
		}
		Expect(repo.Create(ctx, c)).To(Succeed())
		Expect(c.ID).NotTo(BeZero())
		return c
	}

	Describe("GetByID", func() {
		It("joins the owner and department", func() {
			c := create(lecturer.ID, claim.StatusPending)

			got, err := repo.GetByID(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.EmployeeName).To(Equal("Lerato"))
			Expect(got.DepartmentID).To(Equal(lecturer.DepartmentID))
			Expect(got.DepartmentName).To(Equal("Diploma in Software Development"))
			Expect(got.TotalAmount.Equal(decimal.RequireFromString("3675"))).To(BeTrue())
		})

		It("maps a missing row to not found", func() {
			_, err := repo.GetByID(ctx, 404)
			Expect(err).To(MatchError(errors.ErrClaimNotFound))
		})

		It("reads legacy lower case statuses", func() {
			c := create(lecturer.ID, claim.StatusPending)
			Expect(db.Model(&claimDatamodel.Claim{}).Where("id = ?", c.ID).Update("status", "deleted").Error).To(Succeed())

			got, err := repo.GetForUpdate(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(claim.StatusDeleted))
		})
	})

	Describe("conditional updates", func() {
		It("only moves a claim out of the expected state", func() {
			c := create(lecturer.ID, claim.StatusPending)

			ok, err := repo.UpdateStatus(ctx, c.ID, claim.StatusPending, claim.StatusVerified)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			ok, err = repo.UpdateStatus(ctx, c.ID, claim.StatusPending, claim.StatusRejected)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			got, err := repo.GetByID(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(claim.StatusVerified))
		})

		It("soft deletes", func() {
			c := create(lecturer.ID, claim.StatusRejected)
			ok, err := repo.SoftDelete(ctx, c.ID, claim.StatusRejected)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			got, err := repo.GetByID(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsDeleted).To(BeTrue())
			Expect(got.Status).To(Equal(claim.StatusDeleted))

			own, err := repo.ListByEmployee(ctx, lecturer.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(own).To(BeEmpty())
		})
	})

	Describe("WithinTransaction", func() {
		It("rolls back every write when the callback fails", func() {
			c := create(lecturer.ID, claim.StatusPending)

			err := repo.WithinTransaction(ctx, func(tx claim.Repository) error {
				if _, err := tx.UpdateStatus(ctx, c.ID, claim.StatusPending, claim.StatusVerified); err != nil {
					return err
				}
				if err := tx.AppendVerification(ctx, c.ID, lecturer.ID, claim.StatusVerified, nil); err != nil {
					return err
				}
				return claim.InvalidTransition(claim.StatusVerified, claim.ActionVerify)
			})
			Expect(err).To(MatchError("Verified claims cannot be verified"))

			got, err := repo.GetByID(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(claim.StatusPending))

			history, err := repo.History(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(BeEmpty())
		})
	})

	Describe("documents", func() {
		It("replaces document rows and returns the previous ones", func() {
			c := create(lecturer.ID, claim.StatusPending)
			Expect(repo.AddDocument(ctx, &claim.SupportingDocument{ClaimID: c.ID, FilePath: "documents/a.pdf", OriginalName: "a.pdf"})).To(Succeed())

			old, err := repo.ReplaceDocuments(ctx, c.ID, &claim.SupportingDocument{ClaimID: c.ID, FilePath: "documents/b.pdf", OriginalName: "b.pdf"})
			Expect(err).NotTo(HaveOccurred())
			Expect(old).To(HaveLen(1))
			Expect(old[0].FilePath).To(Equal("documents/a.pdf"))

			docs, err := repo.Documents(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].FilePath).To(Equal("documents/b.pdf"))
		})
	})

	Describe("department queries", func() {
		It("lists and counts only the department's active claims", func() {
			create(lecturer.ID, claim.StatusPending)
			create(lecturer.ID, claim.StatusVerified)
			deleted := create(lecturer.ID, claim.StatusPending)
			_, err := repo.SoftDelete(ctx, deleted.ID, claim.StatusPending)
			Expect(err).NotTo(HaveOccurred())
			create(outsider.ID, claim.StatusPending)

			all, err := repo.ListByDepartment(ctx, claim.ListFilter{DepartmentID: lecturer.DepartmentID})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))

			pending := claim.StatusPending
			onlyPending, err := repo.ListByDepartment(ctx, claim.ListFilter{DepartmentID: lecturer.DepartmentID, Status: &pending})
			Expect(err).NotTo(HaveOccurred())
			Expect(onlyPending).To(HaveLen(1))

			counts, err := repo.CountByStatus(ctx, lecturer.DepartmentID)
			Expect(err).NotTo(HaveOccurred())
			Expect(counts).To(Equal(map[claim.Status]int64{claim.StatusPending: 1, claim.StatusVerified: 1}))
		})

		It("loads the employee profile with the current rate", func() {
			profile, err := repo.EmployeeProfile(ctx, outsider.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.DepartmentName).To(Equal("Diploma in Web Development"))
			Expect(profile.HourlyRate.Equal(decimal.RequireFromString("369.42"))).To(BeTrue())

			_, err = repo.EmployeeProfile(ctx, 999)
			Expect(err).To(MatchError(errors.ErrEmployeeNotFound))
		})
	})

	Describe("History", func() {
		It("merges verifications and approvals with actor names", func() {
			c := create(lecturer.ID, claim.StatusPending)
			remarks := "ok"
			Expect(repo.AppendVerification(ctx, c.ID, outsider.ID, claim.StatusVerified, &remarks)).To(Succeed())
			Expect(repo.AppendApproval(ctx, c.ID, outsider.ID, claim.StatusApproved, nil)).To(Succeed())

			history, err := repo.History(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(2))
			Expect(history[0].Kind).To(Equal(claim.AuditKindVerification))
			Expect(history[0].ActorName).To(Equal("Sipho"))
			Expect(*history[0].Remarks).To(Equal("ok"))
			Expect(history[1].Status).To(Equal(claim.StatusApproved))
		})
	})
})
