package claim_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/claim"
	"github.com/frahmantamala/time2pay/internal/core/user"
)

var _ = Describe("Transition table", func() {
	DescribeTable("NextStatus",
		func(action claim.Action, current claim.Status, expected claim.Status, message string) {
			next, err := claim.NextStatus(action, current)
			if message == "" {
				Expect(err).NotTo(HaveOccurred())
				Expect(next).To(Equal(expected))
				return
			}
			Expect(err).To(MatchError(message))
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(errors.ErrCodeInvalidTransition))
		},
		Entry("verify pending", claim.ActionVerify, claim.StatusPending, claim.StatusVerified, ""),
		Entry("verify verified", claim.ActionVerify, claim.StatusVerified, claim.Status(""), "Verified claims cannot be verified"),
		Entry("verify approved", claim.ActionVerify, claim.StatusApproved, claim.Status(""), "Approved claims cannot be verified"),
		Entry("verify deleted", claim.ActionVerify, claim.StatusDeleted, claim.Status(""), "Deleted claims cannot be verified"),
		Entry("verify rejected", claim.ActionVerify, claim.StatusRejected, claim.Status(""), "Rejected claims cannot be verified"),
		Entry("reject pending", claim.ActionReject, claim.StatusPending, claim.StatusRejected, ""),
		Entry("reject rejected", claim.ActionReject, claim.StatusRejected, claim.Status(""), "Rejected claims cannot be rejected"),
		Entry("reject verified", claim.ActionReject, claim.StatusVerified, claim.Status(""), "Verified claims cannot be rejected"),
		Entry("approve verified", claim.ActionApprove, claim.StatusVerified, claim.StatusApproved, ""),
		Entry("approve pending", claim.ActionApprove, claim.StatusPending, claim.StatusApproved, ""),
		Entry("approve rejected", claim.ActionApprove, claim.StatusRejected, claim.StatusApproved, ""),
		Entry("approve approved", claim.ActionApprove, claim.StatusApproved, claim.Status(""), "Approved claims cannot be approved"),
		Entry("approve deleted", claim.ActionApprove, claim.StatusDeleted, claim.Status(""), "Deleted claims cannot be approved"),
		Entry("edit rejected", claim.ActionEdit, claim.StatusRejected, claim.StatusPending, ""),
		Entry("edit pending", claim.ActionEdit, claim.StatusPending, claim.StatusPending, ""),
		Entry("edit verified", claim.ActionEdit, claim.StatusVerified, claim.Status(""), "Verified claims cannot be edited"),
		Entry("edit approved", claim.ActionEdit, claim.StatusApproved, claim.Status(""), "Approved claims cannot be edited"),
		Entry("delete verified", claim.ActionDelete, claim.StatusVerified, claim.StatusDeleted, ""),
		Entry("delete approved", claim.ActionDelete, claim.StatusApproved, claim.Status(""), "Approved claims cannot be deleted"),
		Entry("delete deleted", claim.ActionDelete, claim.StatusDeleted, claim.Status(""), "Deleted claims cannot be deleted"),
	)

	DescribeTable("Authorize",
		func(role user.Role, action claim.Action, allowed bool) {
			_, err := claim.Authorize(&user.Actor{EmployeeID: 1, Role: role}, action)
			if allowed {
				Expect(err).NotTo(HaveOccurred())
			} else {
				Expect(err).To(MatchError(errors.ErrRoleNotPermitted))
			}
		},
		Entry("lecturer submits", user.RoleLecturer, claim.ActionSubmit, true),
		Entry("coordinator cannot submit", user.RoleCoordinator, claim.ActionSubmit, false),
		Entry("coordinator verifies", user.RoleCoordinator, claim.ActionVerify, true),
		Entry("manager verifies", user.RoleManager, claim.ActionVerify, true),
		Entry("manager rejects", user.RoleManager, claim.ActionReject, true),
		Entry("coordinator cannot approve", user.RoleCoordinator, claim.ActionApprove, false),
		Entry("lecturer cannot verify", user.RoleLecturer, claim.ActionVerify, false),
		Entry("hr cannot approve", user.RoleHRAdmin, claim.ActionApprove, false),
		Entry("hr cannot delete", user.RoleHRAdmin, claim.ActionDelete, false),
	)

	It("requires an authenticated actor", func() {
		_, err := claim.Authorize(nil, claim.ActionVerify)
		Expect(err).To(MatchError(errors.ErrAuthenticationRequired))
	})

	It("parses statuses case-insensitively", func() {
		for _, raw := range []string{"deleted", "DELETED", " Deleted "} {
			st, err := claim.ParseStatus(raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(st).To(Equal(claim.StatusDeleted))
		}
		_, err := claim.ParseStatus("archived")
		Expect(err).To(HaveOccurred())
	})

	It("answers CanPerform from the same table", func() {
		Expect(claim.CanPerform(user.RoleManager, claim.ActionApprove, claim.StatusVerified)).To(BeTrue())
		Expect(claim.CanPerform(user.RoleManager, claim.ActionApprove, claim.StatusPending)).To(BeTrue())
		Expect(claim.CanPerform(user.RoleManager, claim.ActionApprove, claim.StatusApproved)).To(BeFalse())
		Expect(claim.CanPerform(user.RoleCoordinator, claim.ActionApprove, claim.StatusVerified)).To(BeFalse())
	})

	DescribeTable("AllowedActions",
		func(actor *user.Actor, status claim.Status, expected []claim.Action) {
			c := &claim.Claim{ID: 7, EmployeeID: 10, DepartmentID: 1, Status: status}
			Expect(claim.AllowedActions(actor, c)).To(Equal(expected))
		},
		Entry("owner of a pending claim", &user.Actor{EmployeeID: 10, Role: user.RoleLecturer, DepartmentID: 1},
			claim.StatusPending, []claim.Action{claim.ActionEdit, claim.ActionDelete}),
		Entry("owner of a verified claim", &user.Actor{EmployeeID: 10, Role: user.RoleLecturer, DepartmentID: 1},
			claim.StatusVerified, []claim.Action{claim.ActionDelete}),
		Entry("another lecturer", &user.Actor{EmployeeID: 11, Role: user.RoleLecturer, DepartmentID: 1},
			claim.StatusPending, []claim.Action{}),
		Entry("coordinator on a pending claim", &user.Actor{EmployeeID: 20, Role: user.RoleCoordinator, DepartmentID: 1},
			claim.StatusPending, []claim.Action{claim.ActionVerify, claim.ActionReject}),
		Entry("manager on a verified claim", &user.Actor{EmployeeID: 30, Role: user.RoleManager, DepartmentID: 1},
			claim.StatusVerified, []claim.Action{claim.ActionApprove}),
		Entry("manager from another department", &user.Actor{EmployeeID: 31, Role: user.RoleManager, DepartmentID: 2},
			claim.StatusPending, []claim.Action{}),
		Entry("manager on an approved claim", &user.Actor{EmployeeID: 30, Role: user.RoleManager, DepartmentID: 1},
			claim.StatusApproved, []claim.Action{}),
	)
})
