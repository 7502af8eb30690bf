package rbac

const (
	PermQuizView         = "quiz:view"
	PermQuizAttempt      = "quiz:attempt"
	PermQuizPreview      = "quiz:preview"
	PermReviewOwn        = "quiz:reviewmyattempts"
	PermIgnoreTimeLimits = "quiz:ignoretimelimits"
	PermQuizManage       = "quiz:manage"
	PermGradeOverride    = "grades:override"
	PermAttemptsViewAll  = "attempts:view-all"
	PermAttemptsRecord   = "attempts:record"
	PermEventsRead       = "events:read"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	"guest": {
		PermQuizView,
	},
	"student": {
		PermQuizView,
		PermQuizAttempt,
		PermReviewOwn,
	},
	"teacher": {
		PermQuizView,
		PermQuizPreview,
		PermIgnoreTimeLimits,
		PermQuizManage,
		PermGradeOverride,
		PermAttemptsViewAll,
		PermAttemptsRecord,
	},
	"admin": {
		"*", // everything
	},
}
