package rbac

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

const (
	PermInsightsViewOwn  = "insights:view-own"
	PermInsightsViewAll  = "insights:view-all"
	PermItemsViewOwn     = "items:view-own"
	PermItemsViewAll     = "items:view-all"
	PermItemsWrite       = "items:write"
	PermAttemptsOwn      = "attempts:create-own"
	PermAttemptsAll      = "attempts:create-all"
	PermStudyAidGenerate = "studyaid:generate"
	PermChatUse          = "chat:use"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	RoleStudent: {
		PermInsightsViewOwn,
		PermItemsViewOwn,
		PermAttemptsOwn,
		PermStudyAidGenerate,
		PermChatUse,
	},
	RoleTeacher: {
		"insights:*",
		"items:*",
		PermAttemptsAll,
		PermStudyAidGenerate,
	},
	RoleAdmin: {
		"*",
	},
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
