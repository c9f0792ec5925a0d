package ability

// Role identifies a user's role in the dashboard.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// roleRules is the static role -> permitted rule table. The evaluator is a
// pure function over this table; there is no runtime grant/revoke surface.
var roleRules = map[Role][]Rule{
	RoleAdmin: {
		{Action: ActionManage, Subject: SubjectAll},
	},
	RoleOperator: {
		{Action: ActionRead, Subject: SubjectServer},
		{Action: ActionRead, Subject: SubjectAgent},
		{Action: ActionRead, Subject: SubjectTask},
		{Action: ActionUpdate, Subject: SubjectTask},
		{Action: ActionManage, Subject: SubjectTool},
		{Action: ActionRead, Subject: SubjectChat},
		{Action: ActionCreate, Subject: SubjectChat},
	},
	RoleViewer: {
		{Action: ActionRead, Subject: SubjectServer},
		{Action: ActionRead, Subject: SubjectTask},
	},
}

// ForRole builds the Ability for a role. Unknown roles get an empty ability
// rather than an error so a stale session degrades to "can do nothing".
func ForRole(role Role) *Ability {
	rules, ok := roleRules[role]
	if !ok {
		return Nobody()
	}
	return New(rules...)
}
