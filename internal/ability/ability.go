// Package ability implements the role-based capability evaluator used to gate
// navigation entries and route access. An Ability is derived once from a
// user's role and is immutable afterwards; login, logout and role changes
// build a fresh Ability instead of mutating an existing one.
package ability

// Action is a closed set of operations a capability rule can permit.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionManage grants every action on its subject.
	ActionManage Action = "manage"
)

// Subject is a closed set of resources a capability rule can cover.
type Subject string

const (
	SubjectServer  Subject = "Server"
	SubjectAgent   Subject = "Agent"
	SubjectTask    Subject = "Task"
	SubjectTool    Subject = "Tool"
	SubjectChat    Subject = "Chat"
	SubjectModule  Subject = "Module"
	// SubjectAll matches every subject when used in a rule.
	SubjectAll Subject = "all"
)

// Rule is a single (action, subject) capability pair.
type Rule struct {
	Action  Action
	Subject Subject
}

// Ability is a pure predicate over capability rules. It is safe for
// concurrent use; Can never mutates state.
type Ability struct {
	rules map[Rule]struct{}
}

// New builds an Ability from an explicit rule list.
func New(rules ...Rule) *Ability {
	a := &Ability{rules: make(map[Rule]struct{}, len(rules))}
	for _, r := range rules {
		a.rules[r] = struct{}{}
	}
	return a
}

// Nobody returns an Ability that denies everything. It is the evaluator used
// for unauthenticated requests.
func Nobody() *Ability {
	return New()
}

// Can reports whether the ability permits the given action on the subject.
// ActionManage on a subject implies every action on it, and SubjectAll in a
// rule covers every subject.
func (a *Ability) Can(action Action, subject Subject) bool {
	candidates := [4]Rule{
		{Action: action, Subject: subject},
		{Action: ActionManage, Subject: subject},
		{Action: action, Subject: SubjectAll},
		{Action: ActionManage, Subject: SubjectAll},
	}
	for _, r := range candidates {
		if _, ok := a.rules[r]; ok {
			return true
		}
	}
	return false
}
