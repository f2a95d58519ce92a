package identity

import (
	"strings"

	"github.com/spec-kit/campus-helpdesk/internal/config"
	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// Classification is the outcome of a successful email classification.
// Department is set only when Role is RoleDepartment.
type Classification struct {
	Role       domain.Role
	Department domain.Department
}

// RejectionError explains why an email was refused. The reason is
// user-facing and must be specific enough to self-correct.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

// Classifier derives role and department from an email address using
// the institution's fixed lookup tables. It holds no mutable state.
type Classifier struct {
	adminAddress   string
	heads          map[string]domain.Department
	studentDomain  string
	reservedTokens []string
}

// NewClassifier normalizes the configured tables and returns a
// ready-to-use classifier.
func NewClassifier(cfg config.IdentityConfig) *Classifier {
	heads := make(map[string]domain.Department, len(cfg.DepartmentHeads))
	for addr, dept := range cfg.DepartmentHeads {
		heads[strings.ToLower(addr)] = dept
	}
	tokens := make([]string, 0, len(cfg.ReservedTokens))
	for _, token := range cfg.ReservedTokens {
		tokens = append(tokens, strings.ToLower(token))
	}
	return &Classifier{
		adminAddress:   strings.ToLower(cfg.AdminAddress),
		heads:          heads,
		studentDomain:  strings.ToLower(cfg.StudentDomain),
		reservedTokens: tokens,
	}
}

// Classify maps an email to a role and department. Precedence is
// strict: the admin address and the department-head addresses are exact
// matches checked before the broad student pattern, so privileged
// identities cannot be claimed through pattern matching. Student
// addresses must carry the institutional domain and must not contain
// any reserved token anywhere in the address.
func (c *Classifier) Classify(email string) (Classification, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == c.adminAddress {
		return Classification{Role: domain.RoleAdmin}, nil
	}
	if dept, ok := c.heads[email]; ok {
		return Classification{Role: domain.RoleDepartment, Department: dept}, nil
	}

	reserved := c.containsReservedToken(email)
	if strings.HasSuffix(email, c.studentDomain) && !reserved {
		return Classification{Role: domain.RoleStudent}, nil
	}
	if reserved {
		return Classification{}, &RejectionError{
			Reason: "reserved keyword: students may not use department-reserved tokens; use the name.program" + c.studentDomain + " format",
		}
	}
	return Classification{}, &RejectionError{
		Reason: "email does not match any recognized student or department pattern; student accounts use name.program" + c.studentDomain,
	}
}

func (c *Classifier) containsReservedToken(email string) bool {
	for _, token := range c.reservedTokens {
		if strings.Contains(email, token) {
			return true
		}
	}
	return false
}
