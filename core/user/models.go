package user

// Roles
const (
	// Candidate takes quizzes and is monitored.
	RoleCandidate = "candidate"

	// Observer monitors candidates and takes no quiz.
	RoleObserver = "observer"
)

var (
	AllRoles = []string{RoleCandidate, RoleObserver}

	Roles = []Role{
		{Name: "Candidate", Value: RoleCandidate},
		{Name: "Observer", Value: RoleObserver},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Principal is a verified identity resolved by the authentication gate.
type Principal struct {
	ID       string `json:"id" validate:"required,notblank"`
	Username string `json:"username"`
	Role     string `json:"role" validate:"required,role"`
}

func (p Principal) IsCandidate() bool {
	return p.Role == RoleCandidate
}

func (p Principal) IsObserver() bool {
	return p.Role == RoleObserver
}

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}
