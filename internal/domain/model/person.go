package model

// Role categories. Other values are allowed; these are the ones the system knows about.
const (
	RoleStudent  = "student"
	RoleMember   = "member"
	RoleMinister = "minister"
)

// Person is an identity record. The identity store owns it; the check-in core only reads it.
type Person struct {
	ID         int64  `json:"id" koanf:"id"`
	Name       string `json:"name" koanf:"name"`
	NationalID string `json:"national_id,omitempty" koanf:"national_id"`
	Code       string `json:"code,omitempty" koanf:"code"`
	Badge      string `json:"badge,omitempty" koanf:"badge"`
	Role       string `json:"role" koanf:"role"`
	Active     bool   `json:"active" koanf:"active"`
}
