package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Identity is what the identity provider vouches for after verifying a bearer credential.
type Identity struct {
	Subject string
	Role    Role
}

func (i *Identity) IsAuthenticated() bool {
	return i != nil && i.Subject != ""
}

func (i *Identity) IsAdmin() bool {
	return i.IsAuthenticated() && i.Role == RoleAdmin
}
