package domain

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Actor is the caller of an operation as asserted by the identity provider.
// The zero value is an anonymous caller.
type Actor struct {
	ID    string
	Email string
	Name  string
	Role  Role
}

func (a Actor) Authenticated() bool {
	return a.ID != "" && (a.Role == RoleBuyer || a.Role == RoleSeller)
}

func (a Actor) IsBuyer() bool {
	return a.Authenticated() && a.Role == RoleBuyer
}

func (a Actor) IsSeller() bool {
	return a.Authenticated() && a.Role == RoleSeller
}

// Buyer snapshots the actor for storage on an order.
func (a Actor) Buyer() Buyer {
	return Buyer{ID: a.ID, Email: a.Email, Name: a.Name}
}
