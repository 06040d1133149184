package roster

import "context"

// Contact is one CRM roster entry as the matcher consumes it. Source
// systems leave email, company, phone and domain optional; absent values
// are empty strings here.
type Contact struct {
	ID      string `json:"id" db:"id"`
	UserID  string `json:"user_id,omitempty" db:"user_id"`
	Name    string `json:"name" db:"name"`
	Email   string `json:"email,omitempty" db:"email"`
	Company string `json:"company,omitempty" db:"company"`
	Phone   string `json:"phone,omitempty" db:"phone"`
	Domain  string `json:"domain,omitempty" db:"domain"`
}

// Provider fetches the contact roster for one user. The matcher treats
// the returned slice as an immutable snapshot.
type Provider interface {
	Fetch(ctx context.Context, userID string) ([]Contact, error)
	Name() string
}
