// Package customers holds the customer registry for quotes, invoices and jobs.
package customers

import "time"

// Customer is a private or business client. PersonalNumber and
// PropertyDesignation are required by Skatteverket when a ROT or RUT
// deduction is claimed on the customer's behalf.
type Customer struct {
	ID                  int64     `json:"id" db:"id"`
	Name                string    `json:"name" db:"name"`
	Email               *string   `json:"email,omitempty" db:"email"`
	Phone               *string   `json:"phone,omitempty" db:"phone"`
	Street              *string   `json:"street,omitempty" db:"street"`
	PostalCode          *string   `json:"postal_code,omitempty" db:"postal_code"`
	City                *string   `json:"city,omitempty" db:"city"`
	PersonalNumber      *string   `json:"personal_number,omitempty" db:"personal_number"`
	PropertyDesignation *string   `json:"property_designation,omitempty" db:"property_designation"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}
