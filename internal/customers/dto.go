package customers

// CreateCustomerRequest registers a new customer.
type CreateCustomerRequest struct {
	Name                string  `json:"name" validate:"required,max=200"`
	Email               *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone               *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Street              *string `json:"street,omitempty" validate:"omitempty,max=200"`
	PostalCode          *string `json:"postal_code,omitempty" validate:"omitempty,max=10"`
	City                *string `json:"city,omitempty" validate:"omitempty,max=100"`
	PersonalNumber      *string `json:"personal_number,omitempty" validate:"omitempty,max=13"`
	PropertyDesignation *string `json:"property_designation,omitempty" validate:"omitempty,max=100"`
}

// UpdateCustomerRequest patches an existing customer; nil fields are untouched.
type UpdateCustomerRequest struct {
	Name                *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email               *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone               *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Street              *string `json:"street,omitempty" validate:"omitempty,max=200"`
	PostalCode          *string `json:"postal_code,omitempty" validate:"omitempty,max=10"`
	City                *string `json:"city,omitempty" validate:"omitempty,max=100"`
	PersonalNumber      *string `json:"personal_number,omitempty" validate:"omitempty,max=13"`
	PropertyDesignation *string `json:"property_designation,omitempty" validate:"omitempty,max=100"`
}

// ListCustomersRequest filters the customer listing.
type ListCustomersRequest struct {
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset int    `json:"offset" validate:"gte=0"`
}
