package staff

// CreateStaffRequest registers a new account.
type CreateStaffRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    *string `json:"phone,omitempty"`
	Role     Role    `json:"role" validate:"required,oneof=admin worker"`
	Password string  `json:"password" validate:"required,min=8"`
}

// ListStaffRequest filters the staff listing.
type ListStaffRequest struct {
	Role       *Role `json:"role,omitempty"`
	ActiveOnly bool  `json:"active_only"`
	Limit      int   `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int   `json:"offset" validate:"gte=0"`
}
