package venues

type CreateVenueRequest struct {
	Name      string `json:"name" validate:"required,min=3,max=255"`
	Capacity  int    `json:"capacity" validate:"required,min=1,max=200000"`
	Timezone  string `json:"timezone" validate:"omitempty,timezone"`
	BasePrice string `json:"base_price" validate:"required,numeric"`
}

type UpdateCapacityRequest struct {
	Capacity int `json:"capacity" validate:"required,min=1,max=200000"`
}
