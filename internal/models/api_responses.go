package models

// CategoryResponse is the public view of a registry category.
type CategoryResponse struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Threshold float64 `json:"threshold"`
}

// HealthResponse reports liveness of the service and its database.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
