package domain

// Department represents an organizational unit owning tickets.
type Department struct {
	ID       int64
	Name     string
	IsActive bool
}

// RequestType is a category of guest request.
type RequestType struct {
	ID                  int64
	Name                string
	DefaultDepartmentID *int64
	MenuPosition        int
}
