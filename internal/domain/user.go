package domain

import "time"

// Role enumerates the three account kinds recognized by the helpdesk.
type Role string

const (
	RoleStudent    Role = "student"
	RoleDepartment Role = "department"
	RoleAdmin      Role = "admin"
)

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleDepartment, RoleAdmin:
		return true
	}
	return false
}

// Department enumerates the campus units tickets can be filed against.
type Department string

const (
	DepartmentAcademics      Department = "Academics"
	DepartmentHostel         Department = "Hostel"
	DepartmentLibrary        Department = "Library"
	DepartmentIT             Department = "IT"
	DepartmentAdministration Department = "Administration"
	DepartmentSports         Department = "Sports"
	DepartmentTransport      Department = "Transport"
)

// Departments returns the closed enumeration in display order.
func Departments() []Department {
	return []Department{
		DepartmentAcademics,
		DepartmentHostel,
		DepartmentLibrary,
		DepartmentIT,
		DepartmentAdministration,
		DepartmentSports,
		DepartmentTransport,
	}
}

// Valid reports whether the department is one of the enumerated units.
func (d Department) Valid() bool {
	for _, known := range Departments() {
		if d == known {
			return true
		}
	}
	return false
}

// User is an account holder: a student, a department staff account, or
// the admin. Role and department are fixed at registration time.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Department   Department // set iff Role == RoleDepartment
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
