package fixture

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
)

// Demo accounts.
const (
	AdminEmail    = "admin@example.com"
	AdminPassword = "admin123"
	UserEmail     = "user@example.com"
	UserPassword  = "user123"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func mustHash(pw string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}

// Data is a complete demo data set.
type Data struct {
	Users     []ports.UserRecord
	Customers []domain.Customer
	Tasks     []domain.Task
}

// SeedData returns a fresh copy of the demo data set. Persistent backends
// load it on first start.
func SeedData() Data {
	return Data{
		Users: []ports.UserRecord{
			{
				User:         domain.User{ID: "1", Email: AdminEmail, DisplayName: "Admin User", Role: domain.RoleAdmin},
				PasswordHash: mustHash(AdminPassword),
			},
			{
				User:         domain.User{ID: "2", Email: UserEmail, DisplayName: "Support User", Role: domain.RoleUser},
				PasswordHash: mustHash(UserPassword),
			},
		},
		Customers: []domain.Customer{
			{ID: 1, Name: "Ahmet Yılmaz", Email: "ahmet@example.com", Phone: "555-0101", CreatedAt: day("2024-01-15"), IsActive: true},
			{ID: 2, Name: "Ayşe Demir", Email: "ayse@example.com", Phone: "555-0102", CreatedAt: day("2024-01-16"), IsActive: true},
			{ID: 3, Name: "Mehmet Kaya", Email: "mehmet@example.com", Phone: "555-0103", CreatedAt: day("2024-01-17"), IsActive: false},
		},
		Tasks: []domain.Task{
			{
				ID: 1, Title: "Customer meeting", Description: "Discuss the new quotation",
				Status: domain.TaskPending, CustomerID: 1, CustomerName: "Ahmet Yılmaz",
				AssignedUserID: "1", AssignedTo: "Support Team",
				DueDate: day("2024-02-15"), CreatedAt: day("2024-01-20"), UpdatedAt: day("2024-01-20"),
			},
			{
				ID: 2, Title: "Contract preparation", Description: "Prepare the contract for the new term",
				Status: domain.TaskInProgress, CustomerID: 2, CustomerName: "Ayşe Demir",
				AssignedUserID: "2", AssignedTo: "Sales Team",
				DueDate: day("2024-02-20"), CreatedAt: day("2024-01-21"), UpdatedAt: day("2024-01-22"),
			},
			{
				ID: 3, Title: "Technical support", Description: "Help with the system integration",
				Status: domain.TaskCompleted, CustomerID: 3, CustomerName: "Mehmet Kaya",
				AssignedUserID: "3", AssignedTo: "Technical Team",
				DueDate: day("2024-02-10"), CreatedAt: day("2024-01-19"), UpdatedAt: day("2024-01-23"),
			},
		},
	}
}

func seed(users *UserRepository, customers *CustomerGateway, tasks *TaskGateway) {
	data := SeedData()
	for _, u := range data.Users {
		users.put(u)
	}
	for _, c := range data.Customers {
		customers.put(c)
	}
	for _, t := range data.Tasks {
		tasks.put(t)
	}
}
