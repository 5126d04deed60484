package api

import (
	"net/url"
	"strconv"
	"time"
)

// Envelope mirrors the standard {success, data, message} response wrapper.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// Page mirrors the paginated list response.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination describes the position of a Page within the full result set.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// DefaultPageLimit matches the console's page size.
const DefaultPageLimit = 20

// PageParams selects a page of a list endpoint. Zero values are omitted.
type PageParams struct {
	Page  int
	Limit int
}

func (p PageParams) values() url.Values {
	values := url.Values{}
	if p.Page > 0 {
		values.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		values.Set("limit", strconv.Itoa(p.Limit))
	}
	return values
}

// TableStatus is the occupancy state of a dining table.
type TableStatus string

const (
	TableAvailable     TableStatus = "AVAILABLE"
	TableOccupied      TableStatus = "OCCUPIED"
	TableNeedsCleaning TableStatus = "NEEDS_CLEANING"
)

// TableStatuses lists every status in floor-cycle order.
var TableStatuses = []TableStatus{TableAvailable, TableOccupied, TableNeedsCleaning}

// Valid reports whether s is a status the API accepts.
func (s TableStatus) Valid() bool {
	for _, known := range TableStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Next returns the status that follows s on the floor cycle.
func (s TableStatus) Next() TableStatus {
	for i, known := range TableStatuses {
		if s == known {
			return TableStatuses[(i+1)%len(TableStatuses)]
		}
	}
	return TableAvailable
}

// Table is a dining table.
type Table struct {
	ID        int64       `json:"id"`
	Number    string      `json:"number"`
	Status    TableStatus `json:"status"`
	Location  string      `json:"location,omitempty"`
	CreatedAt string      `json:"createdAt"`
	UpdatedAt string      `json:"updatedAt"`
	Deleted   bool        `json:"deleted"`
	DeletedAt string      `json:"deletedAt,omitempty"`
}

// ParsedUpdatedAt returns UpdatedAt as time.Time, zero when unparseable.
func (t Table) ParsedUpdatedAt() time.Time {
	return parseTime(t.UpdatedAt)
}

// CreateTableInput is the body of POST /tables.
type CreateTableInput struct {
	Number   string      `json:"number" validate:"required,max=999"`
	Status   TableStatus `json:"status,omitempty" validate:"omitempty,oneof=AVAILABLE OCCUPIED NEEDS_CLEANING"`
	Location string      `json:"location,omitempty" validate:"omitempty,min=2,max=100"`
}

// UpdateTableInput is the body of PATCH /tables/:id. Nil fields are left unchanged.
type UpdateTableInput struct {
	Number   *string      `json:"number,omitempty" validate:"omitempty,min=1,max=999"`
	Status   *TableStatus `json:"status,omitempty" validate:"omitempty,oneof=AVAILABLE OCCUPIED NEEDS_CLEANING"`
	Location *string      `json:"location,omitempty" validate:"omitempty,min=2,max=100"`
}

// UpdateTableStatusInput is the body of PATCH /tables/:id/status.
type UpdateTableStatusInput struct {
	Status TableStatus `json:"status" validate:"required,oneof=AVAILABLE OCCUPIED NEEDS_CLEANING"`
}

// MenuCategory groups menu items.
type MenuCategory struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Order       int        `json:"order"`
	Items       []MenuItem `json:"items,omitempty"`
	CreatedAt   string     `json:"createdAt"`
	UpdatedAt   string     `json:"updatedAt"`
	Deleted     bool       `json:"deleted"`
	DeletedAt   string     `json:"deletedAt,omitempty"`
}

// CreateCategoryInput is the body of POST /menu/categories.
type CreateCategoryInput struct {
	Name        string `json:"name" validate:"required,min=4,max=500"`
	Description string `json:"description,omitempty" validate:"omitempty,min=4,max=500"`
	Order       int    `json:"order" validate:"gte=0"`
}

// UpdateCategoryInput is the body of PATCH /menu/categories/:id.
type UpdateCategoryInput struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=4,max=500"`
	Description *string `json:"description,omitempty" validate:"omitempty,min=4,max=500"`
	Order       *int    `json:"order,omitempty" validate:"omitempty,gte=0"`
}

// MenuItem is a dish or extra on the menu. Price is a decimal string.
type MenuItem struct {
	ID          int64  `json:"id"`
	CategoryID  int64  `json:"categoryId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	IsExtra     bool   `json:"isExtra"`
	IsAvailable bool   `json:"isAvailable"`
	ImageURL    string `json:"imageUrl,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	Deleted     bool   `json:"deleted"`
	DeletedAt   string `json:"deletedAt,omitempty"`
}

// CreateItemInput is the body of POST /menu/items.
type CreateItemInput struct {
	CategoryID  int64  `json:"categoryId" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
	Price       string `json:"price" validate:"required,price"`
	IsAvailable *bool  `json:"isAvailable,omitempty"`
	IsExtra     *bool  `json:"isExtra,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

// UpdateItemInput is the body of PATCH /menu/items/:id.
type UpdateItemInput struct {
	CategoryID  *int64  `json:"categoryId,omitempty" validate:"omitempty,gt=0"`
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=50"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	Price       *string `json:"price,omitempty" validate:"omitempty,price"`
	IsAvailable *bool   `json:"isAvailable,omitempty"`
	IsExtra     *bool   `json:"isExtra,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

// RoleName is a staff role.
type RoleName string

const (
	RoleAdmin          RoleName = "ADMIN"
	RoleCashier        RoleName = "CASHIER"
	RoleWaiter         RoleName = "WAITER"
	RoleKitchenManager RoleName = "KITCHER_MANAGER"
)

// Role is a role granted to a user.
type Role struct {
	ID          int64    `json:"id"`
	Name        RoleName `json:"name"`
	Description string   `json:"description,omitempty"`
}

// Profile holds the optional extra details of a user.
type Profile struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	Address string `json:"address,omitempty"`
}

// User is the authenticated staff member returned by /profile/me.
type User struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone,omitempty"`
	Profile   *Profile `json:"profile,omitempty"`
	Roles     []Role   `json:"roles,omitempty"`
	CreatedAt string   `json:"createdAt,omitempty"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

// HasRole reports whether the user holds role.
func (u User) HasRole(role RoleName) bool {
	for _, r := range u.Roles {
		if r.Name == role {
			return true
		}
	}
	return false
}

// Credentials is the body of POST /auth/login.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenInfo is one token issued by /auth/login.
type TokenInfo struct {
	Token   string `json:"token"`
	Expires string `json:"expires"`
}

// ExpiresAt parses Expires, returning zero when absent or malformed.
func (t TokenInfo) ExpiresAt() time.Time {
	return parseTime(t.Expires)
}

// AuthTokens is the data payload of /auth/login and /auth/refresh.
type AuthTokens struct {
	Access  TokenInfo `json:"access"`
	Refresh TokenInfo `json:"refresh"`
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
