package models

import "github.com/shopspring/decimal"

// CreateBuildRequest represents a request to save a build
type CreateBuildRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UseCase     UseCase         `json:"category"`
	Components  BuildComponents `json:"components"`
	UserID      string          `json:"userId"`
	IsPublic    bool            `json:"isPublic"`
}

// CheckBuildRequest asks for the summary of an unsaved selection
type CheckBuildRequest struct {
	UseCase    UseCase         `json:"category"`
	Components BuildComponents `json:"components"`
}

// UpdateComponentRequest carries the administrative fields that may change after creation
type UpdateComponentRequest struct {
	Price  *decimal.Decimal `json:"price,omitempty"`
	Stock  *int             `json:"stock,omitempty"`
	Rating *float64         `json:"rating,omitempty"`
}

// AddToCartRequest represents a request to add a component to the cart
type AddToCartRequest struct {
	ComponentID string `json:"componentId"`
	Quantity    int    `json:"quantity"`
}

// UpdateCartItemRequest sets the quantity of a cart entry
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// LoginRequest represents the demo login payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the demo user and its token
type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
}
