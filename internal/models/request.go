package models

import "strings"

type CreateUserRequest struct {
	Name string `json:"name"`
}

// implements the Validator interface
func (r *CreateUserRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ErrorResponse{Code: "validation_error", Message: "Name is required"}
	}
	return nil
}

type ClaimPointsRequest struct {
	UserID string `json:"userId"`
}

func (r *ClaimPointsRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return &ErrorResponse{Code: "validation_error", Message: "User ID is required"}
	}
	return nil
}
