package models

type CreateUserResponse struct {
	User    *User  `json:"user"`
	Message string `json:"message"`
}

type ClaimPointsResponse struct {
	User          *User         `json:"user"`
	PointsAwarded int           `json:"pointsAwarded"`
	NewRank       int           `json:"newRank"`
	History       *ClaimHistory `json:"history"`
	Message       string        `json:"message"`
}

type UsersResponse struct {
	Users []User `json:"users"`
}

type HistoryResponse struct {
	History []ClaimHistory `json:"history"`
}

type PingResponse struct {
	Message string `json:"message"`
}

// uniform error payload; Message is serialised under "error"
type ErrorResponse struct {
	Message string `json:"error"`
	Code    string `json:"code,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}
