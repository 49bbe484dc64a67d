package transport

import "strings"

type RegisterUserRequest struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest accepts either identifier or one of email/username.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

func (r LoginRequest) Login() string {
	for _, v := range []string{r.Identifier, r.Email, r.Username} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

type CreatePetRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type RenamePetRequest struct {
	Name string `json:"name"`
}
