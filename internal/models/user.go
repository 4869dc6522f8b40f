package models

// User is the slice of the identity collaborator's record that chat needs:
// who the user is and whether they completed mobile verification.
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Mobile         string `json:"mobile"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Verified       bool   `json:"verified"`
}

// PublicProfile is what one participant may see of the other.
type PublicProfile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:             u.ID,
		Name:           u.Name,
		ProfilePicture: u.ProfilePicture,
	}
}
