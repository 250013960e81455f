// Package directory holds the user directory entity served over HTTP.
package directory

import "github.com/kailas-cloud/esrepo/pkg/document"

// Index is the index users are stored in.
const Index = "user"

// Address is a postal address nested in a user document.
type Address struct {
	Province string `json:"province,omitempty"`
	City     string `json:"city,omitempty"`
	Street   string `json:"street,omitempty"`
}

// User is one directory entry. Password is stored as given; hashing is the
// caller's job.
type User struct {
	ID       string   `json:"id" esrepo:"id"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
	Email    string   `json:"email,omitempty"`
	Role     string   `json:"role,omitempty"`
	Address  *Address `json:"address,omitempty"`
}

// DocumentConfig maps users onto the user index.
func (User) DocumentConfig() document.Config {
	return document.Config{
		Index:           Index,
		Type:            "user",
		Shards:          1,
		RefreshInterval: "1s",
	}
}

// Public returns a copy without the password.
func (u User) Public() User {
	u.Password = ""
	return u
}
