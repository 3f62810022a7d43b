package model

import (
	"net/url"
	"strings"
)

const avatarServiceURL = "https://ui-avatars.com/api/"

// User is the local, read-only view of the authenticated identity.
type User struct {
	UID      string
	Email    string
	Name     string
	PhotoURL string
}

// NewUser projects an identity provider profile into a User, filling in the display
// name from the email's local part and the photo from a generated avatar.
func NewUser(uid, email, displayName, photoURL string) User {
	u := User{UID: uid, Email: email, Name: displayName, PhotoURL: photoURL}
	if strings.TrimSpace(u.Name) == "" {
		u.Name = emailLocalPart(email)
	}
	if strings.TrimSpace(u.PhotoURL) == "" {
		u.PhotoURL = AvatarURL(email)
	}
	return u
}

func (u *User) IsZero() bool { return u == nil || (u.UID == "" && u.Email == "") }

// AvatarURL returns the generated avatar for an email.
func AvatarURL(email string) string {
	return avatarServiceURL + "?name=" + url.QueryEscape(email) + "&background=random"
}

func emailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
