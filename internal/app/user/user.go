/*
Package user contains core data structures related to participant identity.

It defines the basic representation of a participant within the chat system,
used for passing identity information both internally and to clients.
*/
package user

// Profile holds the editable identity fields of a chat participant.
// Fields use JSON tags for serialization in API responses.
type Profile struct {

	// Identity is the stable identifier for the participant, taken from the
	// session token rather than client input.
	Identity string `json:"identity"`

	// DisplayName is the name shown next to the participant's messages.
	DisplayName string `json:"displayName"`

	// AvatarURL points at the participant's avatar image, if one is set.
	AvatarURL string `json:"avatarUrl,omitempty"`

	// StatusText is a short free-form line shown on the participant's profile.
	StatusText string `json:"statusText,omitempty"`
}

// MaxDisplayNameLength bounds the display name, matching the client form limit.
const MaxDisplayNameLength = 32

// MaxStatusTextLength bounds the status line.
const MaxStatusTextLength = 120

// Valid reports whether the profile's editable fields are within bounds.
func (p *Profile) Valid() bool {
	if p.DisplayName == "" || len(p.DisplayName) > MaxDisplayNameLength {
		return false
	}
	return len(p.StatusText) <= MaxStatusTextLength
}
