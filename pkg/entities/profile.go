package entities

// Profile is a public profile resolved by the profile lookup service.
type Profile struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// DisplayName returns the profile name or the given fallback when the profile has no name.
func (p Profile) DisplayName(fallback string) string {
	if p.Name != "" {
		return p.Name
	}
	return fallback
}
