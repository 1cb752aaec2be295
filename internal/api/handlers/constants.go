package handlers

const (
	// OAuth providers
	providerGoogle = "google"
	providerGitHub = "github"

	forwardedProtoHTTPS = "https"
)
