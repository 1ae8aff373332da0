// Package domain defines the entities shared across the server.
package domain

// Repository is a GitHub repository as returned by the upstream API.
// Instances are immutable once returned by the gateway; the chat store
// references them by ID and never copies-and-mutates them.
type Repository struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description,omitempty"`
	HTMLURL     string `json:"html_url"`
	CloneURL    string `json:"clone_url"`
	Language    string `json:"language,omitempty"`
	Stars       int    `json:"stargazers_count"`
}
