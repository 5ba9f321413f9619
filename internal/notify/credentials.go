package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ServiceAccount holds the provider service-account fields the relay needs
// to mint access tokens.
type ServiceAccount struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// LoadServiceAccount reads service-account credentials from a file path or,
// when the path is empty, from inline JSON. Either source may be empty; an
// error is returned only when both are.
func LoadServiceAccount(path, inlineJSON string) (*ServiceAccount, error) {
	var raw []byte

	switch {
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading service account file: %w", err)
		}
		raw = b
	case inlineJSON != "":
		raw = []byte(inlineJSON)
	default:
		return nil, errors.New("no service account credentials configured")
	}

	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("parsing service account JSON: %w", err)
	}

	if sa.ClientEmail == "" || sa.PrivateKey == "" || sa.ProjectID == "" {
		return nil, errors.New("service account JSON is missing required fields")
	}
	if sa.TokenURI == "" {
		sa.TokenURI = "https://oauth2.googleapis.com/token"
	}

	return &sa, nil
}
