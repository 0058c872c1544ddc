package orchestrator

// KeySelector is an optional host capability for interactively choosing an
// API key when no environment key is configured.
type KeySelector interface {
	// SelectedKey returns the currently selected key, or "" when the user
	// has not picked one yet.
	SelectedKey() string
}

// CredentialProvider answers whether generation can start and with which key.
// Queried before every generation attempt, never cached across attempts.
type CredentialProvider interface {
	HasUsableKey() bool
	APIKey() string
}

// Credentials is the standard provider: a fixed environment key, with an
// optional runtime selector taking precedence when the environment key is
// absent.
type Credentials struct {
	EnvKey   string
	Selector KeySelector
}

func (c *Credentials) HasUsableKey() bool {
	return c.APIKey() != ""
}

func (c *Credentials) APIKey() string {
	if c.EnvKey != "" {
		return c.EnvKey
	}
	if c.Selector != nil {
		return c.Selector.SelectedKey()
	}
	return ""
}
