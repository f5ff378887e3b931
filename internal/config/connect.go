package config

import (
	"os"
	"sort"
)

// ConnectServer describes one Posit Connect server. The credential itself
// is never stored here, only the name of the environment variable holding it.
// URL is passed to rsconnect as given, so scheme-less hosts are accepted.
type ConnectServer struct {
	URL           string `koanf:"url" json:"url" validate:"required"`
	PATSecretName string `koanf:"pat_secret_name" json:"pat_secret_name" validate:"required"`
}

// ConnectSettings maps a server name to its settings.
type ConnectSettings map[string]ConnectServer

// connectSettingsDoc lets the validator dive into the map entries.
type connectSettingsDoc struct {
	Servers map[string]ConnectServer `koanf:"servers" validate:"dive"`
}

// Validate checks every server entry and reports all violations at once.
func (s ConnectSettings) Validate() error {
	return validateStruct("connect settings", connectSettingsDoc{Servers: s})
}

// Names returns the configured server names in sorted order.
func (s ConnectSettings) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Server looks up a server by name.
func (s ConnectSettings) Server(name string) (ConnectServer, error) {
	srv, ok := s[name]
	if !ok {
		return ConnectServer{}, &UnknownServerError{Name: name, Available: s.Names()}
	}
	return srv, nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Credential reads the server's personal access token from the environment.
// It is read on every call and never cached.
func (c ConnectServer) Credential(lookup LookupFunc) (Secret, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	val, ok := lookup(c.PATSecretName)
	if !ok {
		return "", &MissingCredentialError{EnvVar: c.PATSecretName}
	}
	return Secret(val), nil
}
