package config

// CLIConfig is the configuration for pixelsync-cli.
type CLIConfig struct {
	// DefaultOutput is table, json or yaml.
	DefaultOutput string `json:"default_output" yaml:"default_output"`

	// CurrentProfile is used when --profile is not given.
	CurrentProfile string `json:"current_profile" yaml:"current_profile"`

	Profiles map[string]Profile `json:"profiles" yaml:"profiles"`
}

// Profile stores connection details for one server.
type Profile struct {
	Server string `json:"server" yaml:"server"`

	// AdminToken is the plain admin token. The file is written 0600.
	AdminToken string `json:"admin_token,omitempty" yaml:"admin_token,omitempty"`

	// CACert is a PEM file trusted in addition to the system roots.
	CACert   string `json:"ca_cert,omitempty" yaml:"ca_cert,omitempty"`
	Insecure bool   `json:"insecure,omitempty" yaml:"insecure,omitempty"`
}

// DefaultServer is used when no profile names a server.
const DefaultServer = "http://localhost:5080"

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultOutput:  "table",
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {Server: DefaultServer},
		},
	}
}

// Profile returns the named profile, or the current one when name is
// empty. Unknown names report ok=false and a profile for DefaultServer.
func (c *CLIConfig) Profile(name string) (Profile, bool) {
	if name == "" {
		name = c.CurrentProfile
	}
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{Server: DefaultServer}, false
	}
	if p.Server == "" {
		p.Server = DefaultServer
	}
	return p, true
}
