package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		DefaultEnvironment: "",
		Database:           "",     // resolved by the store
		Timeout:            30000,  // 30 seconds
		FollowRedirects:    boolPtr(true),
		MaxRedirects:       10,
		ValidateSSL:        boolPtr(true),
		Proxy:              "",
		Headers:            nil,
		Concurrency:        5,
		Verbose:            boolPtr(false),
		NoColor:            boolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.DefaultEnvironment == defaults.DefaultEnvironment &&
		c.Database == defaults.Database &&
		c.Timeout == defaults.Timeout &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.GetValidateSSL() == defaults.GetValidateSSL() &&
		c.Proxy == defaults.Proxy &&
		len(c.Headers) == 0 &&
		c.Concurrency == defaults.Concurrency &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor()
}
