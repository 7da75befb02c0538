package config

import (
	"fmt"
	"slices"
)

// OutputFormats lists the accepted values of --output.
var OutputFormats = []string{"auto", "text", "json", "yaml"}

// Validate checks settings that do not depend on a database connection.
func (c *Config) Validate() error {
	if !slices.Contains(OutputFormats, c.OutputFormat) {
		return fmt.Errorf("unknown output format %q (expected one of %v)", c.OutputFormat, OutputFormats)
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if c.Introspect.Concurrency < 0 {
		return fmt.Errorf("introspect.concurrency must not be negative")
	}
	return nil
}
