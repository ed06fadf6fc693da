package config

import (
	"fmt"
	"os"
)

// DefaultConfigYAML is written by `aos init`. It mirrors the loader defaults.
const DefaultConfigYAML = `# aos configuration
# Precedence: flags > AOS_* environment > this file > built-in defaults.

log:
  # debug | info | warn | error
  level: info
  # auto picks colored text on a terminal and JSON otherwise
  format: auto

store:
  # file keeps one directory per run; sqlite keeps everything in one database
  backend: file
  path: .aos/runs

server:
  host: localhost
  port: 8080
  cors: true

# Reference lists recorded in every hello-workflow manifest.
# Order matters: replaying a run with a reordered list is a mismatch.
workflow:
  hello:
    models:
      - model_id: local-null
        provider: local
        version: "0.0"
    tools:
      - tool_id: noop
        version: "0.0"
    policy_decisions:
      - policy_id: policy-allow
        decision: allow
        reason: placeholder
`

// WriteDefaultConfig writes DefaultConfigYAML to path. An existing file is
// left alone unless force is set.
func WriteDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("checking config file: %w", err)
		}
	}
	if err := AtomicWrite(path, []byte(DefaultConfigYAML)); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
