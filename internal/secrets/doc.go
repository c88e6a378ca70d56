// Package secrets redacts credentials from task titles and commit messages
// using the default gitleaks rule set, with an optional TOML allowlist.
package secrets
