// Package cli builds the cobra command tree for dmutils, validates user
// input, and translates flags into the application's configuration. Usage
// errors are reported as *ExitError with code 2.
package cli
