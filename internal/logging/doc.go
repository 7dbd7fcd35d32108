// Package logging provides leveled output for receiptvault commands.
//
// Verbosity is controlled by two flags:
//
//   - --verbose: shows info messages
//   - --debug: shows everything, including debug details
//
// Warnings and errors are always written to stderr. Prefixes are colored
// with fatih/color, which disables itself when output is not a terminal.
//
// Nothing sensitive is ever logged: no passphrases, keys, or vault contents.
package logging
