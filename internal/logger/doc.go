// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger writing console output to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and adjustment for the --log-level flag,
//   - convenience functions (Infof, WarnKV, etc.).
//
// Services accept a context and pull the logger from it, so names and fields
// attached by a caller show up in every message logged below it.
package logger
