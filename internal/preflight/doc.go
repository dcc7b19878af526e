// Package preflight provides readiness checks for the local paths and the
// remote service that loopctl depends on.
//
// These checks run in two contexts:
//   - Upload commands call CheckUploadSource before opening a connection, so
//     an unreadable file fails fast instead of mid-request.
//   - The CLI "loopctl config validate" command runs RunAll and prints each
//     result as a status line.
package preflight
