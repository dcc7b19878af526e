// Package commands turns operator intents into service calls.
//
// Each verb issues at most one remote call, records exactly one activity
// entry for its outcome (plus the active-source warning on delete), and then
// refreshes the smallest slice of state the call could have changed.
//
// Verbs are synchronous: each returns once its remote call and the follow-up
// refresh have completed, so one-shot CLI invocations can print the activity
// entries they produced before exiting.
package commands
