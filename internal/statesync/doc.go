// Package statesync keeps the local copy of the streaming service's state.
//
// A Synchronizer holds four slices: run status, stream configuration, video
// inventory, and an upload flag. Status and videos are polled on a fixed
// cadence; configuration is read once and afterwards only changed by local
// edits. Refresh failures are silent to the operator: the slice keeps its
// last value and the failure is recorded in Health and the diagnostic log.
package statesync
