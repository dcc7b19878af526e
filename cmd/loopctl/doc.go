// Command loopctl is the operator's remote control for a looping video
// streaming service.
//
// One-shot subcommands (status, start, stop, config, videos) perform a single
// action and print the activity entries it produced. The console subcommand
// keeps a synchronized session open and accepts commands interactively;
// watch follows the service status until interrupted.
package main
