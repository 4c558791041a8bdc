// Command revoice runs the voice replacement server and offers local tooling
// around it.
//
// `revoice serve` starts the HTTP API and background reaper. `revoice run`
// processes one video end to end without the server, printing progress as
// the task moves through analysis and synthesis. The voices, history,
// config, and preflight subcommands manage the catalog and inspect the
// environment.
package main
