// Package daemon enforces single-instance execution and owns the lifecycle
// of the background workflow.
//
// Two concurrent instances would race each other on the ledger and double
// process episodes, so Start takes an exclusive file lock before anything
// else. The lock file carries the holder's PID for operators; the kernel
// releases the lock itself when the process dies, so a leftover PID only
// means the previous run ended uncleanly.
package daemon
