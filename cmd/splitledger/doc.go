// Command splitledger is the batch-job CLI for the royalty split engine:
// repair jobs, pending-split cancellation, owner-change repair, invitation
// expiry, and integrity verification over the shared SQLite store.
package main
