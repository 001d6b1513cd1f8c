// Package job tracks submitted download jobs for polling clients.
//
// The Tracker is the single owner of job state. Writers mutate a job
// through Update, which holds the tracker lock and clamps progress so
// it never moves backwards; readers get deep copies via Snapshot and
// can never observe a partially applied update.
//
// Records of finished jobs stay pollable for a TTL, and the tracker
// holds at most Capacity jobs, evicting the oldest terminal records
// first when full.
package job
