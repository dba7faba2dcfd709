// Package schedule computes cron firing times for scheduled plays and runs
// deferred work at a fixed instant.
package schedule
