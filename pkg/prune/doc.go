// Package prune deletes topics older than a configurable number of days on a cron
// schedule.
//
//	p, err := prune.New(svc, prune.Config{Days: 90, Schedule: "0 2 * * *"}, logrusLogger)
//	g.Go(func() error { return p.Run(ctx) })
//
// The threshold can be changed at runtime through SetAutoDeleteDays (the admin
// settings endpoint does this); 0 disables the job without unscheduling it. Passes
// never overlap: a pass that starts while another is running is skipped.
package prune
