package main

import (
	"context"
	"fmt"
	"time"
)

// sweep pauses active enrollments with an overdue unpaid installment. An empty
// date means today.
func (cli *commandLine) sweep(date string) error {
	today := time.Now().UTC()
	if date != "" {
		var err error
		if today, err = time.Parse("2006-01-02", date); err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
		}
	}

	res, err := cli.billingSvc.SweepOverdue(context.Background(), today)
	if err != nil {
		return err
	}
	fmt.Printf("sweep done: %d enrollment(s) paused\n", res.EnrollmentsPaused)
	return nil
}
