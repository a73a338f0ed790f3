package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"splitledger/internal/catalog"
)

var errDatePair = errors.New("both --start-date and --end-date must be specified or neither")

// scopeFlags are the shared batch-job narrowing flags.
type scopeFlags struct {
	startDate  string
	endDate    string
	releaseIDs []int64
}

func (f *scopeFlags) register(cmd *cobra.Command, withDates bool) {
	if withDates {
		cmd.Flags().StringVar(&f.startDate, "start-date", "", "Release dates starting from this date, e.g. 2019-01-01")
		cmd.Flags().StringVar(&f.endDate, "end-date", "", "Release dates up until this date, e.g. 2019-12-31")
	}
	cmd.Flags().Int64SliceVar(&f.releaseIDs, "release-ids", nil, "Restrict to these release ids, e.g. 1,2,3")
}

func (f *scopeFlags) scope() (catalog.Scope, error) {
	scope := catalog.Scope{ReleaseIDs: f.releaseIDs}
	if (f.startDate == "") != (f.endDate == "") {
		return scope, errDatePair
	}
	if f.startDate == "" {
		return scope, nil
	}
	from, err := parseDateFlag("start-date", f.startDate)
	if err != nil {
		return scope, err
	}
	to, err := parseDateFlag("end-date", f.endDate)
	if err != nil {
		return scope, err
	}
	if to.Before(from) {
		return scope, fmt.Errorf("--end-date %s is before --start-date %s", f.endDate, f.startDate)
	}
	scope.From = &from
	scope.To = &to
	return scope, nil
}

func parseDateFlag(name, value string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: expected YYYY-MM-DD", name, value)
	}
	return date, nil
}
