package repair_test

import (
	"io"
	"log/slog"
	"testing"

	"splitledger/internal/repair"
	"splitledger/internal/testsupport"
)

func newTestRunner(t *testing.T) *repair.Runner {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDB(t, cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return repair.NewRunner(cfg, logger, db)
}
