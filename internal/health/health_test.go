package health

import (
	"context"
	"errors"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckBasic(t *testing.T) {
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	if got := NewHealthChecker(up, nil).CheckBasic(); got.Status != "healthy" || got.Redis.Status != "disabled" {
		t.Errorf("healthy db: %+v", got)
	}
	if got := NewHealthChecker(down, nil).CheckBasic(); got.Status != "unhealthy" {
		t.Errorf("down db: status = %s", got.Status)
	}
}

func TestCheckDetailedArchive(t *testing.T) {
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("no such bucket") })

	if got := NewHealthChecker(up, nil).CheckDetailed(); got.ReportArchive.Status != "disabled" {
		t.Errorf("archive = %s, want disabled", got.ReportArchive.Status)
	}
	got := NewHealthChecker(up, down).CheckDetailed()
	if got.ReportArchive.Status != "unhealthy" || got.Status != "healthy" {
		t.Errorf("detailed = %+v", got)
	}
}

func TestFormatBytes(t *testing.T) {
	if got := formatBytes(512 * 1024 * 1024); got != "512.0 MB" {
		t.Errorf("formatBytes = %s", got)
	}
	if got := formatBytes(3 * 1024 * 1024 * 1024); got != "3.0 GB" {
		t.Errorf("formatBytes = %s", got)
	}
}
