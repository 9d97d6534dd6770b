package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"hstrader/logger"
)

// ReportSource contributes extra fields to each periodic report, such as
// stream frame counters.
type ReportSource func() logger.Fields

// StartReport logs process and client statistics every interval until ctx
// is done. Numeric runtime gauges are also emitted as metrics.
func StartReport(ctx context.Context, log *logger.Log, interval time.Duration, sources ...ReportSource) {
	if interval <= 0 {
		return
	}
	if log == nil {
		log = logger.GetLogger()
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logReport(log, sources)
			}
		}
	}()
}

func logReport(log *logger.Log, sources []ReportSource) {
	fields := collectReport(sources)
	log.WithComponent("report").WithFields(fields).Info("client report")

	for _, name := range []string{"cpu_percent", "memory_mb", "goroutines"} {
		if v, ok := fields[name]; ok {
			unit := "count"
			switch name {
			case "cpu_percent":
				unit = "percent"
			case "memory_mb":
				unit = "megabytes"
			}
			EmitMetric(log, "report", name, v, "gauge", logger.Fields{"unit": unit})
		}
	}
}

func collectReport(sources []ReportSource) logger.Fields {
	fields := logger.Fields{
		"goroutines": runtime.NumGoroutine(),
	}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		fields["cpu_percent"] = pct[0]
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	fields["memory_mb"] = float64(ms.Alloc) / 1024 / 1024

	if vm, err := mem.VirtualMemory(); err == nil {
		fields["host_memory_percent"] = vm.UsedPercent
	}

	warns, errs := int64(0), int64(0)
	for _, c := range logger.Counts() {
		warns += c.Warns
		errs += c.Errors
	}
	fields["log_warnings"] = warns
	fields["log_errors"] = errs

	for _, source := range sources {
		if source == nil {
			continue
		}
		for k, v := range source() {
			fields[k] = v
		}
	}
	return fields
}
