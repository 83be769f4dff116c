// Package monitor measures a block of database work against resolved
// performance thresholds.
//
// A Monitor collects Query Records while the block runs, either through
// explicit Record calls or through the capture adapters (WrapDB for
// database/sql, Tracer for pgx). Stop produces a Result with N+1 findings,
// threshold failures and warnings, and a plain-text report.
//
//	m := monitor.Start(monitor.Options{Name: "ListUsers", Thresholds: set})
//	db := monitor.WrapDB(sqlDB, m)
//	// ... run queries through db ...
//	res := m.Stop()
//	if !res.Passed() {
//		_ = res.Explain(os.Stderr)
//	}
package monitor
