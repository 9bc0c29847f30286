// Package tmpdir allocates a scratch directory shared by every test in a
// process.
//
// The directory is created once, under the parent named by [WithParent], the
// environment, or a platform default, and the process's default temporary
// location is pointed at it. Anything that later calls [os.TempDir],
// [os.MkdirTemp] with an empty dir, or [testing.T.TempDir] ends up inside it,
// so one recursive removal at the end of the run cleans up everything.
//
// Go has no exit hooks. Callers are expected to call [Dir.Cleanup] from
// TestMain; the test package in this module does that in its Main function.
//
// # Environment
//
// The parent directory is taken from "TMPDIR" then "TMP" on unix systems, and
// from [os.TempDir] elsewhere. Setting [EnvKeep] to "1" makes [Shared]
// preserve the directory at cleanup time.
//
// # Metrics
//
// Allocation and cleanup counters are registered with the default prometheus
// registry under the "testtmp_tmpdir_" prefix. The test package's Main writes
// them out when given the "-testtmp.metrics" flag; any other consumer can use
// [github.com/prometheus/client_golang/prometheus.DefaultGatherer].
package tmpdir
