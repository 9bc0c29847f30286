// Package test holds the harness for running this module's test binaries.
package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/quay/testtmp/tmpdir"
)

// Main allocates the process-wide test directory, runs the tests, and then
// removes the directory.
//
// This function panics if any setup fails. A directory that can't be removed
// is reported but does not change the exit code.
//
//	func TestMain(m *testing.M) {
//		test.Main(m)
//	}
func Main(m *testing.M, options ...Option) {
	var code int
	setup := testSetup{newDir: tmpdir.Shared}
	defer func() {
		if err := setup.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error while cleaning up: %v\n", err)
			code++
		}
		if code != 0 {
			os.Exit(code)
		}
	}()

	registerFlags(flag.CommandLine, &options)
	flag.Parse()

	for _, f := range options {
		if err := f(&setup); err != nil {
			panic(err)
		}
	}
	if err := setup.init(context.Background()); err != nil {
		panic(err)
	}

	code = m.Run()
}

// RegisterFlags adds the flags understood by [Main] to "fs". Each flag
// appends to "options" when it's parsed.
func registerFlags(fs *flag.FlagSet, options *[]Option) {
	fs.Func("app-trace", "path to write for application traces (otel JSON format)", func(arg string) error {
		*options = append(*options, WithApplicationTrace(arg))
		return nil
	})
	fs.BoolFunc("testtmp.keep", "keep the test directory after the run", func(arg string) error {
		keep, err := strconv.ParseBool(arg)
		if keep {
			*options = append(*options, KeepTempDir)
		}
		return err
	})
	fs.Func("testtmp.parent", "create the test directory inside `dir`", func(arg string) error {
		*options = append(*options, WithTempParent(arg))
		return nil
	})
	fs.Func("testtmp.metrics", "path to write test directory metrics (prometheus text format)", func(arg string) error {
		*options = append(*options, WithMetricsFile(arg))
		return nil
	})
}

type testSetup struct {
	AppTraceOut      *os.File
	AppTraceProvider *trace.TracerProvider
	TempDir          *tmpdir.Dir
	MetricsFile      string

	newDir  func(context.Context, ...tmpdir.Option) (*tmpdir.Dir, error)
	tmpOpts []tmpdir.Option
}

// Option is the type for configuring the [Main] function.
type Option func(*testSetup) error

// KeepTempDir arranges for the test directory to be left in place after the
// tests run.
//
// Without this option, the [tmpdir.EnvKeep] environment variable decides.
func KeepTempDir(s *testSetup) error {
	s.tmpOpts = append(s.tmpOpts, tmpdir.WithKeep(true))
	return nil
}

// WithTempParent creates the test directory inside "dir".
func WithTempParent(dir string) Option {
	return func(s *testSetup) error {
		s.tmpOpts = append(s.tmpOpts, tmpdir.WithParent(dir))
		return nil
	}
}

// WithApplicationTrace arranges for OTel JSON formatted traces to "path".
func WithApplicationTrace(path string) Option {
	return func(s *testSetup) error {
		var prevErr, openErr error
		if s.AppTraceOut != nil {
			fmt.Fprintf(os.Stderr, "closing previously specified trace file: %q", s.AppTraceOut.Name())
			prevErr = s.AppTraceOut.Close()
			s.AppTraceOut = nil
		}
		if path != "" {
			s.AppTraceOut, openErr = os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
		}
		return errors.Join(prevErr, openErr)
	}
}

// WithMetricsFile arranges for the metrics in the default prometheus registry,
// including the tmpdir allocation and cleanup counters, to be written to
// "path" after the test directory is cleaned up.
func WithMetricsFile(path string) Option {
	return func(s *testSetup) error {
		s.MetricsFile = path
		return nil
	}
}

// Init sets up tracing, if requested, then allocates the test directory so
// that its allocation is traced.
func (s *testSetup) init(ctx context.Context) error {
	if s.AppTraceOut != nil {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(s.AppTraceOut))
		if err != nil {
			return fmt.Errorf("creating stdout exporter: %w", err)
		}
		r, err := resource.Merge(
			resource.Default(),
			resource.NewSchemaless(attribute.String("test.start", time.Now().Format(time.RFC3339))))
		if err != nil {
			return fmt.Errorf("creating trace resource: %w", err)
		}
		s.AppTraceProvider = trace.NewTracerProvider(
			trace.WithSampler(trace.AlwaysSample()),
			trace.WithResource(r),
			trace.WithBatcher(exporter),
		)
		otel.SetTracerProvider(s.AppTraceProvider)

		_, span := otel.Tracer("github.com/quay/testtmp/test").Start(ctx, "Main")
		span.AddEvent("start")
		span.End()
	}

	d, err := s.newDir(ctx, s.tmpOpts...)
	if err != nil {
		return fmt.Errorf("allocating test directory: %w", err)
	}
	s.TempDir = d
	return nil
}

// Close does teardown.
//
// The test directory is removed before the metrics are written and the trace
// provider is shut down, so the cleanup shows up in both.
func (s *testSetup) Close() error {
	var errs []error
	if s.TempDir != nil {
		s.TempDir.Cleanup(context.Background())
	}
	if s.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(s.MetricsFile, prometheus.DefaultGatherer); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics: %w", err))
		}
	}
	if s.AppTraceProvider != nil {
		timeout, done := context.WithTimeout(context.Background(), 10*time.Second)
		errs = append(errs, s.AppTraceProvider.Shutdown(timeout))
		done()
	}
	if s.AppTraceOut != nil {
		errs = append(errs, s.AppTraceOut.Close())
	}
	return errors.Join(errs...)
}
