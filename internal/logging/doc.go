// Package logging provides the logging facade of the mpisys build pipeline.
//
// The Logger interface wraps the context-aware subset of log/slog:
//
//	logger := logging.New(slog.New(logging.NewHandler(os.Stderr, logging.Options{Verbose: true})))
//	logger.Info(ctx, "profile selected", "profile", "unix-openmpi")
//
// Tool output attached to records goes through [Truncated]:
//
//	logger.Debug(ctx, "preprocessor finished", logging.Truncated("stderr", out, 2048))
//
// Records always go to stderr or a caller-provided writer. Stdout belongs to
// the harness directive channel.
package logging
