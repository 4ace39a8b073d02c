// Package logging configures structured logging for ifs-cloud-mcp.
//
// All output goes through log/slog. The stdio transport owns stdout, so the
// CLI always hands Setup a stderr writer.
//
// # Usage
//
//	logger, err := logging.Setup("INFO", os.Stderr)
//	if err != nil {
//	    return err
//	}
//	logger = logging.WithVersion(logger, "25.1.0")
//	logger.Info("index built", logging.Count(1234), logging.Err(err))
package logging
