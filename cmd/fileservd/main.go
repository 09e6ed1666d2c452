// Command fileservd serves a document root over HTTP/1.1 with optional
// TLS, HTTP Basic authentication, compression, directory listing, and
// CGI execution for a scripting runtime.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fileservd/fileservd"
	"github.com/fileservd/fileservd/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		address     = flag.String("address", "", "bind address as host:port (required)")
		docRoot     = flag.String("doc-root", "", "directory to serve (required)")
		dirListing  = flag.Bool("dir-listing", false, "allow directory listing")
		sslCert     = flag.String("ssl-cert", "", "TLS certificate path")
		sslKey      = flag.String("ssl-key", "", "TLS private key path")
		authCreds   = flag.String("auth-creds", "", "comma-separated user:pass pairs")
		phpBinary   = flag.String("php-binary", "", "path to the CGI interpreter")
		cgiExtFlags = flag.String("cgi-ext", "", "comma-separated CGI extensions (default .php)")
	)
	flag.Parse()

	consoleWriter := log.DefaultConsoleWriter()
	consoleWriter.Out = os.Stdout

	logger := log.NewWithConfig(log.LoggerConfig{
		Writer:     consoleWriter,
		Level:      logLevelFromEnv(),
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true, // consoleWriter owns coloring, logger emits plain lines
	})

	if *address == "" || *docRoot == "" {
		fmt.Fprintln(os.Stderr, "fileservd: --address and --doc-root are required")
		return 1
	}

	settings, err := fileservd.NewSettings(*address, *docRoot, *dirListing)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	settings.TLSCertPath = *sslCert
	settings.TLSKeyPath = *sslKey
	settings.CGIInterpreter = *phpBinary

	if *cgiExtFlags != "" {
		settings.CGIExtensions = strings.Split(*cgiExtFlags, ",")
	} else {
		settings.CGIExtensions = fileservd.DefaultCGIExtensions
	}

	if (settings.TLSCertPath == "") != (settings.TLSKeyPath == "") {
		fmt.Fprintln(os.Stderr, "fileservd: --ssl-cert and --ssl-key must be set together")
		return 1
	}

	creds, err := parseAuthCreds(*authCreds)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fileservd:", err)
		return 1
	}
	settings.AuthCreds = creds

	ln := fileservd.NewListener(settings, logger, nil)
	if err := ln.Listen(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger.Info().Msgf("listening on %s", ln.Addr().String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ln.Serve(ctx); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return 1
	}
	return 0
}

// parseAuthCreds parses the --auth-creds flag per spec §6: comma
// separated user:pass items, empty user or empty pass fails startup.
func parseAuthCreds(raw string) ([]fileservd.Credential, error) {
	if raw == "" {
		return nil, nil
	}
	items := strings.Split(raw, ",")
	creds := make([]fileservd.Credential, 0, len(items))
	for _, item := range items {
		sep := strings.IndexByte(item, ':')
		if sep < 0 {
			return nil, fmt.Errorf("malformed --auth-creds entry %q", item)
		}
		user, pass := item[:sep], item[sep+1:]
		if user == "" || pass == "" {
			return nil, fmt.Errorf("--auth-creds entry %q has an empty user or password", item)
		}
		creds = append(creds, fileservd.Credential{Username: user, Password: pass})
	}
	return creds, nil
}

// logLevelFromEnv reads the RUST_LOG-style level string spec §6
// describes, defaulting to info.
func logLevelFromEnv() log.Level {
	switch strings.ToLower(os.Getenv("RUST_LOG")) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
