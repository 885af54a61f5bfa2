// Package cli is the operator command line for the document portal.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"timetabledocs/internal/client"
	"timetabledocs/internal/config"
	"timetabledocs/internal/logging"
	"timetabledocs/internal/portal"
)

// ErrLoginRequired is returned by admin commands run without a valid session.
var ErrLoginRequired = errors.New("admin login required: run `portal login` first")

// App wires the portal workflows to a terminal.
type App struct {
	cfg   *config.PortalConfig
	api   *client.Client
	store portal.SessionStore
	loc   *time.Location
	log   *slog.Logger

	opener    portal.Opener
	clipboard portal.Clipboard

	in  *bufio.Reader
	out io.Writer
	err io.Writer

	// readPassword is a test seam for term.ReadPassword on stdin.
	readPassword func() ([]byte, error)
}

// Streams are the terminal handles the App reads from and writes to.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// NewApp builds an App from configuration. An empty SessionFile falls back to the per-user default.
func NewApp(cfg *config.PortalConfig, s Streams) (*App, error) {
	path := cfg.SessionFile
	if path == "" {
		p, err := portal.DefaultSessionPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	loc := config.Location(cfg.Timezone)

	return &App{
		cfg:       cfg,
		api:       client.New(cfg.BaseURL),
		store:     portal.FileStore{Path: path},
		loc:       loc,
		log:       logging.NewWithLevel(s.Err, loc, slog.LevelWarn),
		opener:    BrowserOpener{},
		clipboard: OSC52{W: s.Err},
		in:        bufio.NewReader(s.In),
		out:       s.Out,
		err:       s.Err,
		readPassword: func() ([]byte, error) {
			return term.ReadPassword(int(os.Stdin.Fd()))
		},
	}, nil
}

// Execute runs the command line with args.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.err)
	return root.ExecuteContext(ctx)
}

func (a *App) rootCommand() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "portal",
		Short:         "Upload and browse timetable reference PDFs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if verbose {
				a.log = logging.NewWithLevel(a.err, a.loc, slog.LevelDebug)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(
		a.uploadCommand(),
		a.loginCommand(),
		a.logoutCommand(),
		a.listCommand(),
		a.openCommand(),
		a.downloadCommand(),
		a.copyCommand(),
	)
	return root
}

func (a *App) gate() *portal.Gate {
	return portal.NewGate(a.api, a.store)
}

// requireSession puts the stored admin session on the command context.
func (a *App) requireSession(cmd *cobra.Command, _ []string) error {
	s, ok := a.gate().Current()
	if !ok {
		return ErrLoginRequired
	}
	cmd.SetContext(portal.WithSession(cmd.Context(), s))
	return nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
