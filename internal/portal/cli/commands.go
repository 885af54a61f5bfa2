package cli

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"timetabledocs/internal/model"
	"timetabledocs/internal/portal"
)

func (a *App) uploadCommand() *cobra.Command {
	var note, department string
	cmd := &cobra.Command{
		Use:   "upload [FILE]",
		Short: "Upload a reference PDF",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := portal.NewUploadForm(a.api, portal.DepartmentPolicy{
				Source:   a.cfg.DepartmentSource,
				Constant: a.cfg.Department,
				Claim:    a.departmentClaim(),
			})
			form.Note = note
			form.Department = department

			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer f.Close()
				file, err := selectFile(f)
				if err != nil {
					return err
				}
				form.File = file
			}
			for _, h := range form.Hints() {
				fmt.Fprintf(a.err, "hint: %s\n", h)
			}

			a.log.Debug("upload_submitted", "base_url", a.api.BaseURL(), "note_len", len(note))
			msg, err := form.Submit(cmd.Context())
			if err != nil {
				a.log.Debug("upload_failed", "error", err.Error())
				return err
			}
			a.printf("%s\n", msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "optional note, e.g. \"Fall 2025 Draft 1\"")
	cmd.Flags().StringVar(&department, "department", "", "department tag (used when the department source is user-selected)")
	return cmd
}

// departmentClaim is the department carried by the stored admin session, or the
// PORTAL_DEPARTMENT_CLAIM override when no session holds one.
func (a *App) departmentClaim() string {
	if s, ok := a.gate().Current(); ok && s.Department != "" {
		return s.Department
	}
	return a.cfg.DepartmentClaim
}

// selectFile describes an opened file the way a file picker would.
func selectFile(f *os.File) (*portal.File, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Name())))
	if ct == "" {
		head := make([]byte, 512)
		n, _ := f.Read(head)
		ct = http.DetectContentType(head[:n])
		if _, err := f.Seek(0, 0); err != nil {
			return nil, err
		}
	}
	return &portal.File{Name: filepath.Base(f.Name()), Size: st.Size(), ContentType: ct, Content: f}, nil
}

func (a *App) loginCommand() *cobra.Command {
	var username string
	var passwordStdin bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Unlock the admin view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g := a.gate()
			if username == "" {
				fmt.Fprint(a.err, "Username: ")
				line, err := a.in.ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read username: %w", err)
				}
				username = strings.TrimSpace(line)
			}
			pw, err := a.password(passwordStdin)
			if err != nil {
				return err
			}
			g.Form = portal.LoginForm{Username: username, Password: pw}

			s, err := g.Login(cmd.Context())
			if err != nil {
				return err
			}
			a.printf("Logged in as %s until %s\n", s.Username, s.ExpiresAt.In(a.loc).Format("2 Jan 2006, 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "admin username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func (a *App) password(fromStdin bool) (string, error) {
	if fromStdin {
		line, err := a.in.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fmt.Fprint(a.err, "Password: ")
	pw, err := a.readPassword()
	fmt.Fprintln(a.err)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

func (a *App) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Lock the admin view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.gate().Logout(); err != nil {
				return err
			}
			a.printf("Logged out\n")
			return nil
		},
	}
}

func (a *App) listCommand() *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List uploaded PDFs",
		Args:    cobra.NoArgs,
		PreRunE: a.requireSession,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lib := portal.NewLibrary(a.api)
			defer lib.Close()
			if err := lib.Refresh(cmd.Context()); err != nil {
				return err
			}
			all := lib.Snapshot().Documents
			docs := lib.Search(search)
			if len(all) == 0 {
				a.printf("No PDFs uploaded yet\n")
				return nil
			}
			if len(docs) == 0 {
				a.printf("No PDFs match your search\n")
				return nil
			}
			a.printTable(docs)
			a.printf("%d of %d PDFs\n", len(docs), len(all))
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by filename or note")
	return cmd
}

func (a *App) printTable(docs []model.DocumentView) {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tNOTE\tUPLOADED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Filename, d.Note, portal.FormatUploadedAt(d.UploadedAt, a.loc))
	}
	tw.Flush()
}

// document loads the listing and returns the entry with id.
func (a *App) document(cmd *cobra.Command, id string) (model.DocumentView, error) {
	lib := portal.NewLibrary(a.api)
	defer lib.Close()
	if err := lib.Refresh(cmd.Context()); err != nil {
		return model.DocumentView{}, err
	}
	d, ok := lib.Find(id)
	if !ok {
		return model.DocumentView{}, fmt.Errorf("no PDF with id %s", id)
	}
	return d, nil
}

func (a *App) actions() *portal.Actions {
	return portal.NewActions(a.opener, a.api, a.clipboard, a.cfg.CopyFeedback)
}

func (a *App) openCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "open ID",
		Short:   "Open a PDF in the browser",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.requireSession,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.document(cmd, args[0])
			if err != nil {
				return err
			}
			if err := a.actions().Open(d); err != nil {
				a.printf("%s\n", d.URL)
			}
			return nil
		},
	}
}

func (a *App) downloadCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:     "download ID",
		Short:   "Save a PDF under its original filename",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.requireSession,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.document(cmd, args[0])
			if err != nil {
				return err
			}
			if path, ok := a.actions().Download(cmd.Context(), d, dir); ok {
				a.printf("Saved %s\n", path)
			} else {
				a.printf("Opened %s\n", d.URL)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "target directory")
	return cmd
}

func (a *App) copyCommand() *cobra.Command {
	var field string
	cmd := &cobra.Command{
		Use:     "copy ID",
		Short:   "Copy a PDF's url, note, filename or id to the clipboard",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.requireSession,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.document(cmd, args[0])
			if err != nil {
				return err
			}
			var text string
			switch field {
			case "url":
				text = d.URL
			case "note":
				text = d.Note
			case "filename":
				text = d.Filename
			case "id":
				text = d.ID
			default:
				return fmt.Errorf("unknown field %q (want url, note, filename or id)", field)
			}

			act := a.actions()
			defer act.Copied.Stop()
			if err := act.Copy(text); err != nil {
				return err
			}
			if act.Copied.IsCopied(text) {
				a.printf("Copied!\n")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&field, "field", "f", "url", "value to copy: url, note, filename or id")
	return cmd
}
