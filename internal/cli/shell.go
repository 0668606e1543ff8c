package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/rcliao/tripplan/internal/apperr"
	"github.com/rcliao/tripplan/internal/model"
	"github.com/rcliao/tripplan/internal/session"
	"github.com/rcliao/tripplan/internal/workbench"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "shell",
		Short: "Interactive itinerary workbench",
		Long:  "Draft, preview, save, view and delete itineraries interactively. Type `help` for commands.",
		Run:   runShell,
	})
}

func runShell(cmd *cobra.Command, args []string) {
	a := mustApp()
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	s := newShell(a, cmd.OutOrStdout())
	if err := s.run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		exitErr("shell", err)
	}
}

const shellHelp = `Commands:
  login <email>            log in (password is prompted)
  register <email>         create an account
  logout                   log out and forget the session
  whoami                   show the session
  ls | reload              show or reload the itinerary list
  show <id> | close        open or close an itinerary
  new | edit [id]          start a draft
  dest <text>              set the destination
  start <date> | end <date>
  interest add | interest rm <n> | interest <n> <text>
  generate                 preview a plan for the draft
  save                     save the previewed plan
  cancel                   discard the draft
  rm [id]                  delete an itinerary
  help | quit`

// shell is the interactive event loop. Commands and operation results are
// handled one at a time on the loop goroutine.
type shell struct {
	app     *app
	out     io.Writer
	pending map[*workbench.Op]bool

	readLine     func() (string, bool)
	readPassword func() (string, error)
}

func newShell(a *app, out io.Writer) *shell {
	return &shell{
		app:     a,
		out:     out,
		pending: map[*workbench.Op]bool{},
	}
}

func (s *shell) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	want := make(chan struct{}, 1)
	go func() {
		r := bufio.NewReader(in)
		defer close(lines)
		for range want {
			line, err := r.ReadString('\n')
			if err != nil && line == "" {
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	defer close(want)
	// At most one read is outstanding; a full buffer means the reader is gone.
	ask := func() {
		select {
		case want <- struct{}{}:
		default:
		}
	}

	s.readLine = func() (string, bool) {
		ask()
		select {
		case line, ok := <-lines:
			return strings.TrimSpace(line), ok
		case <-ctx.Done():
			return "", false
		}
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		// The reader goroutine is idle between requests, so the terminal can
		// be read directly.
		s.readPassword = func() (string, error) {
			fmt.Fprint(s.out, "Password: ")
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(s.out)
			return string(b), err
		}
	} else {
		s.readPassword = func() (string, error) {
			fmt.Fprint(s.out, "Password: ")
			line, ok := s.readLine()
			if !ok {
				return "", io.EOF
			}
			return line, nil
		}
	}

	s.start(ctx)

	for {
		fmt.Fprint(s.out, "tripplan> ")
		ask()
	wait:
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					fmt.Fprintln(s.out)
					return nil
				}
				if s.exec(ctx, strings.TrimSpace(line)) {
					return nil
				}
				break wait
			case c := <-s.app.wb.Completions():
				s.complete(ctx, c)
				fmt.Fprint(s.out, "tripplan> ")
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// start restores a saved session and, if there is one, loads the list.
func (s *shell) start(ctx context.Context) {
	screen, err := s.app.sess.Bootstrap(ctx)
	if err != nil {
		s.fail(err)
	}
	if screen != session.ScreenItineraries {
		fmt.Fprintln(s.out, warnStyle.Render("Not logged in. Use `login <email>` or `register <email>`."))
		return
	}
	s.enter(ctx)
}

func (s *shell) enter(ctx context.Context) {
	op, err := s.app.wb.Enter(ctx)
	s.track(op, err)
}

func (s *shell) track(op *workbench.Op, err error) {
	if err != nil {
		s.fail(err)
		return
	}
	if op != nil {
		s.pending[op] = true
	}
}

func (s *shell) fail(err error) {
	var te *workbench.TransitionError
	switch {
	case errors.As(err, &te):
		fmt.Fprintf(s.out, "cannot %s while %s\n", te.Action, te.From)
	case errors.Is(err, workbench.ErrBusy):
		fmt.Fprintln(s.out, warnStyle.Render("still working on that, please wait"))
	case errors.Is(err, workbench.ErrNoPreview):
		fmt.Fprintln(s.out, "generate a preview before saving")
	default:
		fmt.Fprintln(s.out, "error: "+apperr.Message(err))
	}
}

// complete applies an operation result and reports it.
func (s *shell) complete(ctx context.Context, c workbench.Completion) {
	op := c.Op()
	delete(s.pending, op)
	err := s.app.wb.Apply(ctx, c)
	switch {
	case errors.Is(err, workbench.ErrSuperseded):
		s.app.logger.Debug("stale result dropped", zap.String("op", string(op.Kind)))
		return
	case err != nil:
		s.fail(err)
		if errors.Is(err, apperr.ErrUnauthorized) {
			renderState(s.out, s.app.wb)
		}
		return
	}

	switch op.Kind {
	case workbench.OpSave:
		if rec, ok := s.app.wb.LastSaved(); ok {
			fmt.Fprintln(s.out, metaStyle.Render("Saved #"+rec.ID.String()))
		}
	case workbench.OpDelete:
		fmt.Fprintln(s.out, metaStyle.Render("Deleted #"+op.Target.String()))
	}
	renderState(s.out, s.app.wb)
}

// settle applies completions until no operation is pending.
func (s *shell) settle(ctx context.Context) {
	for len(s.pending) > 0 {
		select {
		case c := <-s.app.wb.Completions():
			s.complete(ctx, c)
		case <-ctx.Done():
			return
		}
	}
}

// exec runs one command line. It reports whether the shell should exit.
func (s *shell) exec(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	wb := s.app.wb

	switch name {
	case "quit", "exit":
		return true
	case "help", "?":
		fmt.Fprintln(s.out, shellHelp)

	case "login":
		s.login(ctx, rest)
	case "register":
		s.register(ctx, rest)
	case "logout":
		if err := s.app.sess.Logout(ctx); err != nil {
			s.fail(err)
		}
		renderState(s.out, wb)
	case "whoami":
		if sess, ok := s.app.sess.Session(); ok {
			fmt.Fprintln(s.out, sess.User.Email)
		} else {
			fmt.Fprintln(s.out, "not logged in")
		}

	case "ls", "list":
		if wb.Loading() {
			fmt.Fprintln(s.out, metaStyle.Render("loading..."))
		}
		renderState(s.out, wb)
	case "reload":
		op, err := wb.Reload(ctx)
		s.track(op, err)
	case "show":
		s.show(wb.Select(model.ID(rest)))
	case "close":
		s.show(wb.CloseView())
	case "new":
		s.show(wb.New())
	case "edit":
		s.show(wb.Edit(model.ID(rest)))
	case "cancel":
		s.show(wb.Cancel())

	case "dest":
		s.show(wb.SetDestination(rest))
	case "start", "end":
		d, err := model.ParseDate(rest)
		if err != nil {
			s.fail(apperr.Wrap(apperr.KindValidation, name, err))
			return false
		}
		if name == "start" {
			s.show(wb.SetStartDate(d))
		} else {
			s.show(wb.SetEndDate(d))
		}
	case "interest":
		s.show(s.interest(rest))

	case "generate":
		op, err := wb.Generate(ctx)
		s.track(op, err)
		if err == nil {
			fmt.Fprintln(s.out, metaStyle.Render("generating..."))
		}
	case "save":
		op, err := wb.Save(ctx)
		s.track(op, err)
		if err == nil {
			fmt.Fprintln(s.out, metaStyle.Render("saving..."))
		}
	case "rm", "delete":
		op, err := wb.Delete(ctx, model.ID(rest), workbench.ConfirmFunc(s.confirm))
		s.track(op, err)
		if err == nil && op == nil {
			fmt.Fprintln(s.out, "kept")
		}

	default:
		fmt.Fprintf(s.out, "unknown command %q, type help\n", name)
	}
	return false
}

// show reports err, or renders the new state.
func (s *shell) show(err error) {
	if err != nil {
		s.fail(err)
		return
	}
	renderState(s.out, s.app.wb)
}

func (s *shell) interest(args string) error {
	wb := s.app.wb
	if args == "add" {
		return wb.AddInterest()
	}
	if n, ok := strings.CutPrefix(args, "rm "); ok {
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return apperr.New(apperr.KindValidation, "interest", "usage: interest rm <n>")
		}
		return wb.RemoveInterest(i - 1)
	}
	n, text, _ := strings.Cut(args, " ")
	i, err := strconv.Atoi(n)
	if err != nil {
		return apperr.New(apperr.KindValidation, "interest", "usage: interest add | interest rm <n> | interest <n> <text>")
	}
	return wb.SetInterest(i-1, strings.TrimSpace(text))
}

func (s *shell) confirm(prompt string) bool {
	fmt.Fprintf(s.out, "%s [y/N] ", prompt)
	line, ok := s.readLine()
	if !ok {
		return false
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true
	}
	return false
}

func (s *shell) login(ctx context.Context, email string) {
	if email == "" {
		fmt.Fprintln(s.out, "usage: login <email>")
		return
	}
	if s.app.sess.State() == session.Authenticated {
		fmt.Fprintln(s.out, "already logged in; logout first")
		return
	}
	password, err := s.readPassword()
	if err != nil {
		s.fail(err)
		return
	}
	if err := s.app.sess.Login(ctx, email, password); err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintln(s.out, metaStyle.Render("Logged in as "+email))
	s.enter(ctx)
}

func (s *shell) register(ctx context.Context, email string) {
	if email == "" {
		fmt.Fprintln(s.out, "usage: register <email>")
		return
	}
	if err := s.app.sess.ShowRegister(); err != nil {
		s.fail(err)
		return
	}
	password, err := s.readPassword()
	if err != nil {
		s.fail(err)
		return
	}
	if err := s.app.sess.Register(ctx, email, password); err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintln(s.out, "Registered. Use `login "+email+"` to continue.")
}
