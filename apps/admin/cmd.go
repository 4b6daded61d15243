package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/entity"
	"github.com/trezcool/darasa/core/quiz"
	notifsvc "github.com/trezcool/darasa/services/notifier"
	restsvc "github.com/trezcool/darasa/services/rest"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp     = errors.New("help provided")
	errNoLogin  = errors.New("not logged in; run the login command first")
	errNoEntity = errors.New("unknown entity")
)

// screen is the CLI's view over one entity controller.
type screen interface {
	refresh(ctx context.Context)
	search(query string)
	rows() [][]string
	deleteOne(ctx context.Context, id int)
}

type entityScreen[R entity.Record] struct {
	ctl   *entity.Controller[R]
	label func(R) string
}

func (s *entityScreen[R]) refresh(ctx context.Context) { s.ctl.Refresh(ctx) }
func (s *entityScreen[R]) search(query string)         { s.ctl.SetQuery(query) }

func (s *entityScreen[R]) rows() [][]string {
	items := s.ctl.VisibleItems()
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{strconv.Itoa(it.EntityID()), s.label(it)})
	}
	return rows
}

func (s *entityScreen[R]) deleteOne(ctx context.Context, id int) { s.ctl.DeleteOne(ctx, id) }

type commandLine struct {
	conf    *core.Config
	log     core.Logger
	notify  core.Notifier
	confirm core.Confirmer
	in      io.Reader
	out     io.Writer

	// tokenPath caches the bearer token between invocations; empty disables
	// persistence (tests).
	tokenPath string

	sess    *core.Session
	screens map[string]screen
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME|EMAIL         - authenticate; the password will be prompted")
	fmt.Fprintln(cli.out, "  list -entity NAME [-search QUERY]      - list records, optionally filtered")
	fmt.Fprintln(cli.out, "  delete -entity NAME -id ID [-yes]      - delete one record (asks for confirmation unless -yes)")
	fmt.Fprintln(cli.out, "  take-test                              - take your assigned test interactively")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	ctx := context.Background()

	switch args[1] {
	case "login":
		loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
		uname := loginCmd.String("username", "", "The user's username or email. The password will be prompted next.")
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *uname == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(ctx, *uname, string(pwd))

	case "list":
		listCmd := flag.NewFlagSet("list", flag.ExitOnError)
		name := listCmd.String("entity", "", "One of: users, roles, courses, tests.")
		query := listCmd.String("search", "", "Case-insensitive substring filter.")
		if err := listCmd.Parse(args[2:]); err != nil {
			return err
		}
		scr, err := cli.screen(*name)
		if err != nil {
			if err == errHelp {
				listCmd.Usage()
			}
			return err
		}
		scr.refresh(ctx)
		scr.search(*query)
		tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
		for _, row := range scr.rows() {
			fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
		}
		return tw.Flush()

	case "delete":
		delCmd := flag.NewFlagSet("delete", flag.ExitOnError)
		name := delCmd.String("entity", "", "One of: users, roles, courses, tests.")
		id := delCmd.Int("id", 0, "The record's id.")
		yes := delCmd.Bool("yes", false, "Skip the confirmation prompt.")
		if err := delCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *id <= 0 {
			delCmd.Usage()
			return errHelp
		}
		if *yes {
			cli.confirm = notifsvc.NewAutoConfirmer(true)
			cli.screens = nil // rebind controllers to the new confirmer
		}
		scr, err := cli.screen(*name)
		if err != nil {
			if err == errHelp {
				delCmd.Usage()
			}
			return err
		}
		scr.refresh(ctx)
		scr.deleteOne(ctx, *id)
		return nil

	case "take-test":
		if cli.sess == nil {
			cli.restoreSession()
		}
		if cli.sess == nil {
			return errNoLogin
		}
		return cli.takeTest(ctx)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) screen(name string) (screen, error) {
	if name == "" {
		return nil, errHelp
	}
	if cli.screens == nil {
		if cli.sess == nil {
			cli.restoreSession()
		}
		if cli.sess != nil {
			cli.buildScreens()
		}
	}
	if cli.screens == nil {
		return nil, errNoLogin
	}
	scr, ok := cli.screens[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, errNoEntity)
	}
	return scr, nil
}

// restoreSession rebuilds the session from the cached token so list/delete
// work in the invocation after login.
func (cli *commandLine) restoreSession() {
	if cli.tokenPath == "" {
		return
	}
	raw, err := os.ReadFile(cli.tokenPath)
	if err != nil {
		return
	}
	sess, err := core.NewSession(strings.TrimSpace(string(raw)))
	if err != nil {
		cli.log.Warn("cached token rejected, log in again", err)
		return
	}
	cli.sess = sess
}

func (cli *commandLine) login(ctx context.Context, uname, pwd string) error {
	token, err := restsvc.NewClient(cli.conf, nil).Login(ctx, uname, pwd)
	if err != nil {
		return err
	}
	sess, err := core.NewSession(token)
	if err != nil {
		return err
	}
	cli.sess = sess
	cli.buildScreens()
	if cli.tokenPath != "" {
		if err := os.WriteFile(cli.tokenPath, []byte(token), 0o600); err != nil {
			cli.log.Warn("could not cache the session token", err)
		}
	}
	fmt.Fprintf(cli.out, "logged in as %s\n", sess.Username)
	return nil
}

// takeTest walks the user's assigned test question by question; the countdown
// keeps running while the user types, so a timeout mid-walkthrough still
// submits whatever was recorded.
func (cli *commandLine) takeTest(ctx context.Context) error {
	client := restsvc.NewClient(cli.conf, cli.sess)
	sess := quiz.NewSession(cli.conf, cli.sess, restsvc.NewQuizGateway(client), core.RealClock(), cli.notify, cli.log)
	defer sess.Close()

	if err := sess.Start(ctx); err != nil {
		return err
	}
	if sess.Phase() == quiz.AlreadyCompleted {
		fmt.Fprintln(cli.out, "this test was already completed")
		return nil
	}

	reader := bufio.NewReader(cli.in)
	questions := sess.Questions()
	for _, q := range questions {
		if sess.Phase() != quiz.Active {
			break // time ran out
		}
		fmt.Fprintf(cli.out, "\n%s (%ds left)\n", q.Prompt, sess.Remaining())
		for i, choice := range q.Choices() {
			fmt.Fprintf(cli.out, "  %d) %s\n", i+1, choice)
		}
		fmt.Fprint(cli.out, "answer (enter to skip): ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(q.Choices()) {
			fmt.Fprintln(cli.out, "invalid choice, skipped")
			continue
		}
		sess.RecordResponse(q.ID, n-1)
	}

	sess.Submit(ctx)
	fmt.Fprintf(cli.out, "score: %d/%d\n", sess.Score(), len(questions))
	return nil
}

func (cli *commandLine) buildScreens() {
	client := restsvc.NewClient(cli.conf, cli.sess)
	deps := entity.Deps{
		Session:   cli.sess,
		Notifier:  cli.notify,
		Confirmer: cli.confirm,
		Logger:    cli.log,
	}
	cli.screens = map[string]screen{
		"users": &entityScreen[entity.User]{
			ctl:   entity.NewController(entity.Users, restsvc.NewEntityGateway(client, entity.Users), deps),
			label: func(u entity.User) string { return u.Name + " <" + u.Email + ">" },
		},
		"roles": &entityScreen[entity.Role]{
			ctl:   entity.NewController(entity.Roles, restsvc.NewEntityGateway(client, entity.Roles), deps),
			label: func(r entity.Role) string { return r.Name },
		},
		"courses": &entityScreen[entity.Course]{
			ctl:   entity.NewController(entity.Courses, restsvc.NewEntityGateway(client, entity.Courses), deps),
			label: func(c entity.Course) string { return c.Title },
		},
		"tests": &entityScreen[entity.Test]{
			ctl:   entity.NewController(entity.Tests, restsvc.NewEntityGateway(client, entity.Tests), deps),
			label: func(t entity.Test) string { return t.Title },
		},
	}
}
