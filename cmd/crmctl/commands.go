package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/etiya/crm-client/internal/app"
	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
	"github.com/etiya/crm-client/internal/infrastructure/config"
	"github.com/etiya/crm-client/pkg/logger"
)

const usage = `usage: crmctl <command> [flags]

commands:
  login     --email E --password P    sign in and remember the session
  register  --email E --password P --name N
  logout                              forget the session
  whoami                              show the signed-in user
  passwd    --current P --new P       change the password
  customers                           list customers (ADMIN)
  tasks     [--customer ID] [--assignee ID]
  advance   ID                        move a task to its next status
  stats                               task counts by status
  open      PATH                      show where navigating to PATH leads
`

type command struct {
	name string
	// auth commands run without restoring a session first
	auth bool
	run  func(ctx context.Context, c *app.Client, fs *pflag.FlagSet, out io.Writer) error
	// flags registers the command's flags on fs.
	flags func(fs *pflag.FlagSet)
}

var commands = []command{
	{name: "login", auth: true, flags: credentialFlags, run: cmdLogin},
	{name: "register", auth: true, flags: registerFlags, run: cmdRegister},
	{name: "logout", run: cmdLogout},
	{name: "whoami", run: cmdWhoami},
	{name: "passwd", flags: passwdFlags, run: cmdPasswd},
	{name: "customers", run: cmdCustomers},
	{name: "tasks", flags: taskFlags, run: cmdTasks},
	{name: "advance", run: cmdAdvance},
	{name: "stats", run: cmdStats},
	{name: "open", run: cmdOpen},
}

func run(ctx context.Context, cfg *config.Config, args []string, out, errOut io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(errOut, usage)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == args[0] {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(errOut, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	fs := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	fs.SetOutput(errOut)
	if cmd.flags != nil {
		cmd.flags(fs)
	}
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	client, err := app.FromConfig(ctx, cfg, logger.Component("crmctl"))
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	defer client.Close()

	if !cmd.auth {
		if _, err := client.Session.Restore(ctx); err != nil && !errors.Is(err, domain.ErrNotAuthenticated) {
			fmt.Fprintln(errOut, "session:", err)
		}
	}

	if err := cmd.run(ctx, client, fs, out); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		if errors.Is(err, domain.ErrNotAuthenticated) {
			fmt.Fprintln(errOut, "run `crmctl login` first")
		}
		return 1
	}
	return 0
}

func credentialFlags(fs *pflag.FlagSet) {
	fs.StringP("email", "e", "", "account email")
	fs.StringP("password", "p", "", "account password")
}

func registerFlags(fs *pflag.FlagSet) {
	credentialFlags(fs)
	fs.StringP("name", "n", "", "display name")
}

func passwdFlags(fs *pflag.FlagSet) {
	fs.String("current", "", "current password")
	fs.String("new", "", "new password")
}

func taskFlags(fs *pflag.FlagSet) {
	fs.Int64("customer", 0, "only tasks of this customer id")
	fs.String("assignee", "", "only tasks assigned to this user id")
}

func cmdLogin(ctx context.Context, c *app.Client, fs *pflag.FlagSet, out io.Writer) error {
	email, _ := fs.GetString("email")
	password, _ := fs.GetString("password")
	u, err := c.Session.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "signed in as %s (%s)\n", u.DisplayName, u.Role)
	return nil
}

func cmdRegister(ctx context.Context, c *app.Client, fs *pflag.FlagSet, out io.Writer) error {
	email, _ := fs.GetString("email")
	password, _ := fs.GetString("password")
	name, _ := fs.GetString("name")
	u, err := c.Session.Register(ctx, email, password, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "registered %s (%s)\n", u.Email, u.Role)
	return nil
}

func cmdLogout(ctx context.Context, c *app.Client, _ *pflag.FlagSet, out io.Writer) error {
	c.Session.Logout(ctx)
	fmt.Fprintln(out, "signed out")
	return nil
}

func cmdWhoami(_ context.Context, c *app.Client, _ *pflag.FlagSet, out io.Writer) error {
	s := c.Session.Current()
	if !s.IsAuthenticated {
		return domain.ErrNotAuthenticated
	}
	fmt.Fprintf(out, "%s <%s> %s id=%s\n", s.User.DisplayName, s.User.Email, s.User.Role, s.User.ID)
	return nil
}

func cmdPasswd(ctx context.Context, c *app.Client, fs *pflag.FlagSet, out io.Writer) error {
	current, _ := fs.GetString("current")
	next, _ := fs.GetString("new")
	if err := c.Session.ChangePassword(ctx, current, next); err != nil {
		return err
	}
	fmt.Fprintln(out, "password changed")
	return nil
}

func cmdCustomers(ctx context.Context, c *app.Client, _ *pflag.FlagSet, out io.Writer) error {
	if err := gate(c, "/customers"); err != nil {
		return err
	}
	customers, err := c.Customers.FetchAll(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tACTIVE")
	for _, cu := range customers {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", cu.ID, cu.Name, cu.Email, cu.Phone, cu.IsActive)
	}
	return w.Flush()
}

func cmdTasks(ctx context.Context, c *app.Client, fs *pflag.FlagSet, out io.Writer) error {
	if err := gate(c, "/tasks"); err != nil {
		return err
	}
	customer, _ := fs.GetInt64("customer")
	assignee, _ := fs.GetString("assignee")
	tasks, err := c.Tasks.FetchFiltered(ctx, ports.TaskFilter{CustomerID: customer, AssignedUserID: assignee})
	if err != nil {
		return err
	}
	printTasks(out, tasks)
	return nil
}

func cmdAdvance(ctx context.Context, c *app.Client, fs *pflag.FlagSet, out io.Writer) error {
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: advance takes exactly one task id", domain.ErrValidationFailed)
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid task id %q", domain.ErrValidationFailed, fs.Arg(0))
	}
	if err := gate(c, "/tasks/"+fs.Arg(0)); err != nil {
		return err
	}
	if _, err := c.Tasks.Get(ctx, id); err != nil {
		return err
	}
	t, err := c.Tasks.AdvanceStatus(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "task %d is now %s\n", t.ID, t.Status)
	return nil
}

func cmdStats(ctx context.Context, c *app.Client, _ *pflag.FlagSet, out io.Writer) error {
	if err := c.Refresh(ctx); err != nil {
		return err
	}
	st := c.Tasks.Stats()
	fmt.Fprintf(out, "tasks: %d total, %d pending, %d in progress, %d completed\n",
		st.Total, st.Pending, st.InProgress, st.Completed)
	if c.Session.Current().HasRole(domain.RoleAdmin) {
		fmt.Fprintf(out, "customers: %d active of %d\n", c.Customers.ActiveCount(), len(c.Customers.Snapshot().Items))
	}
	return nil
}

func cmdOpen(_ context.Context, c *app.Client, fs *pflag.FlagSet, out io.Writer) error {
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: open takes exactly one path", domain.ErrValidationFailed)
	}
	nav := c.Navigate(fs.Arg(0))
	fmt.Fprintf(out, "%s -> %s\n", nav.Decision, nav.Path)
	return nil
}

// gate consults the authorization gate the way a view would before loading.
func gate(c *app.Client, path string) error {
	switch nav := c.Navigate(path); nav.Decision {
	case domain.Allow:
		return nil
	case domain.RedirectLogin:
		return domain.ErrNotAuthenticated
	default:
		return fmt.Errorf("%w: %s requires another role", domain.ErrUnauthorized, path)
	}
}

func printTasks(out io.Writer, tasks []domain.Task) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tCUSTOMER\tASSIGNEE\tDUE")
	for _, t := range tasks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Title, strings.ReplaceAll(string(t.Status), "_", " "), t.CustomerName, t.AssignedTo, t.DueDate.Format(time.DateOnly))
	}
	_ = w.Flush()
}
