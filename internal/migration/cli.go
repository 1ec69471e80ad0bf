package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Usage migrate 子命令的用法说明
const Usage = `usage: agentcore migrate <command> [arg]

commands:
  up              apply all pending migrations
  down            roll back the last migration
  down-all        roll back every migration
  steps <n>       apply n migrations (negative n rolls back)
  goto <version>  migrate to a specific version
  force <version> set the version without running migrations
  version         print the current version
  status          list migrations and their state
  info            print a migration summary
  verify          check that every agent table exists`

// ErrUsage 命令或参数无法识别
var ErrUsage = errors.New("invalid migrate command")

// ErrSchemaIncomplete verify 发现缺失的表
var ErrSchemaIncomplete = errors.New("schema incomplete")

type command struct {
	// arg 0 无参数，1 整数参数
	arg int
	run func(c *CLI, ctx context.Context, n int) error
}

var commands = map[string]command{
	"up":       {run: (*CLI).up},
	"down":     {run: func(c *CLI, ctx context.Context, _ int) error { return c.steps(ctx, -1) }},
	"down-all": {run: (*CLI).downAll},
	"steps": {arg: 1, run: func(c *CLI, ctx context.Context, n int) error {
		if n == 0 {
			return fmt.Errorf("%w: steps must not be zero", ErrUsage)
		}
		return c.steps(ctx, n)
	}},
	"goto": {arg: 1, run: func(c *CLI, ctx context.Context, n int) error {
		if n < 0 {
			return fmt.Errorf("%w: version must not be negative", ErrUsage)
		}
		return c.gotoVersion(ctx, uint(n))
	}},
	"force":   {arg: 1, run: (*CLI).force},
	"version": {run: (*CLI).version},
	"status":  {run: (*CLI).status},
	"info":    {run: (*CLI).info},
	"verify":  {run: (*CLI).verify},
}

// CLI 把迁移结果以人类可读的形式写到 out
type CLI struct {
	m   *Migrator
	out io.Writer
}

// NewCLI out 为 nil 时写到 stdout
func NewCLI(m *Migrator, out io.Writer) *CLI {
	if out == nil {
		out = os.Stdout
	}
	return &CLI{m: m, out: out}
}

// Run 解析并执行一条迁移命令，例如 ["steps", "-1"]
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", ErrUsage)
	}
	name, rest := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUsage, name)
	}
	if len(rest) != cmd.arg {
		return fmt.Errorf("%w: %s takes %d argument(s)", ErrUsage, name, cmd.arg)
	}

	n := 0
	if cmd.arg == 1 {
		var err error
		if n, err = strconv.Atoi(rest[0]); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUsage, name, err)
		}
	}
	return cmd.run(c, ctx, n)
}

func (c *CLI) printVersion(prefix string) error {
	v, _, err := c.m.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s. Current version: %d\n", prefix, v)
	return nil
}

func (c *CLI) up(ctx context.Context, _ int) error {
	fmt.Fprintln(c.out, "Running migrations...")
	if err := c.m.Up(ctx); err != nil {
		return err
	}
	return c.printVersion("Migrations complete")
}

func (c *CLI) downAll(ctx context.Context, _ int) error {
	fmt.Fprintln(c.out, "Rolling back all migrations...")
	if err := c.m.DownAll(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "All migrations rolled back.")
	return nil
}

func (c *CLI) steps(ctx context.Context, n int) error {
	if n > 0 {
		fmt.Fprintf(c.out, "Applying %d migration(s)...\n", n)
	} else {
		fmt.Fprintf(c.out, "Rolling back %d migration(s)...\n", -n)
	}
	if err := c.m.Steps(ctx, n); err != nil {
		return err
	}
	return c.printVersion("Complete")
}

func (c *CLI) gotoVersion(ctx context.Context, v uint) error {
	fmt.Fprintf(c.out, "Migrating to version %d...\n", v)
	if err := c.m.Goto(ctx, v); err != nil {
		return err
	}
	return c.printVersion("Migration complete")
}

func (c *CLI) force(_ context.Context, v int) error {
	if err := c.m.Force(v); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Version forced to %d\n", v)
	return nil
}

func (c *CLI) version(context.Context, int) error {
	v, dirty, err := c.m.Version()
	if err != nil {
		return err
	}
	switch {
	case v == 0:
		fmt.Fprintln(c.out, "No migrations applied yet.")
	case dirty:
		fmt.Fprintf(c.out, "Current version: %d (dirty)\n", v)
	default:
		fmt.Fprintf(c.out, "Current version: %d\n", v)
	}
	return nil
}

func (c *CLI) status(context.Context, int) error {
	list, err := c.m.Migrations()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(c.out, "No migrations found.")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATUS")
	applied := 0
	for _, m := range list {
		state := "Pending"
		switch {
		case m.Dirty:
			state = "Dirty"
		case m.Applied:
			state = "Applied"
		}
		if m.Applied {
			applied++
		}
		fmt.Fprintf(w, "%06d\t%s\t%s\n", m.Version, m.Name, state)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "\nTotal: %d, Applied: %d, Pending: %d\n", len(list), applied, len(list)-applied)
	return nil
}

func (c *CLI) info(context.Context, int) error {
	s, err := c.m.Summary()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 0, 1, ' ', 0)
	fmt.Fprintln(w, "Migration Information:")
	fmt.Fprintf(w, "  Current Version:\t%d\n", s.Current)
	fmt.Fprintf(w, "  Dirty:\t%v\n", s.Dirty)
	fmt.Fprintf(w, "  Total Migrations:\t%d\n", s.Total)
	fmt.Fprintf(w, "  Applied Migrations:\t%d\n", s.Applied)
	fmt.Fprintf(w, "  Pending Migrations:\t%d\n", s.Pending)
	return w.Flush()
}

func (c *CLI) verify(ctx context.Context, _ int) error {
	missing, err := c.m.MissingTables(ctx)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		fmt.Fprintf(c.out, "Missing tables: %s\n", strings.Join(missing, ", "))
		return fmt.Errorf("%w: %d table(s) missing", ErrSchemaIncomplete, len(missing))
	}
	fmt.Fprintf(c.out, "Schema OK: %d tables present.\n", len(SchemaTables))
	return nil
}
