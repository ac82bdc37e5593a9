package ormlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/golobby/ormlite/dialect"
	"github.com/golobby/ormlite/sqlexpr"
)

// Command is a statement bound for execution.
type Command struct {
	Text    string
	Params  []dialect.Param
	Timeout time.Duration

	dialect dialect.Provider
}

func newCommand(ctx context.Context, c Conn, stmt sqlexpr.Statement) *Command {
	db := c.database()
	cmd := &Command{Text: stmt.SQL, Timeout: db.CommandTimeout, dialect: dialectFor(ctx, db)}
	cmd.SetParams(stmt.Params)
	return cmd
}

// SetParams replaces the parameters, dropping any left from an earlier use.
func (c *Command) SetParams(params []dialect.Param) {
	c.Params = append(c.Params[:0], params...)
}

// Args are the parameters converted into driver arguments.
func (c *Command) Args() []any {
	return c.dialect.Args(c.Params)
}

func (c *Command) String() string {
	return c.Text
}

func (c *Command) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, c.Timeout)
	}
	return ctx, func() {}
}

func (c *Command) exec(ctx context.Context, ex Executor) (sql.Result, error) {
	ctx, cancel := c.context(ctx)
	defer cancel()
	return ex.ExecContext(ctx, c.Text, c.Args()...)
}

// query runs the command. The returned cancel func must be called once rows are closed.
func (c *Command) query(ctx context.Context, ex Executor) (*sql.Rows, context.CancelFunc, error) {
	ctx, cancel := c.context(ctx)
	rows, err := ex.QueryContext(ctx, c.Text, c.Args()...)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return rows, cancel, nil
}
