package sqltrace

import (
	"context"
	"database/sql/driver"
	"errors"
)

type conn struct {
	parent driver.Conn
	opt    *options
}

var (
	_ driver.Conn               = (*conn)(nil)
	_ driver.ConnPrepareContext = (*conn)(nil)
	_ driver.ConnBeginTx        = (*conn)(nil)
	_ driver.ExecerContext      = (*conn)(nil)
	_ driver.QueryerContext     = (*conn)(nil)
	_ driver.Pinger             = (*conn)(nil)
	_ driver.NamedValueChecker  = (*conn)(nil)
	_ driver.SessionResetter    = (*conn)(nil)
)

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	parent, err := c.parent.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &stmt{parent: parent, query: query, opt: c.opt}, nil
}

func (c *conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if pc, ok := c.parent.(driver.ConnPrepareContext); ok {
		parent, err := pc.PrepareContext(ctx, query)
		if err != nil {
			return nil, err
		}
		return &stmt{parent: parent, query: query, opt: c.opt}, nil
	}
	return c.Prepare(query)
}

func (c *conn) Close() error {
	return c.parent.Close()
}

func (c *conn) Begin() (driver.Tx, error) {
	return c.parent.Begin()
}

func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if bc, ok := c.parent.(driver.ConnBeginTx); ok {
		return bc.BeginTx(ctx, opts)
	}
	return c.Begin()
}

func (c *conn) Ping(ctx context.Context) error {
	if p, ok := c.parent.(driver.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// CheckNamedValue defers to the parent's argument conversion. ErrSkip
// hands unsupported parents back to the default converter.
func (c *conn) CheckNamedValue(nv *driver.NamedValue) error {
	if checker, ok := c.parent.(driver.NamedValueChecker); ok {
		return checker.CheckNamedValue(nv)
	}
	return driver.ErrSkip
}

func (c *conn) ResetSession(ctx context.Context) error {
	if resetter, ok := c.parent.(driver.SessionResetter); ok {
		return resetter.ResetSession(ctx)
	}
	return nil
}

// ExecContext instruments direct statement execution. If the parent
// driver cannot execute directly, database/sql falls back to the
// prepared statement path, which is instrumented separately.
func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	ec, ok := c.parent.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}

	span := c.opt.startSpan(query, args)
	res, err := ec.ExecContext(ctx, query, args)
	if errors.Is(err, driver.ErrSkip) {
		// The fallback path will produce the span instead.
		return nil, driver.ErrSkip
	}
	c.opt.finish(span, res, err)
	return res, err
}

// QueryContext instruments direct queries, with the same fallback rules
// as ExecContext.
func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	qc, ok := c.parent.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}

	span := c.opt.startSpan(query, args)
	rows, err := qc.QueryContext(ctx, query, args)
	if errors.Is(err, driver.ErrSkip) {
		return nil, driver.ErrSkip
	}
	c.opt.finish(span, nil, err)
	return rows, err
}

type stmt struct {
	parent driver.Stmt
	query  string
	opt    *options
}

func (s *stmt) Close() error {
	return s.parent.Close()
}

func (s *stmt) NumInput() int {
	return s.parent.NumInput()
}

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	span := s.opt.startSpan(s.query, namedValues(args))
	res, err := s.parent.Exec(args)
	s.opt.finish(span, res, err)
	return res, err
}

func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	sc, ok := s.parent.(driver.StmtExecContext)
	if !ok {
		return s.Exec(values(args))
	}

	span := s.opt.startSpan(s.query, args)
	res, err := sc.ExecContext(ctx, args)
	s.opt.finish(span, res, err)
	return res, err
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	span := s.opt.startSpan(s.query, namedValues(args))
	rows, err := s.parent.Query(args)
	s.opt.finish(span, nil, err)
	return rows, err
}

func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	sc, ok := s.parent.(driver.StmtQueryContext)
	if !ok {
		return s.Query(values(args))
	}

	span := s.opt.startSpan(s.query, args)
	rows, err := sc.QueryContext(ctx, args)
	s.opt.finish(span, nil, err)
	return rows, err
}

func namedValues(args []driver.Value) []driver.NamedValue {
	out := make([]driver.NamedValue, len(args))
	for i, arg := range args {
		out[i] = driver.NamedValue{Ordinal: i + 1, Value: arg}
	}
	return out
}

func values(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i, arg := range args {
		out[i] = arg.Value
	}
	return out
}
