package ygggo_db

import (
	"context"
	"strings"
	"time"
)

// BeginTransaction starts a transaction. It returns false without touching
// the driver when one is already active on c; nested requests are folded
// into the outer transaction.
func (c *Conn) BeginTransaction(ctx context.Context) (bool, error) {
	if c.tx != nil {
		return false, nil
	}
	start := time.Now()
	spanCtx, span := c.startSpan(ctx, "begin", "")
	tx, err := c.inner.BeginTx(spanCtx, nil)
	c.logTransaction(ctx, "begin", time.Since(start), err)
	c.recordTransaction(ctx, "begin", 0, err)
	if err != nil {
		err = c.fail(ctx, KindStatement, err, "BEGIN", nil)
		c.finishSpan(span, err)
		return false, err
	}
	c.finishSpan(span, nil)
	c.tx = tx
	c.txStart = time.Now()
	return true, nil
}

// Commit commits the active transaction. It returns false when there is
// none.
func (c *Conn) Commit(ctx context.Context) (bool, error) {
	return c.endTransaction(ctx, "commit")
}

// Rollback aborts the active transaction. It returns false when there is
// none.
func (c *Conn) Rollback(ctx context.Context) (bool, error) {
	return c.endTransaction(ctx, "rollback")
}

// InTransaction reports whether a transaction is active.
func (c *Conn) InTransaction() bool { return c.tx != nil }

func (c *Conn) endTransaction(ctx context.Context, event string) (bool, error) {
	if c.tx == nil {
		return false, nil
	}
	tx := c.tx
	c.tx = nil

	_, span := c.startSpan(ctx, event, "")
	var err error
	if event == "commit" {
		err = tx.Commit()
	} else {
		err = tx.Rollback()
	}
	held := time.Since(c.txStart)
	c.logTransaction(ctx, event, held, err)
	c.recordTransaction(ctx, event, held, err)
	if err != nil {
		err = c.fail(ctx, KindStatement, err, strings.ToUpper(event), nil)
		c.finishSpan(span, err)
		return false, err
	}
	c.finishSpan(span, nil)
	return true, nil
}
