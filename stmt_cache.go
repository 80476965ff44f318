package ygggo_db

import (
	"container/list"
	"context"
	"database/sql"
)

type preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// stmtCache keeps the most recently used prepared statements of one Conn.
// Statements handed out by the cache stay owned by it and are closed on
// eviction or when the Conn closes.
type stmtCache struct {
	cap    int
	ll     *list.List // front = most recently used
	m      map[string]*list.Element
	hits   uint64
	misses uint64
	// closeStmt closes evicted statements; defaults to (*sql.Stmt).Close.
	closeStmt func(*sql.Stmt) error
}

type stmtEntry struct {
	key  string
	stmt *sql.Stmt
}

func newStmtCache(capacity int, closeStmt func(*sql.Stmt) error) *stmtCache {
	if capacity < 0 {
		capacity = 0
	}
	if closeStmt == nil {
		closeStmt = (*sql.Stmt).Close
	}
	return &stmtCache{cap: capacity, ll: list.New(), m: make(map[string]*list.Element), closeStmt: closeStmt}
}

// getOrPrepare returns the cached statement for query, preparing it on p
// on a miss. cached is false when the caller owns the returned statement.
func (c *stmtCache) getOrPrepare(ctx context.Context, p preparer, query string) (st *sql.Stmt, cached bool, err error) {
	if c == nil || c.cap == 0 {
		st, err = p.PrepareContext(ctx, query)
		return st, false, err
	}
	if ele, ok := c.m[query]; ok {
		c.ll.MoveToFront(ele)
		c.hits++
		return ele.Value.(*stmtEntry).stmt, true, nil
	}
	st, err = p.PrepareContext(ctx, query)
	if err != nil {
		return nil, false, err
	}
	c.misses++
	c.m[query] = c.ll.PushFront(&stmtEntry{key: query, stmt: st})
	if c.ll.Len() > c.cap {
		c.evictLRU()
	}
	return st, true, nil
}

func (c *stmtCache) evictLRU() {
	back := c.ll.Back()
	if back == nil {
		return
	}
	c.ll.Remove(back)
	e := back.Value.(*stmtEntry)
	delete(c.m, e.key)
	_ = c.closeStmt(e.stmt)
}

func (c *stmtCache) closeAll() {
	if c == nil {
		return
	}
	for e := c.ll.Front(); e != nil; e = e.Next() {
		_ = c.closeStmt(e.Value.(*stmtEntry).stmt)
	}
	c.ll.Init()
	clear(c.m)
}

func (c *stmtCache) stats() (hits, misses uint64, size int) {
	if c == nil {
		return 0, 0, 0
	}
	return c.hits, c.misses, c.ll.Len()
}
