// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool wraps zombiezen.com/go/sqlite's connection pool
// with the pragmas the debug bot's message store expects (WAL,
// NORMAL synchronous, a five second busy timeout).
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:      cfg.Store.Path,
//	    Logger:    logger,
//	    OnConnect: createSchema,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	err = pool.With(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, query, options)
//	})
//
// Pass Memory as the path for a throwaway database. The pool then
// holds exactly one connection to a uniquely named shared-cache
// database, so every caller sees the same data and two Memory pools
// never share tables.
package sqlitepool
