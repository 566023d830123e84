// Package database connects to the metadata backends that store the CoraBooks
// file list.
//
// Every backend keeps the whole list as one JSON document and implements
// AtomicUpdate so that concurrent writers never lose each other's changes.
//
// # Supported Backends
//
//   - memory: process-local, for tests and throwaway runs
//   - sqlite: single-node deployments, optimistic version check
//   - postgres: row lock held inside a transaction
//   - redis: WATCH/MULTI transaction on one key
//   - mongo: version-filtered document replacement
//
// # Usage
//
//	cfg := database.Config{
//	    Type:   "sqlite",
//	    DSN:    "corabooks.db",
//	    Key:    "files",
//	    Tables: corabooks.Tables{MetaData: "corabooks_kv"},
//	}
//
//	db, err := database.Open(ctx, cfg, true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	repo := db.GetRepo()
package database
