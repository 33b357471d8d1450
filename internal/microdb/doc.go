// Package microdb is the database handle tying the framework together.
//
// Open resolves the dialect adapter from a connection string, opens the
// connection pool, builds a table engine for every declared table and
// synchronizes the live schema according to the sync mode:
//
//	open  every table is synchronized before Open returns
//	lazy  each table is synchronized on its first operation
//	off   the live schema is used as is
//
// A lazy synchronization that fails is retried on the next operation.
// Started inside a scoped transaction it joins that transaction and only
// counts once the transaction commits.
//
// Example:
//
//	db, err := microdb.Open(ctx, microdb.Options{
//	    Name:       "shop",
//	    Connection: "sqlite:///var/lib/microdb/shop.db",
//	    Tables:     tables,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	books, _ := db.Table("book")
//	key, err := books.Insert(ctx, schema.NewRecord().Set("title", "Dune"))
package microdb
