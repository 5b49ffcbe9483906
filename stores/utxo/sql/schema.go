package sql

import (
	"github.com/bsv-blockchain/verdict/errors"
	"github.com/bsv-blockchain/verdict/util/usql"
)

func createPostgresSchema(db *usql.DB) error {
	if _, err := db.Exec(`
      CREATE TABLE IF NOT EXISTS transactions (
	     id               BIGSERIAL PRIMARY KEY
	    ,hash             BYTEA NOT NULL
	    ,block_height     BIGINT NOT NULL
	    ,is_coinbase      BOOLEAN NOT NULL
	    ,inserted_at      TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	  );
	`); err != nil {
		return errors.NewStorageError("could not create transactions table", err)
	}

	if _, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_transactions_hash ON transactions (hash);`); err != nil {
		return errors.NewStorageError("could not create ux_transactions_hash index", err)
	}

	if _, err := db.Exec(`
      CREATE TABLE IF NOT EXISTS outputs (
	      transaction_id  BIGINT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE
	     ,idx             BIGINT NOT NULL
	     ,amount          BIGINT NOT NULL
	     ,locking_script  BYTEA
	     ,PRIMARY KEY (transaction_id, idx)
	  );
	`); err != nil {
		return errors.NewStorageError("could not create outputs table", err)
	}

	return nil
}

func createSqliteSchema(db *usql.DB) error {
	if _, err := db.Exec(`
      CREATE TABLE IF NOT EXISTS transactions (
	     id               INTEGER PRIMARY KEY AUTOINCREMENT
	    ,hash             BLOB NOT NULL
	    ,block_height     BIGINT NOT NULL
	    ,is_coinbase      BOOLEAN NOT NULL
	    ,inserted_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	  );
	`); err != nil {
		return errors.NewStorageError("could not create transactions table", err)
	}

	if _, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_transactions_hash ON transactions (hash);`); err != nil {
		return errors.NewStorageError("could not create ux_transactions_hash index", err)
	}

	if _, err := db.Exec(`
      CREATE TABLE IF NOT EXISTS outputs (
	      transaction_id  INTEGER NOT NULL REFERENCES transactions(id) ON DELETE CASCADE
	     ,idx             BIGINT NOT NULL
	     ,amount          BIGINT NOT NULL
	     ,locking_script  BLOB
	     ,PRIMARY KEY (transaction_id, idx)
	  );
	`); err != nil {
		return errors.NewStorageError("could not create outputs table", err)
	}

	return nil
}
