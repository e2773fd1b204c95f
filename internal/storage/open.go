package storage

import (
	"context"
	"fmt"
	"log"

	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/secret"
)

// Open builds the page store selected by cfg.StoreDriver. Passwords come
// from secrets, never from the config file.
func Open(ctx context.Context, cfg config.Config, secrets secret.SecretStore) (domain.PageStore, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := OpenSQLite(cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		log.Printf("[STORE] sqlite at %s", cfg.SQLitePath())
		return NewSQLStore(db, cfg.RevisionLimit), nil

	case config.DriverPostgres, config.DriverMySQL:
		password, err := secret.GetString(secrets, secret.DBPasswordKey)
		if err != nil {
			return nil, err
		}
		params := ServerParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			Database: cfg.DBName,
			User:     cfg.DBUser,
			Password: password,
			SSLMode:  cfg.DBSSLMode,
		}
		var db *DB
		if cfg.StoreDriver == config.DriverPostgres {
			db, err = OpenPostgres(params)
		} else {
			db, err = OpenMySQL(params)
		}
		if err != nil {
			return nil, err
		}
		log.Printf("[STORE] %s at %s/%s", cfg.StoreDriver, cfg.DBHost, cfg.DBName)
		return NewSQLStore(db, cfg.RevisionLimit), nil

	case config.DriverMongo:
		uri := cfg.MongoURI
		if v, err := secret.GetString(secrets, secret.MongoURIKey); err != nil {
			return nil, err
		} else if v != "" {
			uri = v
		}
		return OpenMongo(ctx, uri, cfg.DBName, cfg.RevisionLimit)

	case config.DriverFile:
		fs, err := NewFileStore(cfg.PagesDir(), cfg.RevisionLimit)
		if err != nil {
			return nil, err
		}
		log.Printf("[STORE] files at %s", cfg.PagesDir())
		return fs, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
