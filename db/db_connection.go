package db

import (
	"fmt"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/config"
	"github.com/sirupsen/logrus"
)

//Init opens the configured database backend and makes sure its schema exists
func Init(cfg config.DBConfig) (Store, error) {
	var store Store
	var err error
	switch cfg.Type {
	case config.DBTypeSQLite:
		store, err = OpenSQLite(cfg.SQLitePath)
	case config.DBTypePostgres:
		store, err = OpenPostgres(cfg.PostgresURL)
	case config.DBTypeRethink:
		store, err = ConnectRethink(cfg.RethinkAddr, cfg.RethinkName)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
	if err != nil {
		logrus.Errorf("Failed to open %v database because %v.", cfg.Type, err)
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		logrus.Errorf("Failed to migrate %v database because %v.", cfg.Type, err)
		_ = store.Close()
		return nil, err
	}
	logrus.Infof("Connected to %v database.", cfg.Type)
	return store, nil
}
