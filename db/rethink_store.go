package db

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	rethink "gopkg.in/gorethink/gorethink.v3"
	"gopkg.in/gorethink/gorethink.v3/encoding"
)

const baseDbPoolConnections int = 2
const maxDbPoolConnections int = 20

const (
	guildsTable           string = "guilds"
	reactionRolesTable    string = "reaction_roles"
	roleChangesTable      string = "reaction_role_changes"
	roleRequirementsTable string = "reaction_role_requirements"
	chatLogsTable         string = "chat_logs"
	countersTable         string = "counters"
)

//Tables whose documents get a numeric id from the counters table
var countedTables = []string{reactionRolesTable, roleChangesTable, roleRequirementsTable, chatLogsTable}

//RethinkStore implements Store on top of rethinkdb
type RethinkStore struct {
	session *rethink.Session
	dbName  string
}

type counter struct {
	Name  string `gorethink:"id"`
	Value uint   `gorethink:"value"`
}

//ConnectRethink creates a new connection pool for the rethinkdb instance at the given address
func ConnectRethink(addr, dbName string) (*RethinkStore, error) {
	session, err := rethink.Connect(rethink.ConnectOpts{
		Address:    addr,
		Database:   dbName,
		InitialCap: baseDbPoolConnections,
		MaxOpen:    maxDbPoolConnections,
	})
	if err != nil {
		logrus.Errorf("Failed to create connection to rethinkdb instance at address %v because %v.", addr, err)
		return nil, fmt.Errorf("failed to create connection to rethinkdb instance at address %v because %v", addr, err)
	}
	return &RethinkStore{session: session, dbName: dbName}, nil
}

//Close cleanly terminates the database connection
func (s *RethinkStore) Close() error {
	logrus.Info("Terminating DB connection...")
	return s.session.Close()
}

//Migrate ensures the database, all tables and all id counters exist
func (s *RethinkStore) Migrate() error {
	_, err := rethink.DBCreate(s.dbName).RunWrite(s.session)
	if err != nil {
		logrus.Debugf("Did not create %v DB: %v", s.dbName, err)
	}
	if _, err := rethink.DB(s.dbName).Wait().Run(s.session); err != nil {
		return fmt.Errorf("database %v never became ready: %w", s.dbName, err)
	}
	tables := append([]string{guildsTable, countersTable}, countedTables...)
	for _, table := range tables {
		_, err := rethink.TableCreate(table, rethink.TableCreateOpts{
			PrimaryKey: "id",
		}).RunWrite(s.session)
		if err != nil {
			logrus.Debugf("Did not create %v table: %v", table, err)
		}
	}
	for _, table := range tables {
		if _, err := rethink.Table(table).Wait().Run(s.session); err != nil {
			return fmt.Errorf("table %v never became ready: %w", table, err)
		}
	}
	for _, table := range countedTables {
		//Conflicts mean the counter already exists, which is what we want
		_, _ = rethink.Table(countersTable).Insert(counter{Name: table}).RunWrite(s.session)
	}
	return nil
}

//nextID atomically increments and returns the counter of a table
func (s *RethinkStore) nextID(table string) (uint, error) {
	resp, err := rethink.Table(countersTable).Get(table).Update(map[string]interface{}{
		"value": rethink.Row.Field("value").Add(1),
	}, rethink.UpdateOpts{ReturnChanges: true}).RunWrite(s.session)
	if err != nil {
		return 0, err
	}
	if resp.Errors > 0 {
		return 0, fmt.Errorf("%v", resp.FirstError)
	}
	if len(resp.Changes) == 0 {
		return 0, fmt.Errorf("id counter for %v is missing", table)
	}
	var c counter
	if err := encoding.Decode(&c, resp.Changes[0].NewValue); err != nil {
		return 0, err
	}
	return c.Value, nil
}

func (s *RethinkStore) insert(table string, doc interface{}) error {
	resp, err := rethink.Table(table).Insert(doc).RunWrite(s.session)
	if err != nil {
		logrus.Warnf("Encountered error inserting %v into %v: %v.", doc, table, err)
		return err
	}
	if resp.Errors > 0 {
		err := fmt.Errorf("%v", resp.FirstError)
		logrus.Warnf("Encountered error inserting %v into %v: %v.", doc, table, err)
		return err
	}
	return nil
}

//getOne fetches a document by id into dest, returning ErrNotFound if it does not exist
func (s *RethinkStore) getOne(table string, id interface{}, dest interface{}) error {
	res, err := rethink.Table(table).Get(id).Run(s.session)
	if err != nil {
		return err
	}
	defer res.Close()
	if res.IsNil() {
		return ErrNotFound
	}
	return res.One(dest)
}

//all runs a query and decodes every result into dest
func (s *RethinkStore) all(query rethink.Term, dest interface{}) error {
	res, err := query.Run(s.session)
	if err != nil {
		return err
	}
	defer res.Close()
	if res.IsNil() {
		return nil
	}
	return res.All(dest)
}

func writeErr(resp rethink.WriteResponse, err error) error {
	if err != nil {
		return err
	}
	if resp.Errors > 0 {
		return fmt.Errorf("%v", resp.FirstError)
	}
	return nil
}

func changedOne(resp rethink.WriteResponse, err error) error {
	if err := writeErr(resp, err); err != nil {
		return err
	}
	if resp.Replaced+resp.Unchanged+resp.Deleted == 0 {
		return ErrNotFound
	}
	return nil
}

func ctxErr(ctx context.Context) error {
	return ctx.Err()
}
