package converter

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// ConnectToDatabase opens the bookkeeping database. For the sqlite driver
// dbname is the database file and the other parameters are ignored.
func ConnectToDatabase(driver string, user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	var dbURI string
	switch driver {
	case "mysql":
		port := "3306"
		dbURI = fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	case "sqlite":
		dbURI = dbname
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	db, err := sqlx.Connect(driver, dbURI)
	return db, err
}

var bookkeepingSchema = []string{
	`CREATE TABLE IF NOT EXISTS ConversionRuns (
		RunNumber INTEGER NOT NULL,
		FileIn VARCHAR(512) NOT NULL,
		FileOut VARCHAR(512) NOT NULL,
		Format VARCHAR(16) NOT NULL,
		Mode VARCHAR(16) NOT NULL,
		EventsRead INTEGER NOT NULL,
		EventsAccepted INTEGER NOT NULL,
		EventsRejected INTEGER NOT NULL,
		OnTheFlyV0s INTEGER NOT NULL,
		OnTheFlyCascades INTEGER NOT NULL,
		UnmatchedCascades INTEGER NOT NULL,
		Started BIGINT NOT NULL,
		Finished BIGINT NOT NULL,
		PRIMARY KEY (RunNumber, FileIn)
	)`,
	`CREATE TABLE IF NOT EXISTS ConversionTables (
		RunNumber INTEGER NOT NULL,
		FileIn VARCHAR(512) NOT NULL,
		TableName VARCHAR(32) NOT NULL,
		NRows BIGINT NOT NULL,
		PRIMARY KEY (RunNumber, FileIn, TableName)
	)`,
}

// CreateBookkeepingTables creates the bookkeeping tables when missing.
func CreateBookkeepingTables(db *sqlx.DB) error {
	for _, query := range bookkeepingSchema {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error creating bookkeeping tables: %w", err)
		}
	}
	return nil
}

type ConversionRun struct {
	RunNumber         int32  `db:"RunNumber"`
	FileIn            string `db:"FileIn"`
	FileOut           string `db:"FileOut"`
	Format            string `db:"Format"`
	Mode              string `db:"Mode"`
	EventsRead        int    `db:"EventsRead"`
	EventsAccepted    int    `db:"EventsAccepted"`
	EventsRejected    int    `db:"EventsRejected"`
	OnTheFlyV0s       int    `db:"OnTheFlyV0s"`
	OnTheFlyCascades  int    `db:"OnTheFlyCascades"`
	UnmatchedCascades int    `db:"UnmatchedCascades"`
	Started           int64  `db:"Started"`
	Finished          int64  `db:"Finished"`
}

type TableCount struct {
	RunNumber int32  `db:"RunNumber"`
	FileIn    string `db:"FileIn"`
	TableName string `db:"TableName"`
	NRows     int64  `db:"NRows"`
}

// IsRunConverted reports whether the input file of a run was already
// converted.
func IsRunConverted(db *sqlx.DB, runNumber int32, fileIn string) (bool, error) {
	var count int
	query := db.Rebind("SELECT COUNT(*) FROM ConversionRuns WHERE RunNumber = ? AND FileIn = ?")
	if err := db.Get(&count, query, runNumber, fileIn); err != nil {
		return false, fmt.Errorf("error querying database: %w", err)
	}
	return count > 0, nil
}

// GetConversionRun returns the recorded conversion of a run.
func GetConversionRun(db *sqlx.DB, runNumber int32, fileIn string) (ConversionRun, error) {
	var run ConversionRun
	query := db.Rebind("SELECT * FROM ConversionRuns WHERE RunNumber = ? AND FileIn = ?")
	if err := db.Get(&run, query, runNumber, fileIn); err != nil {
		return run, fmt.Errorf("error querying database: %w", err)
	}
	return run, nil
}

// GetTableCounts returns the recorded row counts of a run.
func GetTableCounts(db *sqlx.DB, runNumber int32, fileIn string) ([]TableCount, error) {
	query := db.Rebind("SELECT * FROM ConversionTables WHERE RunNumber = ? AND FileIn = ? ORDER BY TableName")
	rows, err := db.Queryx(query, runNumber, fileIn)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	var counts []TableCount
	for rows.Next() {
		result := TableCount{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		counts = append(counts, result)
	}
	return counts, rows.Err()
}

// RecordConversion stores the summary of a run, replacing any previous
// record of the same input file.
func RecordConversion(db *sqlx.DB, s RunSummary) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"ConversionRuns", "ConversionTables"} {
		query := tx.Rebind(fmt.Sprintf("DELETE FROM %s WHERE RunNumber = ? AND FileIn = ?", table))
		if _, err := tx.Exec(query, s.RunNumber, s.FileIn); err != nil {
			return fmt.Errorf("error deleting previous record: %w", err)
		}
	}

	run := ConversionRun{
		RunNumber:         s.RunNumber,
		FileIn:            s.FileIn,
		FileOut:           s.FileOut,
		Format:            s.Format.String(),
		Mode:              s.Mode.String(),
		EventsRead:        s.EventsRead,
		EventsAccepted:    s.EventsAccepted,
		EventsRejected:    s.EventsRejected,
		OnTheFlyV0s:       s.Diagnostics.OnTheFlyV0s,
		OnTheFlyCascades:  s.Diagnostics.OnTheFlyCascades,
		UnmatchedCascades: s.Diagnostics.UnmatchedCascades,
		Started:           s.Started.Unix(),
		Finished:          s.Finished.Unix(),
	}
	_, err = tx.NamedExec(`INSERT INTO ConversionRuns
		(RunNumber, FileIn, FileOut, Format, Mode, EventsRead, EventsAccepted, EventsRejected,
		 OnTheFlyV0s, OnTheFlyCascades, UnmatchedCascades, Started, Finished)
		VALUES (:RunNumber, :FileIn, :FileOut, :Format, :Mode, :EventsRead, :EventsAccepted, :EventsRejected,
		 :OnTheFlyV0s, :OnTheFlyCascades, :UnmatchedCascades, :Started, :Finished)`, run)
	if err != nil {
		return fmt.Errorf("error recording run: %w", err)
	}

	for k := Events; k < NumTables; k++ {
		count := TableCount{RunNumber: s.RunNumber, FileIn: s.FileIn, TableName: k.String(), NRows: int64(s.Rows[k])}
		_, err := tx.NamedExec(`INSERT INTO ConversionTables (RunNumber, FileIn, TableName, NRows)
			VALUES (:RunNumber, :FileIn, :TableName, :NRows)`, count)
		if err != nil {
			return fmt.Errorf("error recording %s row count: %w", k, err)
		}
	}
	return tx.Commit()
}
