package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
)

// LoadFixtures loads SQL fixture files into the database
func LoadFixtures(db *sql.DB, fixturesPath string, files []string) error {
	for _, file := range files {
		path := filepath.Join(fixturesPath, file)
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read fixture %s: %w", file, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("load fixture %s: %w", file, err)
		}
		fmt.Printf("Loaded fixture: %s\n", file)
	}

	return nil
}

// CountFeatures returns the number of stored features for a natural key
func CountFeatures(db *sql.DB, sourceID, endpoint string) (int, error) {
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM out_source_features WHERE source_id = $1 AND endpoint = $2",
		sourceID, endpoint).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count features %s/%s: %w", endpoint, sourceID, err)
	}
	return n, nil
}
