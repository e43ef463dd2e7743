package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go-polyglot-store/pkg/database"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// requirePostgres connects to TEST_DATABASE_URL and skips the test when it is unset.
func requirePostgres(t *testing.T) *gorm.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping Postgres test in short mode")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.ConnectPostgres(dsn)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// requireMongo connects to TEST_MONGO_URI and returns a throwaway database.
func requireMongo(t *testing.T) *mongo.Database {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping Mongo test in short mode")
	}
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := database.ConnectMongo(ctx, uri)
	require.NoError(t, err)

	db := client.Database(fmt.Sprintf("storefront_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}
